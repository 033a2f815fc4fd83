// Package eventstest provides an in-memory Emitter for service tests.
package eventstest

import (
	"context"
	"sync"

	"github.com/angelmondragon/packdrop-backend/internal/events"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
)

// Recorder captures emitted envelopes.
type Recorder struct {
	mu        sync.Mutex
	envelopes []events.Envelope
}

func (r *Recorder) Emit(_ context.Context, env events.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes = append(r.envelopes, env)
}

// Envelopes returns a copy of everything emitted so far.
func (r *Recorder) Envelopes() []events.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Envelope(nil), r.envelopes...)
}

// Last returns the most recent envelope, or the zero value.
func (r *Recorder) Last() events.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.envelopes) == 0 {
		return events.Envelope{}
	}
	return r.envelopes[len(r.envelopes)-1]
}

// LifecycleTypes lists the lifecycle event types in emission order.
func (r *Recorder) LifecycleTypes() []enums.LifecycleEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []enums.LifecycleEventType
	for _, env := range r.envelopes {
		if env.Lifecycle != nil {
			out = append(out, env.Lifecycle.Type)
		}
	}
	return out
}

// Templates lists every notification template emitted.
func (r *Recorder) Templates() []enums.NotificationTemplate {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []enums.NotificationTemplate
	for _, env := range r.envelopes {
		for _, n := range env.Notifications {
			out = append(out, n.Template)
		}
	}
	return out
}
