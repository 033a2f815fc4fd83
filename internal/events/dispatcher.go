package events

import (
	"context"
	"fmt"

	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

// Dispatcher delivers envelopes to every configured sink. Sink errors are
// logged and dropped; the business write they describe is already committed.
type Dispatcher struct {
	notifier    Notifier
	broadcaster Broadcaster
	tracker     LifecycleTracker
	logg        *logger.Logger
}

// NewDispatcher wires the sinks. Any sink may be nil to disable it.
func NewDispatcher(notifier Notifier, broadcaster Broadcaster, tracker LifecycleTracker, logg *logger.Logger) (*Dispatcher, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{notifier: notifier, broadcaster: broadcaster, tracker: tracker, logg: logg}, nil
}

func (d *Dispatcher) Emit(ctx context.Context, env Envelope) {
	if env.Order != nil {
		ctx = d.logg.WithOrderID(ctx, env.Order.ID.String())
		if d.broadcaster != nil {
			if err := d.broadcaster.BroadcastOrderUpdate(ctx, NewOrderView(env.Order), env.Order.ZoneID); err != nil {
				d.logg.Error(ctx, "broadcast order update failed", err)
			}
		}
	}

	if env.Lifecycle != nil && d.tracker != nil {
		if err := d.tracker.TrackLifecycleEvent(ctx, *env.Lifecycle); err != nil {
			d.logg.Error(d.logg.WithField(ctx, "event_type", string(env.Lifecycle.Type)), "track lifecycle event failed", err)
		}
	}

	if d.notifier == nil {
		return
	}
	for _, n := range env.Notifications {
		if len(n.UserIDs) == 0 {
			continue
		}
		if err := d.notifier.NotifyMany(ctx, n.UserIDs, n.Template, n.Payload); err != nil {
			d.logg.Error(d.logg.WithField(ctx, "template", string(n.Template)), "notify failed", err)
		}
	}
}
