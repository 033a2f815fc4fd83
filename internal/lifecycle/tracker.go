// Package lifecycle records order transitions for analytics: a row in
// order_lifecycle_events and, when configured, a Pub/Sub message.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/internal/events"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

// TopicPublisher sends one encoded event to the analytics topic.
type TopicPublisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) error
}

// Message attributes set on every published event.
const (
	AttrEventType = "event_type"
	AttrOrderID   = "order_id"
)

// Tracker implements events.LifecycleTracker.
type Tracker struct {
	db    *gorm.DB
	topic TopicPublisher
	logg  *logger.Logger
}

// NewTracker wires the tracker. topic may be nil to keep events local.
func NewTracker(db *gorm.DB, topic TopicPublisher, logg *logger.Logger) (*Tracker, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Tracker{db: db, topic: topic, logg: logg}, nil
}

type wireEvent struct {
	ID             uuid.UUID       `json:"id"`
	OrderID        uuid.UUID       `json:"order_id"`
	EventType      string          `json:"event_type"`
	PreviousStatus *string         `json:"previous_status,omitempty"`
	NewStatus      string          `json:"new_status"`
	ActorID        *uuid.UUID      `json:"actor_id,omitempty"`
	ActorRole      string          `json:"actor_role"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	OccurredAt     string          `json:"occurred_at"`
}

// TrackLifecycleEvent stores the event and mirrors it to the topic. A topic
// failure is returned after the row is written.
func (t *Tracker) TrackLifecycleEvent(ctx context.Context, event events.LifecycleEvent) error {
	row := models.OrderLifecycleEvent{
		OrderID:        event.OrderID,
		EventType:      event.Type,
		PreviousStatus: event.PreviousStatus,
		NewStatus:      event.NewStatus,
		ActorID:        event.ActorID,
		ActorRole:      event.ActorRole,
		OccurredAt:     event.OccurredAt.UTC(),
	}
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("encode lifecycle metadata: %w", err)
		}
		row.Metadata = raw
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("store lifecycle event: %w", err)
	}

	if t.topic == nil {
		return nil
	}
	payload, err := json.Marshal(toWire(row))
	if err != nil {
		return fmt.Errorf("encode lifecycle event: %w", err)
	}
	attrs := map[string]string{
		AttrEventType: string(row.EventType),
		AttrOrderID:   row.OrderID.String(),
	}
	if err := t.topic.Publish(ctx, payload, attrs); err != nil {
		return fmt.Errorf("publish lifecycle event: %w", err)
	}
	t.logg.Debug(t.logg.WithField(ctx, "event_type", string(row.EventType)), "lifecycle event published")
	return nil
}

func toWire(row models.OrderLifecycleEvent) wireEvent {
	w := wireEvent{
		ID:         row.ID,
		OrderID:    row.OrderID,
		EventType:  string(row.EventType),
		NewStatus:  string(row.NewStatus),
		ActorID:    row.ActorID,
		ActorRole:  string(row.ActorRole),
		Metadata:   row.Metadata,
		OccurredAt: row.OccurredAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if row.PreviousStatus != nil {
		prev := string(*row.PreviousStatus)
		w.PreviousStatus = &prev
	}
	return w
}
