// Package events defines the post-commit side effects of order transitions
// and fans them out to the notification, realtime and analytics sinks.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
)

// LifecycleEvent is one analytics record of an order transition.
type LifecycleEvent struct {
	OrderID        uuid.UUID
	Type           enums.LifecycleEventType
	PreviousStatus *enums.OrderStatus
	NewStatus      enums.OrderStatus
	ActorID        *uuid.UUID
	ActorRole      enums.ActorRole
	Metadata       map[string]any
	OccurredAt     time.Time
}

// Notification addresses one template to a set of users.
type Notification struct {
	UserIDs  []uuid.UUID
	Template enums.NotificationTemplate
	Payload  map[string]any
}

// Envelope is everything a committed operation wants emitted. A nil Order
// skips the broadcast and a nil Lifecycle skips tracking.
type Envelope struct {
	Order         *models.Order
	Lifecycle     *LifecycleEvent
	Notifications []Notification
}

// Notifier stores in-app notifications.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, template enums.NotificationTemplate, payload map[string]any) error
	NotifyMany(ctx context.Context, userIDs []uuid.UUID, template enums.NotificationTemplate, payload map[string]any) error
}

// Broadcaster pushes order snapshots to realtime rooms.
type Broadcaster interface {
	BroadcastOrderUpdate(ctx context.Context, view OrderView, zoneID uuid.UUID) error
}

// LifecycleTracker records transition analytics.
type LifecycleTracker interface {
	TrackLifecycleEvent(ctx context.Context, event LifecycleEvent) error
}

// Emitter is what business services depend on to publish an envelope.
type Emitter interface {
	Emit(ctx context.Context, env Envelope)
}
