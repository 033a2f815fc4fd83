package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/enums"
)

// OrderLifecycleEvent is the analytics trail of order transitions. Rows are
// written after the business transaction commits and may be missing if the
// sink failed.
type OrderLifecycleEvent struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID                `gorm:"column:order_id;type:uuid;not null;index"`
	EventType      enums.LifecycleEventType `gorm:"column:event_type;type:text;not null"`
	PreviousStatus *enums.OrderStatus       `gorm:"column:previous_status;type:text"`
	NewStatus      enums.OrderStatus        `gorm:"column:new_status;type:text;not null"`
	ActorID        *uuid.UUID               `gorm:"column:actor_id;type:uuid"`
	ActorRole      enums.ActorRole          `gorm:"column:actor_role;type:text;not null"`
	Metadata       json.RawMessage          `gorm:"column:metadata;type:jsonb"`
	OccurredAt     time.Time                `gorm:"column:occurred_at;not null;index"`
}

func (e *OrderLifecycleEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
