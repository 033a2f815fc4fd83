package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/enums"
)

// Notification stores an in-app notification for one user.
type Notification struct {
	ID        uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID                  `gorm:"column:user_id;type:uuid;not null;index"`
	Template  enums.NotificationTemplate `gorm:"column:template;type:text;not null"`
	Payload   json.RawMessage            `gorm:"column:payload;type:jsonb"`
	ReadAt    *time.Time                 `gorm:"column:read_at"`
	CreatedAt time.Time                  `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
