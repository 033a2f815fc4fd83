package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/pagination"
)

// Repository persists notification rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateMany(ctx context.Context, rows []models.Notification) error
	List(ctx context.Context, q inboxQuery) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (markOutcome, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
}

type inboxQuery struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type markOutcome int

const (
	markMissing markOutcome = iota
	markAlreadyRead
	markUpdated
)

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func inbox(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Model(&models.Notification{}).Where("user_id = ?", userID)
	}
}

func unread(db *gorm.DB) *gorm.DB {
	return db.Where("read_at IS NULL")
}

func (r *gormRepository) CreateMany(ctx context.Context, rows []models.Notification) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// List returns the inbox newest first, keyset-paged on (created_at, id).
func (r *gormRepository) List(ctx context.Context, q inboxQuery) ([]models.Notification, error) {
	tx := r.db.WithContext(ctx).Scopes(inbox(q.UserID))
	if q.UnreadOnly {
		tx = tx.Scopes(unread)
	}
	var rows []models.Notification
	err := tx.Scopes(pagination.Keyset(q.Cursor, q.Limit)).Find(&rows).Error
	return rows, err
}

// MarkRead keeps the first read time; marking twice is not an error.
func (r *gormRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (markOutcome, error) {
	var row models.Notification
	err := r.db.WithContext(ctx).Scopes(inbox(userID)).Where("id = ?", notificationID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return markMissing, nil
	}
	if err != nil {
		return markMissing, err
	}
	if row.ReadAt != nil {
		return markAlreadyRead, nil
	}
	if err := r.db.WithContext(ctx).Model(&row).Scopes(unread).UpdateColumn("read_at", now).Error; err != nil {
		return markMissing, err
	}
	return markUpdated, nil
}

func (r *gormRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Scopes(inbox(userID), unread).UpdateColumn("read_at", now)
	return res.RowsAffected, res.Error
}

func (r *gormRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Scopes(inbox(userID), unread).Count(&n).Error
	return n, err
}
