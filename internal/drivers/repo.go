package drivers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
)

// Repository persists driver profiles.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, userID uuid.UUID) (*models.DriverProfile, error)
	FindMany(ctx context.Context, userIDs []uuid.UUID) ([]models.DriverProfile, error)
	ClaimIfFree(ctx context.Context, userID uuid.UUID) (int64, error)
	SetStatus(ctx context.Context, userID uuid.UUID, status enums.DriverStatus) error
	ListByZone(ctx context.Context, zoneID uuid.UUID, status *enums.DriverStatus) ([]models.DriverProfile, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a driver profile repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Find(ctx context.Context, userID uuid.UUID) (*models.DriverProfile, error) {
	var profile models.DriverProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) FindMany(ctx context.Context, userIDs []uuid.UUID) ([]models.DriverProfile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var profiles []models.DriverProfile
	err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error
	return profiles, err
}

// ClaimIfFree flips the driver to BUSY in a single conditional statement and
// returns the number of rows changed.
func (r *repository) ClaimIfFree(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DriverProfile{}).
		Where("user_id = ? AND status <> ?", userID, enums.DriverStatusBusy).
		Updates(map[string]any{"status": enums.DriverStatusBusy, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

func (r *repository) SetStatus(ctx context.Context, userID uuid.UUID, status enums.DriverStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.DriverProfile{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) ListByZone(ctx context.Context, zoneID uuid.UUID, status *enums.DriverStatus) ([]models.DriverProfile, error) {
	q := r.db.WithContext(ctx).Where("zone_id = ?", zoneID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var profiles []models.DriverProfile
	err := q.Order("user_id ASC").Find(&profiles).Error
	return profiles, err
}
