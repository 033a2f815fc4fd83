package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
)

// HoldRepository persists held balances.
type HoldRepository interface {
	WithTx(tx *gorm.DB) HoldRepository
	Create(ctx context.Context, hold *models.HeldBalance) error
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.HeldBalance, error)
	Save(ctx context.Context, hold *models.HeldBalance) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.HeldBalance, error)
}

type holdRepository struct {
	db *gorm.DB
}

// NewHoldRepository returns a held balance repository bound to db.
func NewHoldRepository(db *gorm.DB) HoldRepository {
	return &holdRepository{db: db}
}

func (r *holdRepository) WithTx(tx *gorm.DB) HoldRepository {
	if tx == nil {
		return r
	}
	return &holdRepository{db: tx}
}

func (r *holdRepository) Create(ctx context.Context, hold *models.HeldBalance) error {
	return r.db.WithContext(ctx).Create(hold).Error
}

func (r *holdRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.HeldBalance, error) {
	var hold models.HeldBalance
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&hold).Error; err != nil {
		return nil, err
	}
	return &hold, nil
}

func (r *holdRepository) Save(ctx context.Context, hold *models.HeldBalance) error {
	return r.db.WithContext(ctx).Save(hold).Error
}

// ListDue returns HELD balances past their auto-release date whose order has
// been delivered, oldest first.
func (r *holdRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.HeldBalance, error) {
	var holds []models.HeldBalance
	err := r.db.WithContext(ctx).
		Joins("JOIN orders ON orders.id = held_balances.order_id").
		Where("held_balances.status = ?", enums.HeldBalanceStatusHeld).
		Where("held_balances.auto_release_date <= ?", now.UTC()).
		Where("orders.status = ?", enums.OrderStatusCompleted).
		Order("held_balances.auto_release_date ASC").
		Limit(limit).
		Find(&holds).Error
	return holds, err
}
