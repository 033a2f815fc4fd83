package cash

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/pagination"
)

// ReportFilter narrows confirmation reads. Nil fields do not filter; the
// range is [From, To).
type ReportFilter struct {
	ManagerID *uuid.UUID
	DriverID  *uuid.UUID
	From      *time.Time
	To        *time.Time
}

// Repository persists manager cash and payout confirmations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateConfirmation(ctx context.Context, c *models.ManagerCashConfirmation) error
	FindConfirmationByOrder(ctx context.Context, orderID uuid.UUID) (*models.ManagerCashConfirmation, error)
	SumConfirmations(ctx context.Context, filter ReportFilter) (decimal.Decimal, int64, error)
	ListConfirmations(ctx context.Context, filter ReportFilter, cursor *pagination.Cursor, limit int) ([]models.ManagerCashConfirmation, error)
	CreatePayout(ctx context.Context, p *models.ManagerPayoutConfirmation) error
	SumPayouts(ctx context.Context, managerID uuid.UUID) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a cash repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateConfirmation(ctx context.Context, c *models.ManagerCashConfirmation) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *repository) FindConfirmationByOrder(ctx context.Context, orderID uuid.UUID) (*models.ManagerCashConfirmation, error) {
	var c models.ManagerCashConfirmation
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

type sumRow struct {
	Total decimal.Decimal
	Count int64
}

func (r *repository) SumConfirmations(ctx context.Context, filter ReportFilter) (decimal.Decimal, int64, error) {
	var row sumRow
	err := applyFilter(r.db.WithContext(ctx).Model(&models.ManagerCashConfirmation{}), filter).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Scan(&row).Error
	return row.Total.Round(2), row.Count, err
}

func (r *repository) ListConfirmations(ctx context.Context, filter ReportFilter, cursor *pagination.Cursor, limit int) ([]models.ManagerCashConfirmation, error) {
	q := applyFilter(r.db.WithContext(ctx).Model(&models.ManagerCashConfirmation{}), filter)
	if cursor != nil {
		q = q.Where("(confirmed_at < ? OR (confirmed_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.ManagerCashConfirmation
	err := q.Order("confirmed_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (r *repository) CreatePayout(ctx context.Context, p *models.ManagerPayoutConfirmation) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repository) SumPayouts(ctx context.Context, managerID uuid.UUID) (decimal.Decimal, error) {
	var row sumRow
	err := r.db.WithContext(ctx).
		Model(&models.ManagerPayoutConfirmation{}).
		Where("manager_id = ?", managerID).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Scan(&row).Error
	return row.Total.Round(2), err
}

func applyFilter(q *gorm.DB, filter ReportFilter) *gorm.DB {
	if filter.ManagerID != nil {
		q = q.Where("manager_id = ?", *filter.ManagerID)
	}
	if filter.DriverID != nil {
		q = q.Where("driver_id = ?", *filter.DriverID)
	}
	if filter.From != nil {
		q = q.Where("confirmed_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("confirmed_at < ?", filter.To.UTC())
	}
	return q
}
