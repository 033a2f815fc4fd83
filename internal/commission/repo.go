package commission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	"github.com/angelmondragon/packdrop-backend/pkg/pagination"
)

// ReportFilter narrows snapshot reads. Zero values mean no filter.
type ReportFilter struct {
	OrderID  *uuid.UUID
	VendorID *uuid.UUID
	DriverID *uuid.UUID
	Source   *enums.CommissionSource
	From     *time.Time
	To       *time.Time
}

// SourceTotals aggregates snapshots of one source.
type SourceTotals struct {
	Count      int64           `json:"count"`
	TotalBase  decimal.Decimal `json:"total_base"`
	TotalValue decimal.Decimal `json:"total_value"`
	TotalNet   decimal.Decimal `json:"total_net"`
}

type sourceRow struct {
	Source     enums.CommissionSource
	Count      int64
	TotalBase  decimal.Decimal
	TotalValue decimal.Decimal
	TotalNet   decimal.Decimal
}

// Repository persists commission snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, snapshot *models.CommissionSnapshot) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.CommissionSnapshot, error)
	List(ctx context.Context, filter ReportFilter, cursor *pagination.Cursor, limit int) ([]models.CommissionSnapshot, error)
	TotalsBySource(ctx context.Context, filter ReportFilter) (map[enums.CommissionSource]SourceTotals, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a snapshot repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, snapshot *models.CommissionSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.CommissionSnapshot, error) {
	var rows []models.CommissionSnapshot
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) List(ctx context.Context, filter ReportFilter, cursor *pagination.Cursor, limit int) ([]models.CommissionSnapshot, error) {
	q := applyFilter(r.db.WithContext(ctx).Model(&models.CommissionSnapshot{}), filter)
	var rows []models.CommissionSnapshot
	err := q.Scopes(pagination.Keyset(cursor, limit)).Find(&rows).Error
	return rows, err
}

func (r *repository) TotalsBySource(ctx context.Context, filter ReportFilter) (map[enums.CommissionSource]SourceTotals, error) {
	var rows []sourceRow
	err := applyFilter(r.db.WithContext(ctx).Model(&models.CommissionSnapshot{}), filter).
		Select(`source,
			COUNT(*) AS count,
			COALESCE(SUM(base_amount), 0) AS total_base,
			COALESCE(SUM(value), 0) AS total_value,
			COALESCE(SUM(net_amount), 0) AS total_net`).
		Group("source").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[enums.CommissionSource]SourceTotals, len(rows))
	for _, row := range rows {
		out[row.Source] = SourceTotals{
			Count:      row.Count,
			TotalBase:  row.TotalBase.Round(2),
			TotalValue: row.TotalValue.Round(2),
			TotalNet:   row.TotalNet.Round(2),
		}
	}
	return out, nil
}

func applyFilter(q *gorm.DB, filter ReportFilter) *gorm.DB {
	if filter.OrderID != nil {
		q = q.Where("order_id = ?", *filter.OrderID)
	}
	if filter.VendorID != nil {
		q = q.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.DriverID != nil {
		q = q.Where("driver_id = ?", *filter.DriverID)
	}
	if filter.Source != nil {
		q = q.Where("source = ?", *filter.Source)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", filter.To.UTC())
	}
	return q
}
