package commission

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/db"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/pagination"
)

// Summary aggregates snapshots matching a report filter.
type Summary struct {
	Count      int64                                   `json:"count"`
	TotalBase  decimal.Decimal                         `json:"total_base"`
	TotalValue decimal.Decimal                         `json:"total_value"`
	TotalNet   decimal.Decimal                         `json:"total_net"`
	BySource   map[enums.CommissionSource]SourceTotals `json:"by_source"`
}

// Service records and reports commission applications.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, snapshot *models.CommissionSnapshot) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.CommissionSnapshot, error)
	Summarize(ctx context.Context, filter ReportFilter) (*Summary, error)
	ListSnapshots(ctx context.Context, filter ReportFilter, params pagination.Params) (*pagination.Page[models.CommissionSnapshot], error)
}

type service struct {
	repo Repository
}

// NewService wires the commission ledger.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	return &service{repo: repo}, nil
}

// Record inserts an immutable snapshot. A second snapshot for the same order
// and source is rejected.
func (s *service) Record(ctx context.Context, tx *gorm.DB, snapshot *models.CommissionSnapshot) error {
	if snapshot == nil || snapshot.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !snapshot.Source.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid commission source %q", snapshot.Source)
	}
	if snapshot.Source == enums.CommissionSourceDriver && snapshot.DriverID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "driver commission requires a driver")
	}

	if err := s.repo.WithTx(tx).Create(ctx, snapshot); err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "%s commission already recorded for order", snapshot.Source)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record commission snapshot")
	}
	return nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.CommissionSnapshot, error) {
	rows, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list order commissions")
	}
	return rows, nil
}

func (s *service) Summarize(ctx context.Context, filter ReportFilter) (*Summary, error) {
	if err := validateRange(filter); err != nil {
		return nil, err
	}
	bySource, err := s.repo.TotalsBySource(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summarize commissions")
	}

	summary := &Summary{BySource: bySource}
	for _, totals := range bySource {
		summary.Count += totals.Count
		summary.TotalBase = summary.TotalBase.Add(totals.TotalBase)
		summary.TotalValue = summary.TotalValue.Add(totals.TotalValue)
		summary.TotalNet = summary.TotalNet.Add(totals.TotalNet)
	}
	return summary, nil
}

func (s *service) ListSnapshots(ctx context.Context, filter ReportFilter, params pagination.Params) (*pagination.Page[models.CommissionSnapshot], error) {
	if err := validateRange(filter); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, filter, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list commission snapshots")
	}
	page := pagination.Trim(rows, params.Limit, func(row models.CommissionSnapshot) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return &page, nil
}

func validateRange(filter ReportFilter) error {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return pkgerrors.New(pkgerrors.CodeValidation, "report range end precedes start")
	}
	return nil
}
