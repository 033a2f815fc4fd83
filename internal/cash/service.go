// Package cash reconciles cash-on-delivery money: drivers report what they
// collected, zone managers confirm receiving it and admins pay managers out.
package cash

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/internal/catalog"
	"github.com/angelmondragon/packdrop-backend/internal/events"
	"github.com/angelmondragon/packdrop-backend/internal/orders"
	"github.com/angelmondragon/packdrop-backend/internal/wallet"
	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/money"
	"github.com/angelmondragon/packdrop-backend/pkg/pagination"
)

// PayoutInput is an admin's payout to a manager for a period. A nil Amount
// pays out everything the manager confirmed in the period.
type PayoutInput struct {
	ManagerID uuid.UUID
	From      time.Time
	To        time.Time
	Amount    *decimal.Decimal
	Note      *string
}

// Report is one page of confirmations plus the totals of the whole filter.
type Report struct {
	Count         int64                                            `json:"count"`
	Total         decimal.Decimal                                  `json:"total"`
	Confirmations *pagination.Page[models.ManagerCashConfirmation] `json:"confirmations"`
}

// Service is the cash reconciliation workflow.
type Service interface {
	ReportCollection(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
	ConfirmReceipt(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.ManagerCashConfirmation, error)
	ConfirmPayout(ctx context.Context, actor auth.Actor, in PayoutInput) (*models.ManagerPayoutConfirmation, error)
	CashOnHand(ctx context.Context, managerID uuid.UUID) (decimal.Decimal, error)
	Report(ctx context.Context, filter ReportFilter, params pagination.Params) (*Report, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	db      txRunner
	repo    Repository
	orders  orders.Repository
	catalog catalog.Service
	ledger  wallet.Ledger
	events  events.Emitter
	now     func() time.Time
}

// NewService wires the cash workflow. clock may be nil.
func NewService(runner txRunner, repo Repository, orderRepo orders.Repository, catalogSvc catalog.Service, ledger wallet.Ledger, emitter events.Emitter, clock func() time.Time) (Service, error) {
	switch {
	case runner == nil:
		return nil, fmt.Errorf("transaction runner required")
	case repo == nil:
		return nil, fmt.Errorf("cash repository required")
	case orderRepo == nil:
		return nil, fmt.Errorf("orders repository required")
	case catalogSvc == nil:
		return nil, fmt.Errorf("catalog service required")
	case ledger == nil:
		return nil, fmt.Errorf("wallet ledger required")
	case emitter == nil:
		return nil, fmt.Errorf("event emitter required")
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{db: runner, repo: repo, orders: orderRepo, catalog: catalogSvc, ledger: ledger, events: emitter, now: clock}, nil
}

func (s *service) loadOrder(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.WithTx(tx).FindForUpdate(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if !order.IsCash() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not a cash order")
	}
	if order.Status != enums.OrderStatusCompleted {
		return nil, pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "order is %s", order.Status)
	}
	return order, nil
}

func (s *service) saveOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	ok, err := s.orders.WithTx(tx).Save(ctx, order, order.Status)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save order")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order was modified concurrently")
	}
	return nil
}

// ReportCollection records that the assigned driver holds the order's cash.
func (s *service) ReportCollection(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	if !actor.Is(enums.ActorRoleDriver) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only drivers report cash collection")
	}

	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.loadOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.DriverID == nil || *order.DriverID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this driver")
		}
		if order.CashReportedAt != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "cash already reported")
		}
		now := s.now()
		order.CashReportedAt = &now
		return s.saveOrder(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	status := order.Status
	s.events.Emit(ctx, events.Envelope{
		Order: order,
		Lifecycle: &events.LifecycleEvent{
			OrderID:        order.ID,
			Type:           enums.LifecycleCashReported,
			PreviousStatus: &status,
			NewStatus:      status,
			ActorID:        actor.IDPtr(),
			ActorRole:      actor.Role,
			Metadata:       map[string]any{"amount": order.OrderTotal.StringFixed(2)},
			OccurredAt:     *order.CashReportedAt,
		},
	})
	return order, nil
}

// ConfirmReceipt is the zone manager acknowledging the driver's handover. The
// driver's wallet is credited by the amount, paying their cash debt down.
func (s *service) ConfirmReceipt(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.ManagerCashConfirmation, error) {
	if !actor.Is(enums.ActorRoleManager) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only zone managers confirm cash")
	}

	var (
		order        *models.Order
		confirmation *models.ManagerCashConfirmation
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.loadOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		ok, err := s.catalog.ManagesZone(ctx, tx, actor.UserID, order.ZoneID)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeForbidden, "zone is managed by someone else")
		}
		if order.CashReportedAt == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "driver has not reported the cash yet")
		}
		if order.DriverID == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "order has no driver")
		}

		repo := s.repo.WithTx(tx)
		if _, err := repo.FindConfirmationByOrder(ctx, order.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "cash already confirmed")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cash confirmation")
		}

		confirmation = &models.ManagerCashConfirmation{
			OrderID:     order.ID,
			ManagerID:   actor.UserID,
			DriverID:    *order.DriverID,
			ZoneID:      order.ZoneID,
			Amount:      money.Round2(order.OrderTotal),
			ConfirmedAt: s.now(),
		}
		if err := repo.CreateConfirmation(ctx, confirmation); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeValidation, "cash already confirmed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cash confirmation")
		}
		if _, err := s.ledger.Credit(ctx, tx, wallet.Entry{
			OwnerType: enums.WalletOwnerDriver,
			OwnerID:   *order.DriverID,
			OrderID:   &order.ID,
			Type:      enums.WalletTxCashHandover,
			Amount:    confirmation.Amount,
		}); err != nil {
			return err
		}
		order.PaymentStatus = enums.PaymentStatusPaid
		return s.saveOrder(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	status := order.Status
	s.events.Emit(ctx, events.Envelope{
		Order: order,
		Lifecycle: &events.LifecycleEvent{
			OrderID:        order.ID,
			Type:           enums.LifecycleCashConfirmed,
			PreviousStatus: &status,
			NewStatus:      status,
			ActorID:        actor.IDPtr(),
			ActorRole:      actor.Role,
			Metadata:       map[string]any{"amount": confirmation.Amount.StringFixed(2)},
			OccurredAt:     confirmation.ConfirmedAt,
		},
		Notifications: []events.Notification{{
			UserIDs:  []uuid.UUID{confirmation.DriverID},
			Template: enums.NotificationCashConfirmed,
			Payload:  map[string]any{"order_id": order.ID.String(), "amount": confirmation.Amount.StringFixed(2)},
		}},
	})
	return confirmation, nil
}

// ConfirmPayout records an admin paying a manager. The amount may not exceed
// the manager's cash on hand.
func (s *service) ConfirmPayout(ctx context.Context, actor auth.Actor, in PayoutInput) (*models.ManagerPayoutConfirmation, error) {
	if !actor.Is(enums.ActorRoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins confirm payouts")
	}
	if in.ManagerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "manager id required")
	}
	if !in.To.After(in.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout period end must follow its start")
	}
	if in.Note != nil {
		note := strings.TrimSpace(*in.Note)
		in.Note = &note
	}

	var payout *models.ManagerPayoutConfirmation
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		amount := decimal.Zero
		if in.Amount != nil {
			amount = money.Round2(*in.Amount)
		} else {
			from, to := in.From, in.To
			total, _, err := repo.SumConfirmations(ctx, ReportFilter{ManagerID: &in.ManagerID, From: &from, To: &to})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum cash confirmations")
			}
			amount = total
		}
		if !amount.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "payout amount must be positive")
		}

		onHand, err := s.onHand(ctx, repo, in.ManagerID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(onHand) {
			return pkgerrors.New(pkgerrors.CodeValidation, "payout exceeds the manager's cash on hand").
				WithDetails(map[string]any{"amount": amount.StringFixed(2), "cash_on_hand": onHand.StringFixed(2)})
		}

		payout = &models.ManagerPayoutConfirmation{
			ManagerID:   in.ManagerID,
			AdminID:     actor.UserID,
			PeriodStart: in.From.UTC(),
			PeriodEnd:   in.To.UTC(),
			Amount:      amount,
			Note:        in.Note,
			ConfirmedAt: s.now(),
		}
		if err := repo.CreatePayout(ctx, payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payout confirmation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Emit(ctx, events.Envelope{
		Notifications: []events.Notification{{
			UserIDs:  []uuid.UUID{payout.ManagerID},
			Template: enums.NotificationPayoutConfirmed,
			Payload:  map[string]any{"payout_id": payout.ID.String(), "amount": payout.Amount.StringFixed(2)},
		}},
	})
	return payout, nil
}

// CashOnHand is everything the manager confirmed minus everything paid out.
func (s *service) CashOnHand(ctx context.Context, managerID uuid.UUID) (decimal.Decimal, error) {
	if managerID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "manager id required")
	}
	return s.onHand(ctx, s.repo, managerID)
}

func (s *service) onHand(ctx context.Context, repo Repository, managerID uuid.UUID) (decimal.Decimal, error) {
	confirmed, _, err := repo.SumConfirmations(ctx, ReportFilter{ManagerID: &managerID})
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum cash confirmations")
	}
	paid, err := repo.SumPayouts(ctx, managerID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum payouts")
	}
	return confirmed.Sub(paid), nil
}

func (s *service) Report(ctx context.Context, filter ReportFilter, params pagination.Params) (*Report, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "report range end precedes start")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	total, count, err := s.repo.SumConfirmations(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum cash confirmations")
	}
	rows, err := s.repo.ListConfirmations(ctx, filter, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cash confirmations")
	}
	page := pagination.Trim(rows, params.Limit, func(row models.ManagerCashConfirmation) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.ConfirmedAt, ID: row.ID}
	})
	return &Report{Count: count, Total: total, Confirmations: &page}, nil
}
