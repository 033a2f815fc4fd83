// Package protection is the customer's side of wallet escrow: confirming
// receipt, disputing, inspecting the hold and reading the delivery code. It
// also runs the auto-release of holds nobody acted on.
package protection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/internal/catalog"
	"github.com/angelmondragon/packdrop-backend/internal/events"
	"github.com/angelmondragon/packdrop-backend/internal/orders"
	"github.com/angelmondragon/packdrop-backend/internal/wallet"
	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

// Status describes an order's held balance as the customer sees it.
type Status struct {
	OrderID         uuid.UUID               `json:"order_id"`
	HoldStatus      enums.HeldBalanceStatus `json:"hold_status"`
	TotalAmount     decimal.Decimal         `json:"total_amount"`
	VendorPortion   decimal.Decimal         `json:"vendor_portion"`
	DriverPortion   decimal.Decimal         `json:"driver_portion"`
	AdminPortion    decimal.Decimal         `json:"admin_portion"`
	AutoReleaseDate time.Time               `json:"auto_release_date"`
	ReleasedAt      *time.Time              `json:"released_at,omitempty"`
	DisputeReason   *string                 `json:"dispute_reason,omitempty"`
	CanConfirm      bool                    `json:"can_confirm"`
	CanDispute      bool                    `json:"can_dispute"`
}

// Service exposes buyer protection.
type Service interface {
	ConfirmDeliveryReceipt(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.HeldBalance, error)
	Dispute(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*models.HeldBalance, error)
	GetStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*Status, error)
	GetDeliveryOTP(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (string, error)
	ReleaseDue(ctx context.Context, now time.Time, limit int) (int, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Deps are the collaborators of the protection service. AdminIDs receive
// dispute notifications.
type Deps struct {
	DB       txRunner
	Orders   orders.Repository
	Catalog  catalog.Service
	Escrow   wallet.Escrow
	Events   events.Emitter
	AdminIDs []uuid.UUID
	Logger   *logger.Logger
	Clock    func() time.Time
}

type service struct {
	db       txRunner
	orders   orders.Repository
	catalog  catalog.Service
	escrow   wallet.Escrow
	events   events.Emitter
	adminIDs []uuid.UUID
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(d Deps) (Service, error) {
	switch {
	case d.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case d.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case d.Catalog == nil:
		return nil, fmt.Errorf("catalog service required")
	case d.Escrow == nil:
		return nil, fmt.Errorf("escrow required")
	case d.Events == nil:
		return nil, fmt.Errorf("event emitter required")
	}
	logg := d.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	clock := d.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		db:       d.DB,
		orders:   d.Orders,
		catalog:  d.Catalog,
		escrow:   d.Escrow,
		events:   d.Events,
		adminIDs: d.AdminIDs,
		logg:     logg,
		now:      clock,
	}, nil
}

// ownWalletOrder loads the order and checks it is the customer's wallet order.
func (s *service) ownWalletOrder(ctx context.Context, tx *gorm.DB, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(enums.ActorRoleCustomer) || order.CustomerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	if !order.IsWallet() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order was not paid from the wallet")
	}
	return order, nil
}

func (s *service) loadOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.WithTx(tx).Find(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

// ConfirmDeliveryReceipt releases a completed order's hold to the parties.
func (s *service) ConfirmDeliveryReceipt(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.HeldBalance, error) {
	var (
		order *models.Order
		hold  *models.HeldBalance
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.ownWalletOrder(ctx, tx, actor, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusCompleted {
			return pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "order is %s", order.Status)
		}
		hold, err = s.escrow.Release(ctx, tx, order, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emitReleased(ctx, actor, order, "customer_confirmed")
	return hold, nil
}

// Dispute freezes a completed order's hold and alerts the zone manager and
// the admins. Orders still in flight need the hold HELD to split it at pickup.
func (s *service) Dispute(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*models.HeldBalance, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute reason required")
	}

	var (
		order   *models.Order
		hold    *models.HeldBalance
		manager uuid.UUID
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.ownWalletOrder(ctx, tx, actor, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusCompleted {
			return pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "order is %s", order.Status)
		}
		hold, err = s.escrow.Dispute(ctx, tx, order, reason, s.now())
		if err != nil {
			return err
		}
		switch {
		case order.ManagerID != nil:
			manager = *order.ManagerID
		default:
			if zone, err := s.catalog.Zone(ctx, tx, order.ZoneID); err == nil && zone.ManagerID != nil {
				manager = *zone.ManagerID
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recipients := append([]uuid.UUID(nil), s.adminIDs...)
	if manager != uuid.Nil {
		recipients = append(recipients, manager)
	}
	status := order.Status
	s.events.Emit(ctx, events.Envelope{
		Lifecycle: &events.LifecycleEvent{
			OrderID:        order.ID,
			Type:           enums.LifecycleDisputeOpened,
			PreviousStatus: &status,
			NewStatus:      status,
			ActorID:        actor.IDPtr(),
			ActorRole:      actor.Role,
			Metadata:       map[string]any{"reason": reason},
			OccurredAt:     *hold.DisputedAt,
		},
		Notifications: []events.Notification{{
			UserIDs:  recipients,
			Template: enums.NotificationDisputeOpened,
			Payload:  map[string]any{"order_id": order.ID.String(), "reason": reason},
		}},
	})
	return hold, nil
}

func (s *service) GetStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*Status, error) {
	order, err := s.ownWalletOrder(ctx, nil, actor, orderID)
	if err != nil {
		return nil, err
	}
	hold, err := s.escrow.FindByOrder(ctx, nil, order.ID)
	if err != nil {
		return nil, err
	}
	settleable := hold.Status == enums.HeldBalanceStatusHeld && order.Status == enums.OrderStatusCompleted
	return &Status{
		OrderID:         order.ID,
		HoldStatus:      hold.Status,
		TotalAmount:     hold.TotalAmount,
		VendorPortion:   hold.VendorPortion,
		DriverPortion:   hold.DriverPortion,
		AdminPortion:    hold.AdminPortion,
		AutoReleaseDate: hold.AutoReleaseDate,
		ReleasedAt:      hold.ReleasedAt,
		DisputeReason:   hold.DisputeReason,
		CanConfirm:      settleable,
		CanDispute:      settleable,
	}, nil
}

var otpVisible = map[enums.OrderStatus]bool{
	enums.OrderStatusDriverAccepted: true,
	enums.OrderStatusShipped:        true,
	enums.OrderStatusInTransit:      true,
}

// GetDeliveryOTP returns the code the customer hands the driver at the door.
func (s *service) GetDeliveryOTP(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (string, error) {
	order, err := s.ownWalletOrder(ctx, nil, actor, orderID)
	if err != nil {
		return "", err
	}
	if !otpVisible[order.Status] {
		return "", pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "order is %s", order.Status)
	}
	if order.DeliveryOTP == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "delivery code not issued yet")
	}
	return *order.DeliveryOTP, nil
}

// ReleaseDue auto-releases every due hold of a completed order, each in its
// own transaction. Failures are collected and the batch continues.
func (s *service) ReleaseDue(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "limit must be positive")
	}
	holds, err := s.escrow.ListDue(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	var (
		released int
		errs     error
	)
	for _, hold := range holds {
		var order *models.Order
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			order, err = s.loadOrder(ctx, tx, hold.OrderID)
			if err != nil {
				return err
			}
			_, err = s.escrow.Release(ctx, tx, order, now)
			return err
		})
		if err != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, hold.OrderID.String()), "auto-release failed", err)
			errs = multierr.Append(errs, fmt.Errorf("release order %s: %w", hold.OrderID, err))
			continue
		}
		released++
		s.emitReleased(ctx, auth.System(), order, "auto_release")
	}
	return released, errs
}

func (s *service) emitReleased(ctx context.Context, actor auth.Actor, order *models.Order, trigger string) {
	recipients := []uuid.UUID{order.CustomerID}
	if vendor, err := s.catalog.Vendor(ctx, nil, order.VendorID); err == nil {
		recipients = append(recipients, vendor.UserID)
	}
	if order.DriverID != nil {
		recipients = append(recipients, *order.DriverID)
	}
	status := order.Status
	s.events.Emit(ctx, events.Envelope{
		Lifecycle: &events.LifecycleEvent{
			OrderID:        order.ID,
			Type:           enums.LifecycleFundsReleased,
			PreviousStatus: &status,
			NewStatus:      status,
			ActorID:        actor.IDPtr(),
			ActorRole:      actor.Role,
			Metadata:       map[string]any{"trigger": trigger},
			OccurredAt:     s.now(),
		},
		Notifications: []events.Notification{{
			UserIDs:  recipients,
			Template: enums.NotificationFundsReleased,
			Payload:  map[string]any{"order_id": order.ID.String()},
		}},
	})
}
