package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/money"
)

// Escrow manages the held balance of prepaid wallet orders.
type Escrow interface {
	Open(ctx context.Context, tx *gorm.DB, order *models.Order, autoRelease time.Time) (*models.HeldBalance, error)
	Split(ctx context.Context, tx *gorm.DB, order *models.Order, autoRelease time.Time) (*models.HeldBalance, error)
	Release(ctx context.Context, tx *gorm.DB, order *models.Order, now time.Time) (*models.HeldBalance, error)
	Refund(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.HeldBalance, error)
	Dispute(ctx context.Context, tx *gorm.DB, order *models.Order, reason string, now time.Time) (*models.HeldBalance, error)
	FindByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.HeldBalance, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.HeldBalance, error)
}

type escrow struct {
	holds  HoldRepository
	ledger Ledger
}

// NewEscrow wires held balance handling over the ledger.
func NewEscrow(holds HoldRepository, ledger Ledger) (Escrow, error) {
	if holds == nil {
		return nil, fmt.Errorf("hold repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("wallet ledger required")
	}
	return &escrow{holds: holds, ledger: ledger}, nil
}

type party struct {
	ownerType enums.WalletOwnerType
	ownerID   uuid.UUID
	amount    decimal.Decimal
}

func (p party) entry(order *models.Order, typ enums.WalletTransactionType) Entry {
	return Entry{OwnerType: p.ownerType, OwnerID: p.ownerID, OrderID: &order.ID, Type: typ, Amount: p.amount}
}

// parties lists the wallets sharing a split hold. The vendor wallet is keyed
// by vendor id, the driver wallet by the driver's user id.
func (e *escrow) parties(order *models.Order, hold *models.HeldBalance) []party {
	out := []party{
		{ownerType: enums.WalletOwnerVendor, ownerID: order.VendorID, amount: hold.VendorPortion},
		{ownerType: enums.WalletOwnerPlatform, ownerID: models.PlatformOwnerID, amount: hold.AdminPortion},
	}
	if order.DriverID != nil {
		out = append(out, party{ownerType: enums.WalletOwnerDriver, ownerID: *order.DriverID, amount: hold.DriverPortion})
	}
	return out
}

// Open debits the customer for the order total and escrows it. The whole
// merchandise base is provisionally attributed to the vendor until pickup
// splits the hold.
func (e *escrow) Open(ctx context.Context, tx *gorm.DB, order *models.Order, autoRelease time.Time) (*models.HeldBalance, error) {
	if _, err := e.ledger.Debit(ctx, tx, Entry{
		OwnerType:    enums.WalletOwnerCustomer,
		OwnerID:      order.CustomerID,
		OrderID:      &order.ID,
		Type:         enums.WalletTxOrderPayment,
		Amount:       order.OrderTotal,
		RequireFunds: true,
	}); err != nil {
		return nil, err
	}

	hold := &models.HeldBalance{
		OrderID:         order.ID,
		CustomerID:      order.CustomerID,
		TotalAmount:     order.OrderTotal,
		VendorPortion:   order.OrderSubtotal.Sub(order.DiscountAmount),
		DriverPortion:   money.Zero,
		AdminPortion:    money.Zero,
		Status:          enums.HeldBalanceStatusHeld,
		AutoReleaseDate: autoRelease.UTC(),
	}
	if err := e.holds.WithTx(tx).Create(ctx, hold); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create held balance")
	}
	return hold, nil
}

// Split sets the final portions from the order's applied commissions, credits
// each party's pending balance and pushes the auto-release date out.
func (e *escrow) Split(ctx context.Context, tx *gorm.DB, order *models.Order, autoRelease time.Time) (*models.HeldBalance, error) {
	hold, err := e.FindByOrder(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}
	if hold.Status != enums.HeldBalanceStatusHeld {
		return nil, pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "held balance is %s", hold.Status)
	}
	if hold.Credited {
		return hold, nil
	}
	if order.DriverID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no driver")
	}

	hold.VendorPortion = order.VendorNet
	hold.DriverPortion = order.DriverNet.Add(order.TipAmount)
	hold.AdminPortion = order.PlatformTotalCommission
	hold.Credited = true
	hold.AutoReleaseDate = autoRelease.UTC()

	for _, p := range e.parties(order, hold) {
		if _, err := e.ledger.CreditPending(ctx, tx, p.entry(order, enums.WalletTxPendingCredit)); err != nil {
			return nil, err
		}
	}
	if err := e.holds.WithTx(tx).Save(ctx, hold); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save held balance")
	}
	return hold, nil
}

// Release moves each party's pending portion into its spendable balance.
func (e *escrow) Release(ctx context.Context, tx *gorm.DB, order *models.Order, now time.Time) (*models.HeldBalance, error) {
	hold, err := e.FindByOrder(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}
	if hold.Status != enums.HeldBalanceStatusHeld {
		return nil, pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "held balance is %s", hold.Status)
	}
	if !hold.Credited {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "held balance has not been split")
	}

	for _, p := range e.parties(order, hold) {
		if _, err := e.ledger.ReleasePending(ctx, tx, p.entry(order, enums.WalletTxPendingRelease)); err != nil {
			return nil, err
		}
	}

	released := now.UTC()
	hold.Status = enums.HeldBalanceStatusReleased
	hold.ReleasedAt = &released
	if err := e.holds.WithTx(tx).Save(ctx, hold); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save held balance")
	}
	return hold, nil
}

// Refund returns the total to the customer and, when pickup already credited
// the parties, reverses their pending credits.
func (e *escrow) Refund(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.HeldBalance, error) {
	hold, err := e.FindByOrder(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}
	if hold.Status != enums.HeldBalanceStatusHeld && hold.Status != enums.HeldBalanceStatusDisputed {
		return nil, pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "held balance is %s", hold.Status)
	}

	if _, err := e.ledger.Credit(ctx, tx, Entry{
		OwnerType: enums.WalletOwnerCustomer,
		OwnerID:   hold.CustomerID,
		OrderID:   &order.ID,
		Type:      enums.WalletTxOrderRefund,
		Amount:    hold.TotalAmount,
	}); err != nil {
		return nil, err
	}
	if hold.Credited {
		for _, p := range e.parties(order, hold) {
			if _, err := e.ledger.ReversePending(ctx, tx, p.entry(order, enums.WalletTxPendingReversal)); err != nil {
				return nil, err
			}
		}
	}

	hold.Status = enums.HeldBalanceStatusRefunded
	if err := e.holds.WithTx(tx).Save(ctx, hold); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save held balance")
	}
	return hold, nil
}

// Dispute freezes a HELD balance; disputed holds are skipped by auto-release.
func (e *escrow) Dispute(ctx context.Context, tx *gorm.DB, order *models.Order, reason string, now time.Time) (*models.HeldBalance, error) {
	hold, err := e.FindByOrder(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}
	if hold.Status != enums.HeldBalanceStatusHeld {
		return nil, pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "held balance is %s", hold.Status)
	}

	disputedAt := now.UTC()
	hold.Status = enums.HeldBalanceStatusDisputed
	hold.DisputeReason = &reason
	hold.DisputedAt = &disputedAt
	if err := e.holds.WithTx(tx).Save(ctx, hold); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save held balance")
	}
	return hold, nil
}

func (e *escrow) FindByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.HeldBalance, error) {
	hold, err := e.holds.WithTx(tx).FindByOrder(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "held balance not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load held balance")
	}
	return hold, nil
}

func (e *escrow) ListDue(ctx context.Context, now time.Time, limit int) ([]models.HeldBalance, error) {
	holds, err := e.holds.ListDue(ctx, now, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list due held balances")
	}
	return holds, nil
}
