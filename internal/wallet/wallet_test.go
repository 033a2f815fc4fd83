package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/db"
	"github.com/angelmondragon/packdrop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/pagination"
)

type fixture struct {
	client *db.Client
	ledger Ledger
	escrow Escrow
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.New(t)
	ledger, err := NewLedger(NewRepository(client.DB()))
	require.NoError(t, err)
	escrow, err := NewEscrow(NewHoldRepository(client.DB()), ledger)
	require.NoError(t, err)
	return fixture{client: client, ledger: ledger, escrow: escrow}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Round(2).Equal(d(want)), "want %s, got %s", want, got)
}

func TestLedgerDebitRequiresFunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := uuid.New()

	_, err := f.ledger.Credit(ctx, nil, Entry{OwnerType: enums.WalletOwnerCustomer, OwnerID: customer, Type: enums.WalletTxTopUp, Amount: d("50")})
	require.NoError(t, err)

	_, err = f.ledger.Debit(ctx, nil, Entry{OwnerType: enums.WalletOwnerCustomer, OwnerID: customer, Type: enums.WalletTxOrderPayment, Amount: d("80"), RequireFunds: true})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	w, err := f.ledger.Debit(ctx, nil, Entry{OwnerType: enums.WalletOwnerCustomer, OwnerID: customer, Type: enums.WalletTxOrderPayment, Amount: d("50"), RequireFunds: true})
	require.NoError(t, err)
	assertAmount(t, "0", w.Balance)
}

func TestLedgerDriverDebitMayGoNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := uuid.New()

	w, err := f.ledger.Debit(ctx, nil, Entry{OwnerType: enums.WalletOwnerDriver, OwnerID: driver, Type: enums.WalletTxCashCollected, Amount: d("42.5")})
	require.NoError(t, err)
	assertAmount(t, "-42.5", w.Balance)

	page, err := f.ledger.ListTransactions(ctx, enums.WalletOwnerDriver, driver, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assertAmount(t, "-42.5", page.Items[0].Amount)
	assertAmount(t, "-42.5", page.Items[0].BalanceAfter)
}

func TestLedgerPendingLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vendor := uuid.New()
	entry := Entry{OwnerType: enums.WalletOwnerVendor, OwnerID: vendor, Amount: d("30")}

	entry.Type = enums.WalletTxPendingCredit
	w, err := f.ledger.CreditPending(ctx, nil, entry)
	require.NoError(t, err)
	assertAmount(t, "0", w.Balance)
	assertAmount(t, "30", w.PendingBalance)

	entry.Type = enums.WalletTxPendingRelease
	entry.Amount = d("20")
	w, err = f.ledger.ReleasePending(ctx, nil, entry)
	require.NoError(t, err)
	assertAmount(t, "20", w.Balance)
	assertAmount(t, "10", w.PendingBalance)

	entry.Type = enums.WalletTxPendingReversal
	entry.Amount = d("10")
	w, err = f.ledger.ReversePending(ctx, nil, entry)
	require.NoError(t, err)
	assertAmount(t, "0", w.PendingBalance)

	balance, err := f.ledger.Balance(ctx, nil, enums.WalletOwnerVendor, vendor)
	require.NoError(t, err)
	assertAmount(t, "20", balance.Balance)
}

func TestLedgerRejectsBadEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Credit(ctx, nil, Entry{OwnerType: enums.WalletOwnerVendor, OwnerID: uuid.New(), Amount: d("-1")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.ledger.Credit(ctx, nil, Entry{OwnerType: "BANK", OwnerID: uuid.New(), Amount: d("1")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.ledger.Credit(ctx, nil, Entry{OwnerType: enums.WalletOwnerVendor, Amount: d("1")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestBalanceOfUnknownOwnerIsEmpty(t *testing.T) {
	f := newFixture(t)
	w, err := f.ledger.Balance(context.Background(), nil, enums.WalletOwnerCustomer, uuid.New())
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
}

func seedOrder(t *testing.T, conn *gorm.DB, status enums.OrderStatus) *models.Order {
	t.Helper()
	driver := uuid.New()
	order := &models.Order{
		Status:                  status,
		PaymentMethod:           enums.PaymentMethodWallet,
		PaymentStatus:           enums.PaymentStatusPaid,
		CustomerID:              uuid.New(),
		VendorID:                uuid.New(),
		ZoneID:                  uuid.New(),
		AddressID:               uuid.New(),
		DriverID:                &driver,
		OrderSubtotal:           d("100"),
		DiscountAmount:          d("10"),
		DeliveryCharge:          d("20"),
		TipAmount:               d("5"),
		OrderTotal:              d("115"),
		VendorCommissionValue:   d("13.5"),
		VendorNet:               d("76.5"),
		DriverCommissionValue:   d("2"),
		DriverNet:               d("18"),
		PlatformTotalCommission: d("15.5"),
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

func fund(t *testing.T, f fixture, customer uuid.UUID, amount string) {
	t.Helper()
	_, err := f.ledger.Credit(context.Background(), nil, Entry{OwnerType: enums.WalletOwnerCustomer, OwnerID: customer, Type: enums.WalletTxTopUp, Amount: d(amount)})
	require.NoError(t, err)
}

func TestEscrowOpenSplitRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := seedOrder(t, f.client.DB(), enums.OrderStatusCompleted)
	fund(t, f, order.CustomerID, "200")
	now := time.Now().UTC()

	hold, err := f.escrow.Open(ctx, nil, order, now.Add(72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, enums.HeldBalanceStatusHeld, hold.Status)
	assertAmount(t, "90", hold.VendorPortion)

	customer, err := f.ledger.Balance(ctx, nil, enums.WalletOwnerCustomer, order.CustomerID)
	require.NoError(t, err)
	assertAmount(t, "85", customer.Balance)

	_, err = f.escrow.Release(ctx, nil, order, now)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "release before split")

	hold, err = f.escrow.Split(ctx, nil, order, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, hold.Credited)
	assertAmount(t, "76.5", hold.VendorPortion)
	assertAmount(t, "23", hold.DriverPortion)
	assertAmount(t, "15.5", hold.AdminPortion)
	assertAmount(t, "115", hold.VendorPortion.Add(hold.DriverPortion).Add(hold.AdminPortion))

	due, err := f.escrow.ListDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	hold, err = f.escrow.Release(ctx, nil, order, now)
	require.NoError(t, err)
	assert.Equal(t, enums.HeldBalanceStatusReleased, hold.Status)
	require.NotNil(t, hold.ReleasedAt)

	driver, err := f.ledger.Balance(ctx, nil, enums.WalletOwnerDriver, *order.DriverID)
	require.NoError(t, err)
	assertAmount(t, "23", driver.Balance)
	assertAmount(t, "0", driver.PendingBalance)

	platform, err := f.ledger.Balance(ctx, nil, enums.WalletOwnerPlatform, models.PlatformOwnerID)
	require.NoError(t, err)
	assertAmount(t, "15.5", platform.Balance)

	_, err = f.escrow.Release(ctx, nil, order, now)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "double release")
}

func TestEscrowOpenInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	order := seedOrder(t, f.client.DB(), enums.OrderStatusPlaced)
	fund(t, f, order.CustomerID, "10")

	_, err := f.escrow.Open(context.Background(), nil, order, time.Now().UTC())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestEscrowRefundReversesCredits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := seedOrder(t, f.client.DB(), enums.OrderStatusShipped)
	fund(t, f, order.CustomerID, "115")
	now := time.Now().UTC()

	err := f.client.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := f.escrow.Open(ctx, tx, order, now); err != nil {
			return err
		}
		_, err := f.escrow.Split(ctx, tx, order, now)
		return err
	})
	require.NoError(t, err)

	hold, err := f.escrow.Refund(ctx, nil, order)
	require.NoError(t, err)
	assert.Equal(t, enums.HeldBalanceStatusRefunded, hold.Status)

	customer, err := f.ledger.Balance(ctx, nil, enums.WalletOwnerCustomer, order.CustomerID)
	require.NoError(t, err)
	assertAmount(t, "115", customer.Balance)

	vendor, err := f.ledger.Balance(ctx, nil, enums.WalletOwnerVendor, order.VendorID)
	require.NoError(t, err)
	assertAmount(t, "0", vendor.PendingBalance)

	_, err = f.escrow.Refund(ctx, nil, order)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
}

func TestEscrowDisputeBlocksRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := seedOrder(t, f.client.DB(), enums.OrderStatusCompleted)
	fund(t, f, order.CustomerID, "115")
	past := time.Now().UTC().Add(-time.Hour)

	_, err := f.escrow.Open(ctx, nil, order, past)
	require.NoError(t, err)
	_, err = f.escrow.Split(ctx, nil, order, past)
	require.NoError(t, err)

	hold, err := f.escrow.Dispute(ctx, nil, order, "missing items", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, enums.HeldBalanceStatusDisputed, hold.Status)

	due, err := f.escrow.ListDue(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	_, err = f.escrow.FindByOrder(ctx, nil, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
