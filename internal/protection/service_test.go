package protection

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/internal/catalog"
	"github.com/angelmondragon/packdrop-backend/internal/events/eventstest"
	"github.com/angelmondragon/packdrop-backend/internal/orders"
	"github.com/angelmondragon/packdrop-backend/internal/wallet"
	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db"
	"github.com/angelmondragon/packdrop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
)

type fixture struct {
	client  *db.Client
	svc     Service
	ledger  wallet.Ledger
	escrow  wallet.Escrow
	events  *eventstest.Recorder
	market  dbtest.Marketplace
	adminID uuid.UUID
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.New(t)
	catalogSvc, err := catalog.NewService(catalog.NewRepository(client.DB()))
	require.NoError(t, err)
	ledger, err := wallet.NewLedger(wallet.NewRepository(client.DB()))
	require.NoError(t, err)
	escrow, err := wallet.NewEscrow(wallet.NewHoldRepository(client.DB()), ledger)
	require.NoError(t, err)

	f := &fixture{
		client:  client,
		ledger:  ledger,
		escrow:  escrow,
		events:  &eventstest.Recorder{},
		market:  dbtest.SeedMarketplace(t, client.DB()),
		adminID: uuid.New(),
		now:     time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC),
	}
	f.svc, err = NewService(Deps{
		DB:       client,
		Orders:   orders.NewRepository(client.DB()),
		Catalog:  catalogSvc,
		Escrow:   escrow,
		Events:   f.events,
		AdminIDs: []uuid.UUID{f.adminID},
		Clock:    func() time.Time { return f.now },
	})
	require.NoError(t, err)
	return f
}

// paidOrder inserts a wallet order of 120 in status, escrows it and splits
// the hold 85/18/17 with the given auto-release date.
func (f *fixture) paidOrder(t *testing.T, status enums.OrderStatus, autoRelease time.Time) *models.Order {
	t.Helper()
	ctx := context.Background()
	driver := f.market.DriverID
	otp := "482913"
	order := &models.Order{
		Status:                  status,
		PaymentMethod:           enums.PaymentMethodWallet,
		PaymentStatus:           enums.PaymentStatusPaid,
		CustomerID:              f.market.CustomerID,
		VendorID:                f.market.Vendor.ID,
		ZoneID:                  f.market.Zone.ID,
		AddressID:               f.market.Address.ID,
		DriverID:                &driver,
		OrderSubtotal:           decimal.NewFromInt(100),
		OrderTotal:              decimal.NewFromInt(120),
		VendorNet:               decimal.NewFromInt(85),
		DriverNet:               decimal.NewFromInt(18),
		PlatformTotalCommission: decimal.NewFromInt(17),
		DeliveryOTP:             &otp,
	}
	require.NoError(t, f.client.DB().Create(order).Error)

	err := f.client.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := f.ledger.Credit(ctx, tx, wallet.Entry{
			OwnerType: enums.WalletOwnerCustomer,
			OwnerID:   order.CustomerID,
			Type:      enums.WalletTxTopUp,
			Amount:    order.OrderTotal,
		}); err != nil {
			return err
		}
		if _, err := f.escrow.Open(ctx, tx, order, autoRelease); err != nil {
			return err
		}
		_, err := f.escrow.Split(ctx, tx, order, autoRelease)
		return err
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) customer() auth.Actor {
	return auth.Actor{UserID: f.market.CustomerID, Role: enums.ActorRoleCustomer}
}

func (f *fixture) wallet(t *testing.T, owner enums.WalletOwnerType, id uuid.UUID) *models.Wallet {
	t.Helper()
	w, err := f.ledger.Balance(context.Background(), nil, owner, id)
	require.NoError(t, err)
	return w
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, code), "want %s, got %v", code, err)
}

func assertAmount(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.NewFromInt(want)), "want %d, got %s", want, got)
}

func TestConfirmDeliveryReceiptReleasesFunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.paidOrder(t, enums.OrderStatusCompleted, f.now.AddDate(0, 0, 3))

	stranger := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	_, err := f.svc.ConfirmDeliveryReceipt(ctx, stranger, order.ID)
	assertCode(t, err, pkgerrors.CodeForbidden)

	vendor := auth.Actor{UserID: f.market.VendorUser, Role: enums.ActorRoleVendor}
	_, err = f.svc.ConfirmDeliveryReceipt(ctx, vendor, order.ID)
	assertCode(t, err, pkgerrors.CodeForbidden)

	hold, err := f.svc.ConfirmDeliveryReceipt(ctx, f.customer(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.HeldBalanceStatusReleased, hold.Status)
	require.NotNil(t, hold.ReleasedAt)

	vendorWallet := f.wallet(t, enums.WalletOwnerVendor, f.market.Vendor.ID)
	assertAmount(t, 85, vendorWallet.Balance)
	assertAmount(t, 0, vendorWallet.PendingBalance)
	assertAmount(t, 18, f.wallet(t, enums.WalletOwnerDriver, f.market.DriverID).Balance)
	assertAmount(t, 17, f.wallet(t, enums.WalletOwnerPlatform, models.PlatformOwnerID).Balance)

	last := f.events.Last()
	require.NotNil(t, last.Lifecycle)
	assert.Equal(t, enums.LifecycleFundsReleased, last.Lifecycle.Type)
	require.Len(t, last.Notifications, 1)
	assert.Equal(t, enums.NotificationFundsReleased, last.Notifications[0].Template)
	assert.ElementsMatch(t, []uuid.UUID{f.market.CustomerID, f.market.VendorUser, f.market.DriverID}, last.Notifications[0].UserIDs)

	_, err = f.svc.ConfirmDeliveryReceipt(ctx, f.customer(), order.ID)
	assertCode(t, err, pkgerrors.CodeInvalidTransition)
}

func TestConfirmDeliveryReceiptRequiresCompletion(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder(t, enums.OrderStatusInTransit, f.now.AddDate(0, 0, 3))

	_, err := f.svc.ConfirmDeliveryReceipt(context.Background(), f.customer(), order.ID)
	assertCode(t, err, pkgerrors.CodeInvalidTransition)
	assertAmount(t, 85, f.wallet(t, enums.WalletOwnerVendor, f.market.Vendor.ID).PendingBalance)
}

func TestDisputeFreezesHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.paidOrder(t, enums.OrderStatusCompleted, f.now.Add(-time.Hour))

	_, err := f.svc.Dispute(ctx, f.customer(), order.ID, "  ")
	assertCode(t, err, pkgerrors.CodeValidation)

	hold, err := f.svc.Dispute(ctx, f.customer(), order.ID, "box arrived crushed")
	require.NoError(t, err)
	assert.Equal(t, enums.HeldBalanceStatusDisputed, hold.Status)
	require.NotNil(t, hold.DisputeReason)
	assert.Equal(t, "box arrived crushed", *hold.DisputeReason)

	last := f.events.Last()
	require.Len(t, last.Notifications, 1)
	assert.Equal(t, enums.NotificationDisputeOpened, last.Notifications[0].Template)
	assert.ElementsMatch(t, []uuid.UUID{f.adminID, f.market.ManagerID}, last.Notifications[0].UserIDs)

	status, err := f.svc.GetStatus(ctx, f.customer(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.HeldBalanceStatusDisputed, status.HoldStatus)
	assert.False(t, status.CanConfirm)
	assert.False(t, status.CanDispute)

	released, err := f.svc.ReleaseDue(ctx, f.now, 10)
	require.NoError(t, err)
	assert.Zero(t, released)

	_, err = f.svc.Dispute(ctx, f.customer(), order.ID, "again")
	assertCode(t, err, pkgerrors.CodeInvalidTransition)
}

func TestDisputeRejectsCancelledOrder(t *testing.T) {
	f := newFixture(t)
	order := f.paidOrder(t, enums.OrderStatusCancelled, f.now.AddDate(0, 0, 3))

	_, err := f.svc.Dispute(context.Background(), f.customer(), order.ID, "never came")
	assertCode(t, err, pkgerrors.CodeInvalidTransition)
}

func TestDisputeRejectsOrderInFlight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, status := range []enums.OrderStatus{
		enums.OrderStatusDriverAccepted,
		enums.OrderStatusShipped,
		enums.OrderStatusInTransit,
	} {
		order := f.paidOrder(t, status, f.now.AddDate(0, 0, 3))
		_, err := f.svc.Dispute(ctx, f.customer(), order.ID, "taking too long")
		assertCode(t, err, pkgerrors.CodeInvalidTransition)

		hold, err := f.escrow.FindByOrder(ctx, nil, order.ID)
		require.NoError(t, err)
		assert.Equal(t, enums.HeldBalanceStatusHeld, hold.Status, status)
		assert.Nil(t, hold.DisputedAt)
	}
}

func TestGetStatusReportsActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	autoRelease := f.now.AddDate(0, 0, 3)
	order := f.paidOrder(t, enums.OrderStatusCompleted, autoRelease)

	status, err := f.svc.GetStatus(ctx, f.customer(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.HeldBalanceStatusHeld, status.HoldStatus)
	assertAmount(t, 120, status.TotalAmount)
	assertAmount(t, 85, status.VendorPortion)
	assertAmount(t, 18, status.DriverPortion)
	assertAmount(t, 17, status.AdminPortion)
	assert.True(t, status.AutoReleaseDate.Equal(autoRelease))
	assert.True(t, status.CanConfirm)
	assert.True(t, status.CanDispute)

	shipped := f.paidOrder(t, enums.OrderStatusShipped, autoRelease)
	status, err = f.svc.GetStatus(ctx, f.customer(), shipped.ID)
	require.NoError(t, err)
	assert.False(t, status.CanConfirm)
	assert.False(t, status.CanDispute)
}

func TestReleaseDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := f.paidOrder(t, enums.OrderStatusCompleted, f.now.Add(-time.Minute))
	f.paidOrder(t, enums.OrderStatusCompleted, f.now.AddDate(0, 0, 2))
	f.paidOrder(t, enums.OrderStatusShipped, f.now.Add(-time.Minute))

	_, err := f.svc.ReleaseDue(ctx, f.now, 0)
	assertCode(t, err, pkgerrors.CodeValidation)

	released, err := f.svc.ReleaseDue(ctx, f.now, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	hold, err := f.escrow.FindByOrder(ctx, nil, due.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.HeldBalanceStatusReleased, hold.Status)
	assert.Equal(t, enums.ActorRoleSystem, f.events.Last().Lifecycle.ActorRole)

	released, err = f.svc.ReleaseDue(ctx, f.now, 10)
	require.NoError(t, err)
	assert.Zero(t, released)

	released, err = f.svc.ReleaseDue(ctx, f.now.AddDate(0, 0, 3), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, released)
	assertAmount(t, 170, f.wallet(t, enums.WalletOwnerVendor, f.market.Vendor.ID).Balance)
}

func TestGetDeliveryOTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shipped := f.paidOrder(t, enums.OrderStatusShipped, f.now.AddDate(0, 0, 3))

	code, err := f.svc.GetDeliveryOTP(ctx, f.customer(), shipped.ID)
	require.NoError(t, err)
	assert.Equal(t, "482913", code)

	completed := f.paidOrder(t, enums.OrderStatusCompleted, f.now.AddDate(0, 0, 3))
	_, err = f.svc.GetDeliveryOTP(ctx, f.customer(), completed.ID)
	assertCode(t, err, pkgerrors.CodeInvalidTransition)

	require.NoError(t, f.client.DB().Model(&models.Order{}).Where("id = ?", shipped.ID).Update("payment_method", enums.PaymentMethodCash).Error)
	_, err = f.svc.GetDeliveryOTP(ctx, f.customer(), shipped.ID)
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.GetDeliveryOTP(ctx, f.customer(), uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}
