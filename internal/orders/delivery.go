package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/internal/events"
	"github.com/angelmondragon/packdrop-backend/internal/wallet"
	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
)

// CompleteDelivery closes the order. Wallet orders require the customer's
// OTP unless an admin completes them; a wrong code rotates the OTP and the
// rotation is committed before the call fails. Cash orders settle every
// party's share and charge the collected total to the driver.
func (c *Coordinator) CompleteDelivery(ctx context.Context, actor auth.Actor, orderID uuid.UUID, otp *string) (*models.Order, error) {
	var (
		order    *models.Order
		rejected bool
	)
	err := c.run(ctx, "complete_delivery", func(tx *gorm.DB) (*events.Envelope, error) {
		var err error
		order, err = c.load(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		if actor.Role != enums.ActorRoleAdmin {
			if err := authorizeDriver(actor, order); err != nil {
				return nil, err
			}
		}
		prev := order.Status
		if err := requireStatus(order, enums.OrderStatusDriverAccepted, enums.OrderStatusShipped, enums.OrderStatusInTransit); err != nil {
			return nil, err
		}

		if order.IsWallet() && actor.Role != enums.ActorRoleAdmin && !otpMatches(order.DeliveryOTP, otp) {
			rejected = true
			return c.rotateOTP(ctx, tx, order, actor)
		}

		if !order.DriverCommissionApplied {
			if err := c.applyDriverCommission(ctx, tx, order); err != nil {
				return nil, err
			}
			if order.IsWallet() {
				if err := c.splitEscrow(ctx, tx, order); err != nil {
					return nil, err
				}
			}
		}
		if order.IsCash() {
			if err := c.settleCash(ctx, tx, order); err != nil {
				return nil, err
			}
		}

		now := c.now()
		if order.DriverID != nil {
			if err := c.drivers.Release(ctx, tx, *order.DriverID); err != nil {
				return nil, err
			}
		}
		order.DeliveredAt = &now
		order.DeliveryOTP = nil
		if err := moveTo(order, enums.OrderStatusCompleted); err != nil {
			return nil, err
		}
		if err := c.save(ctx, tx, order, prev); err != nil {
			return nil, err
		}

		p := c.partiesOf(ctx, tx, order)
		return &events.Envelope{
			Order: order,
			Lifecycle: lifecycle(order, enums.LifecycleDelivered, prev, actor, now, map[string]any{
				"payment_method": string(order.PaymentMethod),
			}),
			Notifications: []events.Notification{
				notification(enums.NotificationOrderDelivered, order, p.customer, p.vendor, p.manager),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	if rejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery code did not match; a new code was issued")
	}
	return order, nil
}

func (c *Coordinator) rotateOTP(ctx context.Context, tx *gorm.DB, order *models.Order, actor auth.Actor) (*events.Envelope, error) {
	code, err := generateOTP()
	if err != nil {
		return nil, err
	}
	order.DeliveryOTP = &code
	if err := c.save(ctx, tx, order, order.Status); err != nil {
		return nil, err
	}
	return &events.Envelope{
		Order:     order,
		Lifecycle: lifecycle(order, enums.LifecycleOTPRegenerated, order.Status, actor, c.now(), nil),
	}, nil
}

// settleCash credits vendor, driver and platform with their shares and
// debits the driver for the cash collected at the door. The driver may go
// negative; that balance is the cash debt reconciled by the zone manager.
func (c *Coordinator) settleCash(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	shares := []struct {
		owner  enums.WalletOwnerType
		id     uuid.UUID
		amount decimal.Decimal
	}{
		{enums.WalletOwnerVendor, order.VendorID, order.VendorNet},
		{enums.WalletOwnerDriver, *order.DriverID, order.DriverNet.Add(order.TipAmount)},
		{enums.WalletOwnerPlatform, models.PlatformOwnerID, order.PlatformTotalCommission},
	}
	for _, s := range shares {
		if err := c.post(ctx, tx, wallet.Entry{
			OwnerType: s.owner,
			OwnerID:   s.id,
			OrderID:   &order.ID,
			Type:      enums.WalletTxEarning,
			Amount:    s.amount,
		}); err != nil {
			return err
		}
	}
	_, err := c.ledger.Debit(ctx, tx, wallet.Entry{
		OwnerType: enums.WalletOwnerDriver,
		OwnerID:   *order.DriverID,
		OrderID:   &order.ID,
		Type:      enums.WalletTxCashCollected,
		Amount:    order.OrderTotal,
	})
	return err
}

// post credits a positive amount and debits a negative one.
func (c *Coordinator) post(ctx context.Context, tx *gorm.DB, entry wallet.Entry) error {
	var err error
	if entry.Amount.IsNegative() {
		entry.Amount = entry.Amount.Abs()
		_, err = c.ledger.Debit(ctx, tx, entry)
	} else {
		_, err = c.ledger.Credit(ctx, tx, entry)
	}
	return err
}
