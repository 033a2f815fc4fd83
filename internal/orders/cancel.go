package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/internal/events"
	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
)

// CancelOrder cancels on behalf of the customer (PLACED only), the vendor
// (PLACED or VENDOR_ACCEPTED), the zone manager or an admin.
func (c *Coordinator) CancelOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
	}

	var order *models.Order
	err := c.run(ctx, "cancel_order", func(tx *gorm.DB) (*events.Envelope, error) {
		var err error
		order, err = c.load(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		if err := c.authorizeCancel(ctx, tx, actor, order); err != nil {
			return nil, err
		}
		if IsTerminal(order.Status) {
			return nil, pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "order is already %s", order.Status).
				WithDetails(map[string]any{"status": order.Status})
		}
		switch actor.Role {
		case enums.ActorRoleCustomer:
			if err := requireStatus(order, enums.OrderStatusPlaced); err != nil {
				return nil, err
			}
		case enums.ActorRoleVendor:
			if err := requireStatus(order, enums.OrderStatusPlaced, enums.OrderStatusVendorAccepted); err != nil {
				return nil, err
			}
		}
		return c.cancel(ctx, tx, order, actor, reason, enums.LifecycleOrderCancelled)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (c *Coordinator) authorizeCancel(ctx context.Context, tx *gorm.DB, actor auth.Actor, order *models.Order) error {
	switch actor.Role {
	case enums.ActorRoleCustomer:
		if order.CustomerID != actor.UserID {
			return forbidden("order belongs to another customer")
		}
		return nil
	case enums.ActorRoleVendor:
		_, err := c.authorizeVendor(ctx, tx, actor, order)
		return err
	case enums.ActorRoleManager, enums.ActorRoleAdmin:
		return c.authorizeZone(ctx, tx, actor, order.ZoneID)
	}
	return forbidden("role may not cancel orders")
}

// cancel is the shared cancellation path. It undoes every side effect the
// order accumulated: commissions, the wallet hold, reserved stock and the
// driver claim.
func (c *Coordinator) cancel(ctx context.Context, tx *gorm.DB, order *models.Order, actor auth.Actor, reason string, eventType enums.LifecycleEventType) (*events.Envelope, error) {
	prev := order.Status
	now := c.now()

	zeroCommissions(order)
	if err := c.refund(ctx, tx, order); err != nil {
		return nil, err
	}
	if err := c.catalog.RestoreStock(ctx, tx, stockLines(order)); err != nil {
		return nil, err
	}
	if order.DriverID != nil {
		if err := c.drivers.Release(ctx, tx, *order.DriverID); err != nil {
			return nil, err
		}
	}

	role := actor.Role
	order.CancelledAt = &now
	order.CancelReason = &reason
	order.CancelledByRole = &role
	order.DeliveryOTP = nil
	if err := moveTo(order, enums.OrderStatusCancelled); err != nil {
		return nil, err
	}
	if err := c.save(ctx, tx, order, prev); err != nil {
		return nil, err
	}

	p := c.partiesOf(ctx, tx, order)
	return &events.Envelope{
		Order:     order,
		Lifecycle: lifecycle(order, eventType, prev, actor, now, map[string]any{"reason": reason}),
		Notifications: []events.Notification{
			notification(enums.NotificationOrderCancelled, order, p.customer, p.vendor, p.driver, p.manager),
		},
	}, nil
}

// refund returns a prepaid wallet order's hold to the customer, reversing
// any pending credits made at pickup.
func (c *Coordinator) refund(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if !order.IsWallet() || !order.PaymentStatus.Refundable() {
		return nil
	}
	if _, err := c.escrow.Refund(ctx, tx, order); err != nil {
		return err
	}
	order.PaymentStatus = enums.PaymentStatusRefunded
	return nil
}
