package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/internal/commission"
	"github.com/angelmondragon/packdrop-backend/internal/events"
	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
)

// DriverAccept is the assigned driver taking the pending job.
func (c *Coordinator) DriverAccept(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := c.run(ctx, "driver_accept", func(tx *gorm.DB) (*events.Envelope, error) {
		var err error
		order, err = c.load(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		if err := authorizeDriver(actor, order); err != nil {
			return nil, err
		}
		prev := order.Status
		if err := requireStatus(order, enums.OrderStatusDriverPending); err != nil {
			return nil, err
		}
		if err := moveTo(order, enums.OrderStatusDriverAccepted); err != nil {
			return nil, err
		}
		if err := c.save(ctx, tx, order, prev); err != nil {
			return nil, err
		}

		p := c.partiesOf(ctx, tx, order)
		return &events.Envelope{
			Order:     order,
			Lifecycle: lifecycle(order, enums.LifecycleDriverAccepted, prev, actor, c.now(), nil),
			Notifications: []events.Notification{
				notification(enums.NotificationDriverAccepted, order, p.customer, p.vendor),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// DriverReject hands the order back for re-assignment and frees the driver.
func (c *Coordinator) DriverReject(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)

	var order *models.Order
	err := c.run(ctx, "driver_reject", func(tx *gorm.DB) (*events.Envelope, error) {
		var err error
		order, err = c.load(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		if err := authorizeDriver(actor, order); err != nil {
			return nil, err
		}
		prev := order.Status
		if err := requireStatus(order, enums.OrderStatusDriverPending); err != nil {
			return nil, err
		}
		if err := c.drivers.Release(ctx, tx, actor.UserID); err != nil {
			return nil, err
		}
		order.DriverID = nil
		if err := moveTo(order, enums.OrderStatusDriverRejected); err != nil {
			return nil, err
		}
		if err := c.save(ctx, tx, order, prev); err != nil {
			return nil, err
		}

		var meta map[string]any
		if reason != "" {
			meta = map[string]any{"reason": reason}
		}
		p := c.partiesOf(ctx, tx, order)
		return &events.Envelope{
			Order:     order,
			Lifecycle: lifecycle(order, enums.LifecycleDriverRejected, prev, actor, c.now(), meta),
			Notifications: []events.Notification{
				notification(enums.NotificationDriverRejected, order, p.manager),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ConfirmPickup applies the driver commission, issues the delivery OTP and,
// for wallet orders, splits the escrow into pending credits.
func (c *Coordinator) ConfirmPickup(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := c.run(ctx, "confirm_pickup", func(tx *gorm.DB) (*events.Envelope, error) {
		var err error
		order, err = c.load(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		if err := authorizeDriver(actor, order); err != nil {
			return nil, err
		}
		prev := order.Status
		if err := requireStatus(order, enums.OrderStatusDriverAccepted); err != nil {
			return nil, err
		}
		now := c.now()
		if order.EstimatedReadyAt != nil && now.Before(*order.EstimatedReadyAt) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not ready for pickup yet").
				WithDetails(map[string]any{"estimated_ready_at": *order.EstimatedReadyAt})
		}
		if order.DriverCommissionApplied {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver commission already applied")
		}

		if err := c.applyDriverCommission(ctx, tx, order); err != nil {
			return nil, err
		}
		otp, err := generateOTP()
		if err != nil {
			return nil, err
		}
		order.DeliveryOTP = &otp
		order.PickedUpAt = &now

		if order.IsWallet() {
			if err := c.splitEscrow(ctx, tx, order); err != nil {
				return nil, err
			}
		}
		if err := moveTo(order, enums.OrderStatusShipped); err != nil {
			return nil, err
		}
		if err := c.save(ctx, tx, order, prev); err != nil {
			return nil, err
		}

		p := c.partiesOf(ctx, tx, order)
		return &events.Envelope{
			Order: order,
			Lifecycle: lifecycle(order, enums.LifecyclePickedUp, prev, actor, now, map[string]any{
				"driver_commission_value": order.DriverCommissionValue.StringFixed(2),
				"driver_net":              order.DriverNet.StringFixed(2),
			}),
			Notifications: []events.Notification{
				notification(enums.NotificationOrderPickedUp, order, p.customer, p.vendor),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// StartDelivery marks a picked-up order as on its way to the customer.
func (c *Coordinator) StartDelivery(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := c.run(ctx, "start_delivery", func(tx *gorm.DB) (*events.Envelope, error) {
		var err error
		order, err = c.load(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		if err := authorizeDriver(actor, order); err != nil {
			return nil, err
		}
		prev := order.Status
		if err := requireStatus(order, enums.OrderStatusShipped); err != nil {
			return nil, err
		}
		if err := moveTo(order, enums.OrderStatusInTransit); err != nil {
			return nil, err
		}
		if err := c.save(ctx, tx, order, prev); err != nil {
			return nil, err
		}
		return &events.Envelope{
			Order:     order,
			Lifecycle: lifecycle(order, enums.LifecycleInTransit, prev, actor, c.now(), nil),
			Notifications: []events.Notification{
				notification(enums.NotificationOrderOnTheWay, order, order.CustomerID),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ReportProblem is the driver's delivery-failure path. It cancels the order
// through the shared cancellation.
func (c *Coordinator) ReportProblem(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "problem description required")
	}

	var order *models.Order
	err := c.run(ctx, "report_problem", func(tx *gorm.DB) (*events.Envelope, error) {
		var err error
		order, err = c.load(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		if err := authorizeDriver(actor, order); err != nil {
			return nil, err
		}
		if err := requireStatus(order, enums.OrderStatusDriverAccepted, enums.OrderStatusShipped, enums.OrderStatusInTransit); err != nil {
			return nil, err
		}
		return c.cancel(ctx, tx, order, actor, reason, enums.LifecycleDeliveryFailed)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// applyDriverCommission computes the driver split of the delivery charge
// with the pay floor and snapshots it.
func (c *Coordinator) applyDriverCommission(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	cfg, err := c.currentSettings(ctx)
	if err != nil {
		return err
	}
	result := commission.Driver(order.DeliveryCharge, cfg.DriverCommissionRate, cfg.MinDeliveryPay)
	order.DriverCommissionRate = result.Rate
	order.DriverCommissionValue = result.Value
	order.DriverNet = result.Net
	order.DriverCommissionApplied = true
	refreshPlatformTotals(order)

	return c.commission.Record(ctx, tx, &models.CommissionSnapshot{
		OrderID:    order.ID,
		Source:     enums.CommissionSourceDriver,
		VendorID:   order.VendorID,
		DriverID:   order.DriverID,
		Rate:       result.Rate,
		BaseAmount: result.Fee,
		Value:      result.Value,
		NetAmount:  result.Net,
	})
}

func (c *Coordinator) splitEscrow(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	cfg, err := c.currentSettings(ctx)
	if err != nil {
		return err
	}
	_, err = c.escrow.Split(ctx, tx, order, c.autoReleaseAt(cfg))
	return err
}
