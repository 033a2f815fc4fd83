package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/internal/catalog"
	"github.com/angelmondragon/packdrop-backend/internal/commission"
	"github.com/angelmondragon/packdrop-backend/internal/events"
	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
)

const maxPrepMinutes = 24 * 60

// VendorAccept applies and snapshots the vendor commission and starts the
// preparation clock.
func (c *Coordinator) VendorAccept(ctx context.Context, actor auth.Actor, orderID uuid.UUID, prepMinutes *int) (*models.Order, error) {
	if prepMinutes != nil && (*prepMinutes < 0 || *prepMinutes > maxPrepMinutes) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "preparation time must be between 0 and %d minutes", maxPrepMinutes)
	}

	var order *models.Order
	err := c.run(ctx, "vendor_accept", func(tx *gorm.DB) (*events.Envelope, error) {
		var err error
		order, err = c.load(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		vendor, err := c.authorizeVendor(ctx, tx, actor, order)
		if err != nil {
			return nil, err
		}
		if order.VendorCommissionApplied {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor commission already applied")
		}
		prev := order.Status
		if err := requireStatus(order, enums.OrderStatusPlaced); err != nil {
			return nil, err
		}
		cfg, err := c.currentSettings(ctx)
		if err != nil {
			return nil, err
		}

		now := c.now()
		rate := commission.VendorRate(vendor.Plan, cfg.VendorCommissionRate)
		result := commission.Vendor(order.OrderSubtotal.Sub(order.DiscountAmount), rate)
		order.VendorCommissionRate = result.Rate
		order.VendorCommissionValue = result.Value
		order.VendorNet = result.Net
		order.VendorCommissionApplied = true
		refreshPlatformTotals(order)
		if err := c.commission.Record(ctx, tx, &models.CommissionSnapshot{
			OrderID:    order.ID,
			Source:     enums.CommissionSourceVendor,
			VendorID:   order.VendorID,
			Rate:       result.Rate,
			BaseAmount: result.Base,
			Value:      result.Value,
			NetAmount:  result.Net,
		}); err != nil {
			return nil, err
		}

		ready := now
		if prepMinutes != nil {
			ready = now.Add(time.Duration(*prepMinutes) * time.Minute)
		}
		order.EstimatedReadyAt = &ready
		order.ReadyNotifiedAt = nil

		if err := moveTo(order, enums.OrderStatusVendorAccepted); err != nil {
			return nil, err
		}
		if err := c.save(ctx, tx, order, prev); err != nil {
			return nil, err
		}

		meta := map[string]any{"commission_rate": result.Rate.String(), "commission_value": result.Value.StringFixed(2)}
		if prepMinutes != nil {
			meta["prep_minutes"] = *prepMinutes
		}
		p := c.partiesOf(ctx, tx, order)
		return &events.Envelope{
			Order:     order,
			Lifecycle: lifecycle(order, enums.LifecycleVendorAccepted, prev, actor, now, meta),
			Notifications: []events.Notification{
				notification(enums.NotificationOrderAccepted, order, p.customer, p.manager),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// VendorReject ends a placed order, returning stock and any wallet payment.
func (c *Coordinator) VendorReject(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}

	var order *models.Order
	err := c.run(ctx, "vendor_reject", func(tx *gorm.DB) (*events.Envelope, error) {
		var err error
		order, err = c.load(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		if _, err := c.authorizeVendor(ctx, tx, actor, order); err != nil {
			return nil, err
		}
		prev := order.Status
		if err := requireStatus(order, enums.OrderStatusPlaced); err != nil {
			return nil, err
		}

		now := c.now()
		if err := c.catalog.RestoreStock(ctx, tx, stockLines(order)); err != nil {
			return nil, err
		}
		if err := c.refund(ctx, tx, order); err != nil {
			return nil, err
		}
		order.CancelReason = &reason
		if err := moveTo(order, enums.OrderStatusVendorRejected); err != nil {
			return nil, err
		}
		if err := c.save(ctx, tx, order, prev); err != nil {
			return nil, err
		}

		return &events.Envelope{
			Order:     order,
			Lifecycle: lifecycle(order, enums.LifecycleVendorRejected, prev, actor, now, map[string]any{"reason": reason}),
			Notifications: []events.Notification{
				notification(enums.NotificationOrderRejected, order, order.CustomerID),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// MarkReady records that the vendor finished preparing the order and tells
// the assigned driver and the customer.
func (c *Coordinator) MarkReady(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := c.run(ctx, "mark_ready", func(tx *gorm.DB) (*events.Envelope, error) {
		var err error
		order, err = c.load(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		if _, err := c.authorizeVendor(ctx, tx, actor, order); err != nil {
			return nil, err
		}
		if err := requireStatus(order, readyStatuses...); err != nil {
			return nil, err
		}

		now := c.now()
		order.EstimatedReadyAt = &now
		order.ReadyNotifiedAt = &now
		if err := c.save(ctx, tx, order, order.Status); err != nil {
			return nil, err
		}

		recipients := []uuid.UUID{order.CustomerID}
		if order.DriverID != nil {
			recipients = append(recipients, *order.DriverID)
		}
		return &events.Envelope{
			Order:     order,
			Lifecycle: lifecycle(order, enums.LifecycleOrderReady, order.Status, actor, now, nil),
			Notifications: []events.Notification{
				notification(enums.NotificationOrderReady, order, recipients...),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func stockLines(order *models.Order) []catalog.StockLine {
	out := make([]catalog.StockLine, 0, len(order.Items))
	for _, item := range order.Items {
		out = append(out, catalog.StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

// refreshPlatformTotals derives the platform figures from whichever
// commissions are applied so far.
func refreshPlatformTotals(order *models.Order) {
	order.AdminCommissionAmount = order.VendorCommissionValue
	order.PlatformTotalCommission = order.VendorCommissionValue.Add(order.DriverCommissionValue)
}
