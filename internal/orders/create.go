package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/internal/catalog"
	"github.com/angelmondragon/packdrop-backend/internal/events"
	"github.com/angelmondragon/packdrop-backend/internal/pricing"
	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/money"
)

// CreateOrder prices and places an order for the calling customer. Stock is
// taken atomically with the insert; wallet orders are debited and escrowed in
// the same transaction.
func (c *Coordinator) CreateOrder(ctx context.Context, actor auth.Actor, in CreateOrderInput) (*models.Order, error) {
	if err := requireRole(actor, enums.ActorRoleCustomer); err != nil {
		return nil, err
	}
	lines, err := mergeItems(in.Items)
	if err != nil {
		return nil, err
	}
	if !in.PaymentMethod.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", in.PaymentMethod)
	}

	var order *models.Order
	err = c.run(ctx, "create_order", func(tx *gorm.DB) (*events.Envelope, error) {
		now := c.now()
		cfg, err := c.currentSettings(ctx)
		if err != nil {
			return nil, err
		}

		vendor, err := c.catalog.Vendor(ctx, tx, in.VendorID)
		if err != nil {
			return nil, err
		}
		if !vendor.IsOpen {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor is not accepting orders")
		}
		address, err := c.catalog.Address(ctx, tx, in.AddressID)
		if err != nil {
			return nil, err
		}
		if address.UserID != actor.UserID {
			return nil, forbidden("address belongs to another customer")
		}
		if err := c.catalog.EnforceMonthlyLimit(ctx, tx, vendor, now); err != nil {
			return nil, err
		}

		ids := make([]uuid.UUID, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.ProductID)
		}
		products, err := c.catalog.Products(ctx, tx, vendor.ID, ids)
		if err != nil {
			return nil, err
		}
		items := make([]pricing.Item, 0, len(lines))
		for _, l := range lines {
			p := products[l.ProductID]
			if !p.IsActive {
				return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "product %s is not available", p.ID)
			}
			items = append(items, pricing.Item{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Quantity: l.Quantity})
		}

		quote, err := c.pricing.Quote(ctx, pricing.QuoteInput{
			Items:           items,
			DiscountPercent: vendor.DiscountPercent,
			Plan:            vendor.Plan,
			Origin:          pricing.Point{Lat: vendor.Latitude, Lng: vendor.Longitude},
			Destination:     pricing.Point{Lat: address.Latitude, Lng: address.Longitude},
			Tip:             in.Tip,
		})
		if err != nil {
			return nil, err
		}
		if err := c.catalog.ReserveStock(ctx, tx, lines); err != nil {
			return nil, err
		}

		order = &models.Order{
			ID:             uuid.New(),
			Status:         enums.OrderStatusPlaced,
			PaymentMethod:  in.PaymentMethod,
			PaymentStatus:  enums.PaymentStatusUnpaid,
			CustomerID:     actor.UserID,
			VendorID:       vendor.ID,
			ZoneID:         vendor.ZoneID,
			AddressID:      address.ID,
			OrderSubtotal:  quote.Subtotal,
			DiscountAmount: quote.Discount,
			DeliveryCharge: quote.DeliveryCharge,
			TipAmount:      quote.Tip,
			OrderTotal:     quote.Total,
			DistanceKm:     quote.DistanceKm,
			Notes:          in.Notes,
		}
		zeroCommissions(order)
		for _, line := range quote.Lines {
			order.Items = append(order.Items, models.OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Name:      line.Name,
				UnitPrice: line.UnitPrice,
				Quantity:  line.Quantity,
				LineTotal: line.LineTotal,
			})
		}
		if err := c.orders.WithTx(tx).Create(ctx, order); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		if order.IsWallet() {
			if _, err := c.escrow.Open(ctx, tx, order, c.autoReleaseAt(cfg)); err != nil {
				return nil, err
			}
			order.PaymentStatus = enums.PaymentStatusPaid
			if err := c.save(ctx, tx, order, order.Status); err != nil {
				return nil, err
			}
		}

		return &events.Envelope{
			Order: order,
			Lifecycle: &events.LifecycleEvent{
				OrderID:    order.ID,
				Type:       enums.LifecycleOrderCreated,
				NewStatus:  order.Status,
				ActorID:    actor.IDPtr(),
				ActorRole:  actor.Role,
				Metadata:   map[string]any{"payment_method": string(order.PaymentMethod), "order_total": order.OrderTotal.StringFixed(2)},
				OccurredAt: now,
			},
			Notifications: []events.Notification{
				notification(enums.NotificationOrderPlaced, order, vendor.UserID),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// mergeItems validates quantities and folds repeated products into one line.
func mergeItems(in []ItemInput) ([]catalog.StockLine, error) {
	if len(in) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	index := make(map[uuid.UUID]int, len(in))
	out := make([]catalog.StockLine, 0, len(in))
	for _, item := range in {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity for product %s must be positive", item.ProductID)
		}
		if i, ok := index[item.ProductID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, catalog.StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out, nil
}

// zeroCommissions resets every commission field and flag.
func zeroCommissions(order *models.Order) {
	order.VendorCommissionRate = money.Zero
	order.VendorCommissionValue = money.Zero
	order.DriverCommissionRate = money.Zero
	order.DriverCommissionValue = money.Zero
	order.AdminCommissionAmount = money.Zero
	order.PlatformTotalCommission = money.Zero
	order.VendorNet = money.Zero
	order.DriverNet = money.Zero
	order.VendorCommissionApplied = false
	order.DriverCommissionApplied = false
}
