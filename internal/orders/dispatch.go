package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/internal/events"
	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/money"
)

var assignableStatuses = []enums.OrderStatus{
	enums.OrderStatusVendorAccepted,
	enums.OrderStatusDriverPending,
	enums.OrderStatusDriverRejected,
	enums.OrderStatusDriverAccepted,
}

// AssignDriver claims driverID for the order. Managers are limited to their
// zone and to drivers whose cash debt stays under the ceiling.
func (c *Coordinator) AssignDriver(ctx context.Context, actor auth.Actor, orderID, driverID uuid.UUID) (*models.Order, error) {
	if driverID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver id required")
	}

	var order *models.Order
	err := c.run(ctx, "assign_driver", func(tx *gorm.DB) (*events.Envelope, error) {
		var err error
		order, err = c.load(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		if err := c.authorizeZone(ctx, tx, actor, order.ZoneID); err != nil {
			return nil, err
		}
		prev := order.Status
		if err := requireStatus(order, assignableStatuses...); err != nil {
			return nil, err
		}
		if order.DriverID != nil && *order.DriverID == driverID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "driver already assigned to this order")
		}

		profile, err := c.drivers.Get(ctx, tx, driverID)
		if err != nil {
			return nil, err
		}
		if actor.Role == enums.ActorRoleManager {
			if profile.ZoneID != order.ZoneID {
				return nil, forbidden("driver works in another zone")
			}
			if err := c.checkDriverDebt(ctx, tx, order, driverID); err != nil {
				return nil, err
			}
		}

		if err := c.drivers.Claim(ctx, tx, driverID); err != nil {
			return nil, err
		}
		previous := order.DriverID
		if previous != nil {
			if err := c.drivers.Release(ctx, tx, *previous); err != nil {
				return nil, err
			}
		}

		order.DriverID = &driverID
		if actor.Role == enums.ActorRoleManager {
			manager := actor.UserID
			order.ManagerID = &manager
		}
		if err := moveTo(order, enums.OrderStatusDriverPending); err != nil {
			return nil, err
		}
		if err := c.save(ctx, tx, order, prev); err != nil {
			return nil, err
		}

		meta := map[string]any{"driver_id": driverID.String()}
		if previous != nil {
			meta["previous_driver_id"] = previous.String()
		}
		return &events.Envelope{
			Order:     order,
			Lifecycle: lifecycle(order, enums.LifecycleDriverAssigned, prev, actor, c.now(), meta),
			Notifications: []events.Notification{
				notification(enums.NotificationDriverAssigned, order, driverID),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// checkDriverDebt rejects the assignment when the driver's existing debt plus
// the cash this order would put in their hands exceeds the ceiling.
func (c *Coordinator) checkDriverDebt(ctx context.Context, tx *gorm.DB, order *models.Order, driverID uuid.UUID) error {
	cfg, err := c.currentSettings(ctx)
	if err != nil {
		return err
	}
	w, err := c.ledger.Balance(ctx, tx, enums.WalletOwnerDriver, driverID)
	if err != nil {
		return err
	}
	exposure := money.NonNegative(w.Balance.Neg())
	if order.IsCash() {
		exposure = exposure.Add(order.OrderTotal)
	}
	if exposure.GreaterThan(cfg.MaxDriverDebt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "driver cash debt would exceed the allowed maximum").
			WithDetails(map[string]any{
				"driver_id": driverID,
				"exposure":  exposure.StringFixed(2),
				"maximum":   cfg.MaxDriverDebt.StringFixed(2),
			})
	}
	return nil
}

