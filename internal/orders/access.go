package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
)

func requireRole(actor auth.Actor, roles ...enums.ActorRole) error {
	if actor.Is(roles...) {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeForbidden, "role %s may not perform this action", actor.Role)
}

func forbidden(msg string) error {
	return pkgerrors.New(pkgerrors.CodeForbidden, msg)
}

// authorizeVendor checks that actor owns the order's vendor and returns it.
func (c *Coordinator) authorizeVendor(ctx context.Context, tx *gorm.DB, actor auth.Actor, order *models.Order) (*models.Vendor, error) {
	if err := requireRole(actor, enums.ActorRoleVendor); err != nil {
		return nil, err
	}
	vendor, err := c.catalog.Vendor(ctx, tx, order.VendorID)
	if err != nil {
		return nil, err
	}
	if vendor.UserID != actor.UserID {
		return nil, forbidden("order belongs to another vendor")
	}
	return vendor, nil
}

func authorizeDriver(actor auth.Actor, order *models.Order) error {
	if err := requireRole(actor, enums.ActorRoleDriver); err != nil {
		return err
	}
	if order.DriverID == nil || *order.DriverID != actor.UserID {
		return forbidden("order is not assigned to this driver")
	}
	return nil
}

// authorizeZone lets admins through and requires managers to manage zoneID.
func (c *Coordinator) authorizeZone(ctx context.Context, tx *gorm.DB, actor auth.Actor, zoneID uuid.UUID) error {
	if err := requireRole(actor, enums.ActorRoleManager, enums.ActorRoleAdmin); err != nil {
		return err
	}
	if actor.Role == enums.ActorRoleAdmin {
		return nil
	}
	ok, err := c.catalog.ManagesZone(ctx, tx, actor.UserID, zoneID)
	if err != nil {
		return err
	}
	if !ok {
		return forbidden("zone is managed by someone else")
	}
	return nil
}

// authorizeView applies the read scope: customers and vendors see their own
// orders, drivers their assigned ones, managers their zones, admins all.
func (c *Coordinator) authorizeView(ctx context.Context, tx *gorm.DB, actor auth.Actor, order *models.Order) error {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return nil
	case enums.ActorRoleCustomer:
		if order.CustomerID == actor.UserID {
			return nil
		}
	case enums.ActorRoleVendor:
		_, err := c.authorizeVendor(ctx, tx, actor, order)
		return err
	case enums.ActorRoleDriver:
		return authorizeDriver(actor, order)
	case enums.ActorRoleManager:
		return c.authorizeZone(ctx, tx, actor, order.ZoneID)
	}
	return forbidden("order not visible to this user")
}

// parties resolves the user ids notified about an order. Lookup failures
// leave the id out; notifications are best effort.
type parties struct {
	customer uuid.UUID
	vendor   uuid.UUID
	driver   uuid.UUID
	manager  uuid.UUID
}

func (c *Coordinator) partiesOf(ctx context.Context, tx *gorm.DB, order *models.Order) parties {
	p := parties{customer: order.CustomerID}
	if order.DriverID != nil {
		p.driver = *order.DriverID
	}
	if vendor, err := c.catalog.Vendor(ctx, tx, order.VendorID); err == nil {
		p.vendor = vendor.UserID
	}
	if zone, err := c.catalog.Zone(ctx, tx, order.ZoneID); err == nil && zone.ManagerID != nil {
		p.manager = *zone.ManagerID
	}
	return p
}
