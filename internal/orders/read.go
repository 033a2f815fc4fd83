package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/pagination"
)

func (c *Coordinator) GetOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := c.load(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	if err := c.authorizeView(ctx, nil, actor, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders pages through the orders visible to actor, newest first.
func (c *Coordinator) ListOrders(ctx context.Context, actor auth.Actor, filter ListFilter) (*pagination.Page[models.Order], error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", *filter.Status)
	}
	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	scope, err := c.scopeFor(ctx, nil, actor)
	if err != nil {
		return nil, err
	}
	scope.Status = filter.Status

	rows, err := c.orders.List(ctx, scope, cursor, pagination.LimitWithBuffer(filter.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	page := pagination.Trim(rows, filter.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

func (c *Coordinator) scopeFor(ctx context.Context, tx *gorm.DB, actor auth.Actor) (Scope, error) {
	id := actor.UserID
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return Scope{}, nil
	case enums.ActorRoleCustomer:
		return Scope{CustomerID: &id}, nil
	case enums.ActorRoleDriver:
		return Scope{DriverID: &id}, nil
	case enums.ActorRoleVendor:
		vendor, err := c.catalog.VendorByUser(ctx, tx, id)
		if err != nil {
			return Scope{}, err
		}
		return Scope{VendorID: &vendor.ID}, nil
	case enums.ActorRoleManager:
		zones, err := c.catalog.ManagedZones(ctx, tx, id)
		if err != nil {
			return Scope{}, err
		}
		if zones == nil {
			zones = []uuid.UUID{}
		}
		return Scope{ZoneIDs: zones}, nil
	}
	return Scope{}, forbidden("orders not visible to this role")
}
