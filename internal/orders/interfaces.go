package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	"github.com/angelmondragon/packdrop-backend/pkg/pagination"
)

// ItemInput is one requested product line.
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateOrderInput is a customer's order request.
type CreateOrderInput struct {
	VendorID      uuid.UUID
	AddressID     uuid.UUID
	Items         []ItemInput
	PaymentMethod enums.PaymentMethod
	Tip           decimal.Decimal
	Notes         *string
}

// ListFilter narrows an order listing.
type ListFilter struct {
	Status *enums.OrderStatus
	pagination.Params
}

// Creator places new orders.
type Creator interface {
	CreateOrder(ctx context.Context, actor auth.Actor, in CreateOrderInput) (*models.Order, error)
}

// Reader serves role-scoped order reads.
type Reader interface {
	GetOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, actor auth.Actor, filter ListFilter) (*pagination.Page[models.Order], error)
}

// VendorTransitions are the vendor's decisions on a placed order.
type VendorTransitions interface {
	VendorAccept(ctx context.Context, actor auth.Actor, orderID uuid.UUID, prepMinutes *int) (*models.Order, error)
	VendorReject(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*models.Order, error)
	MarkReady(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
}

// Dispatcher assigns drivers.
type Dispatcher interface {
	AssignDriver(ctx context.Context, actor auth.Actor, orderID, driverID uuid.UUID) (*models.Order, error)
}

// DriverTransitions are the assigned driver's steps up to delivery.
type DriverTransitions interface {
	DriverAccept(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
	DriverReject(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*models.Order, error)
	ConfirmPickup(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
	StartDelivery(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
	ReportProblem(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*models.Order, error)
}

// DeliveryTransitions completes orders.
type DeliveryTransitions interface {
	CompleteDelivery(ctx context.Context, actor auth.Actor, orderID uuid.UUID, otp *string) (*models.Order, error)
}

// Canceller cancels orders.
type Canceller interface {
	CancelOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*models.Order, error)
}
