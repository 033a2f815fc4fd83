// Package orders exposes the order lifecycle over HTTP. Handlers take the
// narrow coordinator interface they drive; authorization beyond the route's
// role group happens in the coordinator.
package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packdrop-backend/api/middleware"
	"github.com/angelmondragon/packdrop-backend/api/responses"
	"github.com/angelmondragon/packdrop-backend/api/validators"
	internalorders "github.com/angelmondragon/packdrop-backend/internal/orders"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

const maxReasonLength = 500

type createItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type createOrderRequest struct {
	VendorID      string              `json:"vendor_id" validate:"required,uuid"`
	AddressID     string              `json:"address_id" validate:"required,uuid"`
	Items         []createItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string              `json:"payment_method" validate:"required,oneof=wallet cash"`
	Tip           *decimal.Decimal    `json:"tip"`
	Notes         *string             `json:"notes" validate:"omitempty,max=500"`
}

func (req createOrderRequest) toInput() (internalorders.CreateOrderInput, error) {
	method, err := enums.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return internalorders.CreateOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	in := internalorders.CreateOrderInput{
		VendorID:      uuid.MustParse(req.VendorID),
		AddressID:     uuid.MustParse(req.AddressID),
		PaymentMethod: method,
		Tip:           decimal.Zero,
		Notes:         req.Notes,
	}
	if req.Tip != nil {
		if req.Tip.IsNegative() {
			return internalorders.CreateOrderInput{}, pkgerrors.New(pkgerrors.CodeValidation, "tip must not be negative")
		}
		in.Tip = *req.Tip
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, internalorders.ItemInput{
			ProductID: uuid.MustParse(item.ProductID),
			Quantity:  item.Quantity,
		})
	}
	return in, nil
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type completeRequest struct {
	OTP *string `json:"otp" validate:"omitempty,len=6,numeric"`
}

// Create places a customer order.
func Create(svc internalorders.Creator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		in, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateOrder(r.Context(), actor, in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order, actor))
	}
}

// List returns the orders visible to the caller's role, newest first.
func List(svc internalorders.Reader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := internalorders.ListFilter{Params: params}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(strings.ToUpper(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filter.Status = &status
		}

		page, err := svc.ListOrders(r.Context(), actor, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderPage(page, actor))
	}
}

// Detail returns one order after the coordinator's visibility check.
func Detail(svc internalorders.Reader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order, actor))
	}
}

func Cancel(svc internalorders.Canceller, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return withReason(logg, false, svc.CancelOrder)
}

// Complete finishes a delivery. Wallet orders require the customer's OTP.
func Complete(svc internalorders.DeliveryTransitions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload completeRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.CompleteDelivery(r.Context(), actor, orderID, payload.OTP)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order, actor))
	}
}
