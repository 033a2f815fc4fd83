package orders

import (
	"net/http"

	"github.com/angelmondragon/packdrop-backend/api/responses"
	"github.com/angelmondragon/packdrop-backend/api/validators"
	internalorders "github.com/angelmondragon/packdrop-backend/internal/orders"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

type vendorAcceptRequest struct {
	PrepMinutes *int `json:"prep_minutes" validate:"omitempty,min=1,max=240"`
}

// VendorAccept confirms a placed order, optionally with a preparation estimate.
func VendorAccept(svc internalorders.VendorTransitions, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload vendorAcceptRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.VendorAccept(r.Context(), actor, orderID, payload.PrepMinutes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order, actor))
	}
}

func VendorReject(svc internalorders.VendorTransitions, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return withReason(logg, true, svc.VendorReject)
}

func MarkReady(svc internalorders.VendorTransitions, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return transition(logg, svc.MarkReady)
}
