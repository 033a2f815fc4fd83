package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/packdrop-backend/api/responses"
	"github.com/angelmondragon/packdrop-backend/api/validators"
	internalorders "github.com/angelmondragon/packdrop-backend/internal/orders"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

type assignRequest struct {
	DriverID string `json:"driver_id" validate:"required,uuid"`
}

// AssignDriver hands a ready order to a driver in the manager's zone.
func AssignDriver(svc internalorders.Dispatcher, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload assignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.AssignDriver(r.Context(), actor, orderID, uuid.MustParse(payload.DriverID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order, actor))
	}
}
