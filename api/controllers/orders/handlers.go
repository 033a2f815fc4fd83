package orders

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/packdrop-backend/api/middleware"
	"github.com/angelmondragon/packdrop-backend/api/responses"
	"github.com/angelmondragon/packdrop-backend/api/validators"
	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

type transitionFunc func(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)

type reasonTransitionFunc func(ctx context.Context, actor auth.Actor, orderID uuid.UUID, reason string) (*models.Order, error)

func actorAndOrder(r *http.Request) (auth.Actor, uuid.UUID, error) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		return auth.Actor{}, uuid.Nil, err
	}
	orderID, err := validators.URLParamUUID(r, "orderId")
	if err != nil {
		return auth.Actor{}, uuid.Nil, err
	}
	return actor, orderID, nil
}

func unavailable(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
	}
}

// transition runs a body-less state change on {orderId}.
func transition(logg *logger.Logger, fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := fn(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order, actor))
	}
}

// withReason runs a state change carrying a free-text reason.
func withReason(logg *logger.Logger, required bool, fn reasonTransitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, orderID, err := actorAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload reasonRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reason := validators.SanitizeString(payload.Reason, maxReasonLength)
		if required && reason == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reason is required").WithDetails(map[string]string{"reason": "is required"}))
			return
		}
		order, err := fn(r.Context(), actor, orderID, reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order, actor))
	}
}
