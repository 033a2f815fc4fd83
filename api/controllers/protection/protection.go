package protection

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packdrop-backend/api/middleware"
	"github.com/angelmondragon/packdrop-backend/api/responses"
	"github.com/angelmondragon/packdrop-backend/api/validators"
	internalprotection "github.com/angelmondragon/packdrop-backend/internal/protection"
	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

type holdResponse struct {
	OrderID         uuid.UUID               `json:"order_id"`
	Status          enums.HeldBalanceStatus `json:"status"`
	TotalAmount     decimal.Decimal         `json:"total_amount"`
	AutoReleaseDate time.Time               `json:"auto_release_date"`
	ReleasedAt      *time.Time              `json:"released_at,omitempty"`
	DisputeReason   *string                 `json:"dispute_reason,omitempty"`
	DisputedAt      *time.Time              `json:"disputed_at,omitempty"`
}

func newHoldResponse(h *models.HeldBalance) holdResponse {
	return holdResponse{
		OrderID:         h.OrderID,
		Status:          h.Status,
		TotalAmount:     h.TotalAmount,
		AutoReleaseDate: h.AutoReleaseDate,
		ReleasedAt:      h.ReleasedAt,
		DisputeReason:   h.DisputeReason,
		DisputedAt:      h.DisputedAt,
	}
}

type disputeRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

func parse(r *http.Request) (auth.Actor, uuid.UUID, error) {
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

// Status reports the buyer-protection state of a wallet order.
func Status(svc internalprotection.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "protection service unavailable"))
			return
		}
		actor, orderID, err := parse(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := svc.GetStatus(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// Confirm releases the held funds once the customer acknowledges receipt.
func Confirm(svc internalprotection.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "protection service unavailable"))
			return
		}
		actor, orderID, err := parse(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hold, err := svc.ConfirmDeliveryReceipt(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newHoldResponse(hold))
	}
}

// Dispute freezes the held funds pending an admin decision.
func Dispute(svc internalprotection.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "protection service unavailable"))
			return
		}
		actor, orderID, err := parse(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload disputeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hold, err := svc.Dispute(r.Context(), actor, orderID, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newHoldResponse(hold))
	}
}

// DeliveryCode returns the OTP the customer hands to the driver.
func DeliveryCode(svc internalprotection.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "protection service unavailable"))
			return
		}
		actor, orderID, err := parse(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		otp, err := svc.GetDeliveryOTP(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		responses.WriteSuccess(w, map[string]string{"otp": otp})
	}
}
