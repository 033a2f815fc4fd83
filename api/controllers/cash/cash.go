// Package cash serves the cash-on-delivery reconciliation endpoints used by
// drivers, zone managers and admins.
package cash

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packdrop-backend/api/middleware"
	"github.com/angelmondragon/packdrop-backend/api/responses"
	"github.com/angelmondragon/packdrop-backend/api/validators"
	internalcash "github.com/angelmondragon/packdrop-backend/internal/cash"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

type confirmationResponse struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	ManagerID   uuid.UUID       `json:"manager_id"`
	DriverID    uuid.UUID       `json:"driver_id"`
	ZoneID      uuid.UUID       `json:"zone_id"`
	Amount      decimal.Decimal `json:"amount"`
	ConfirmedAt time.Time       `json:"confirmed_at"`
}

func newConfirmationResponse(c *models.ManagerCashConfirmation) confirmationResponse {
	return confirmationResponse{
		ID:          c.ID,
		OrderID:     c.OrderID,
		ManagerID:   c.ManagerID,
		DriverID:    c.DriverID,
		ZoneID:      c.ZoneID,
		Amount:      c.Amount,
		ConfirmedAt: c.ConfirmedAt,
	}
}

type payoutResponse struct {
	ID          uuid.UUID       `json:"id"`
	ManagerID   uuid.UUID       `json:"manager_id"`
	AdminID     uuid.UUID       `json:"admin_id"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Amount      decimal.Decimal `json:"amount"`
	Note        *string         `json:"note,omitempty"`
	ConfirmedAt time.Time       `json:"confirmed_at"`
}

type reportResponse struct {
	Count         int64                  `json:"count"`
	Total         decimal.Decimal        `json:"total"`
	Confirmations []confirmationResponse `json:"confirmations"`
	NextCursor    string                 `json:"next_cursor,omitempty"`
}

type payoutRequest struct {
	ManagerID string           `json:"manager_id" validate:"required,uuid"`
	From      time.Time        `json:"from" validate:"required"`
	To        time.Time        `json:"to" validate:"required"`
	Amount    *decimal.Decimal `json:"amount" validate:"omitempty,money"`
	Note      *string          `json:"note" validate:"omitempty,max=500"`
}

// ReportCollection marks that the assigned driver holds a cash order's money.
func ReportCollection(svc internalcash.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cash service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.URLParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.ReportCollection(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"order_id": order.ID, "cash_reported_at": order.CashReportedAt})
	}
}

// ConfirmReceipt records that the zone manager received a driver's cash.
func ConfirmReceipt(svc internalcash.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cash service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.URLParamUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		confirmation, err := svc.ConfirmReceipt(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newConfirmationResponse(confirmation))
	}
}

// ConfirmPayout records an admin collecting a manager's cash for a period.
func ConfirmPayout(svc internalcash.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cash service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload payoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payout, err := svc.ConfirmPayout(r.Context(), actor, internalcash.PayoutInput{
			ManagerID: uuid.MustParse(payload.ManagerID),
			From:      payload.From.UTC(),
			To:        payload.To.UTC(),
			Amount:    payload.Amount,
			Note:      payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payoutResponse{
			ID:          payout.ID,
			ManagerID:   payout.ManagerID,
			AdminID:     payout.AdminID,
			PeriodStart: payout.PeriodStart,
			PeriodEnd:   payout.PeriodEnd,
			Amount:      payout.Amount,
			Note:        payout.Note,
			ConfirmedAt: payout.ConfirmedAt,
		})
	}
}

// OnHand returns the cash a manager holds. Managers see their own balance;
// admins pass manager_id.
func OnHand(svc internalcash.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cash service unavailable"))
			return
		}
		managerID, err := resolveManager(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := svc.CashOnHand(r.Context(), managerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"manager_id": managerID, "cash_on_hand": amount})
	}
}

// Report lists manager confirmations with totals over the whole filter.
func Report(svc internalcash.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cash service unavailable"))
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

		var filter internalcash.ReportFilter
		if filter.ManagerID, err = validators.ParseQueryUUID(r, "manager_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.DriverID, err = validators.ParseQueryUUID(r, "driver_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.From, err = validators.ParseQueryTime(r, "from"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.To, err = validators.ParseQueryTime(r, "to"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.Is(enums.ActorRoleManager) {
			own := actor.UserID
			filter.ManagerID = &own
		}

		report, err := svc.Report(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := reportResponse{Count: report.Count, Total: report.Total, Confirmations: []confirmationResponse{}}
		if report.Confirmations != nil {
			out.NextCursor = report.Confirmations.NextCursor
			for i := range report.Confirmations.Items {
				out.Confirmations = append(out.Confirmations, newConfirmationResponse(&report.Confirmations.Items[i]))
			}
		}
		responses.WriteSuccess(w, out)
	}
}

func resolveManager(r *http.Request) (uuid.UUID, error) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		return uuid.Nil, err
	}
	if actor.Is(enums.ActorRoleManager) {
		return actor.UserID, nil
	}
	managerID, err := validators.ParseQueryUUID(r, "manager_id")
	if err != nil {
		return uuid.Nil, err
	}
	if managerID == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "manager_id is required").WithDetails(map[string]string{"manager_id": "is required"})
	}
	return *managerID, nil
}
