// Package admin serves platform reporting and configuration endpoints.
package admin

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packdrop-backend/api/middleware"
	"github.com/angelmondragon/packdrop-backend/api/responses"
	"github.com/angelmondragon/packdrop-backend/api/validators"
	"github.com/angelmondragon/packdrop-backend/internal/commission"
	internalorders "github.com/angelmondragon/packdrop-backend/internal/orders"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
	"github.com/angelmondragon/packdrop-backend/pkg/pagination"
)

type snapshotResponse struct {
	ID         uuid.UUID              `json:"id"`
	OrderID    uuid.UUID              `json:"order_id"`
	Source     enums.CommissionSource `json:"source"`
	VendorID   uuid.UUID              `json:"vendor_id"`
	DriverID   *uuid.UUID             `json:"driver_id,omitempty"`
	Rate       decimal.Decimal        `json:"rate"`
	BaseAmount decimal.Decimal        `json:"base_amount"`
	Value      decimal.Decimal        `json:"value"`
	NetAmount  decimal.Decimal        `json:"net_amount"`
	CreatedAt  time.Time              `json:"created_at"`
}

func newSnapshotResponse(s models.CommissionSnapshot) snapshotResponse {
	return snapshotResponse{
		ID:         s.ID,
		OrderID:    s.OrderID,
		Source:     s.Source,
		VendorID:   s.VendorID,
		DriverID:   s.DriverID,
		Rate:       s.Rate,
		BaseAmount: s.BaseAmount,
		Value:      s.Value,
		NetAmount:  s.NetAmount,
		CreatedAt:  s.CreatedAt,
	}
}

func parseReportFilter(r *http.Request) (commission.ReportFilter, error) {
	var (
		filter commission.ReportFilter
		err    error
	)
	if filter.OrderID, err = validators.ParseQueryUUID(r, "order_id"); err != nil {
		return filter, err
	}
	if filter.VendorID, err = validators.ParseQueryUUID(r, "vendor_id"); err != nil {
		return filter, err
	}
	if filter.DriverID, err = validators.ParseQueryUUID(r, "driver_id"); err != nil {
		return filter, err
	}
	if filter.From, err = validators.ParseQueryTime(r, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = validators.ParseQueryTime(r, "to"); err != nil {
		return filter, err
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("source")); raw != "" {
		source, err := enums.ParseCommissionSource(strings.ToUpper(raw))
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid source filter")
		}
		filter.Source = &source
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, pkgerrors.New(pkgerrors.CodeValidation, "to must not precede from")
	}
	return filter, nil
}

// CommissionSummary aggregates recorded commission over the filter.
func CommissionSummary(svc commission.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		filter, err := parseReportFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.Summarize(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// CommissionSnapshots pages through individual snapshots, newest first.
func CommissionSnapshots(svc commission.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}
		filter, err := parseReportFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListSnapshots(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := pagination.Page[snapshotResponse]{Items: []snapshotResponse{}, NextCursor: page.NextCursor}
		for _, s := range page.Items {
			out.Items = append(out.Items, newSnapshotResponse(s))
		}
		responses.WriteSuccess(w, out)
	}
}

// OrderCommissions lists the snapshots of one order the caller can see.
func OrderCommissions(reader internalorders.Reader, svc commission.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
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
		if _, err := reader.GetOrder(r.Context(), actor, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snapshots, err := svc.ListByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]snapshotResponse, 0, len(snapshots))
		for _, s := range snapshots {
			out = append(out, newSnapshotResponse(s))
		}
		responses.WriteSuccess(w, out)
	}
}
