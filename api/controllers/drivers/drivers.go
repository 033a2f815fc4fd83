// Package drivers serves driver availability and the dispatcher's view of
// drivers in a zone.
package drivers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/api/middleware"
	"github.com/angelmondragon/packdrop-backend/api/responses"
	"github.com/angelmondragon/packdrop-backend/api/validators"
	internaldrivers "github.com/angelmondragon/packdrop-backend/internal/drivers"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

const defaultRadiusKm = 5.0

// ZoneAuthorizer answers whether a manager runs a zone.
type ZoneAuthorizer interface {
	ManagesZone(ctx context.Context, tx *gorm.DB, managerID, zoneID uuid.UUID) (bool, error)
}

type profileResponse struct {
	UserID      uuid.UUID          `json:"user_id"`
	ZoneID      uuid.UUID          `json:"zone_id"`
	Status      enums.DriverStatus `json:"status"`
	VehicleType string             `json:"vehicle_type,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func newProfileResponse(p *models.DriverProfile) profileResponse {
	return profileResponse{
		UserID:      p.UserID,
		ZoneID:      p.ZoneID,
		Status:      p.Status,
		VehicleType: p.VehicleType,
		UpdatedAt:   p.UpdatedAt,
	}
}

type availabilityRequest struct {
	Online *bool `json:"online" validate:"required"`
}

type locationRequest struct {
	Lat *float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lng *float64 `json:"lng" validate:"required,min=-180,max=180"`
}

// SetAvailability toggles the calling driver between offline and available.
func SetAvailability(svc internaldrivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drivers service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload availabilityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.SetAvailability(r.Context(), actor.UserID, *payload.Online)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProfileResponse(profile))
	}
}

// UpdateLocation stores the calling driver's last known position.
func UpdateLocation(svc internaldrivers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drivers service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload locationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UpdateLocation(r.Context(), actor.UserID, *payload.Lat, *payload.Lng); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ZoneDrivers lists a zone's drivers, optionally filtered by status.
func ZoneDrivers(svc internaldrivers.Service, zones ZoneAuthorizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drivers service unavailable"))
			return
		}
		zoneID, err := authorizeZone(r, zones)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var status *enums.DriverStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseDriverStatus(strings.ToUpper(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}
		profiles, err := svc.ListByZone(r.Context(), zoneID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]profileResponse, 0, len(profiles))
		for i := range profiles {
			out = append(out, newProfileResponse(&profiles[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// Nearby returns the zone's available drivers within radius_km of a point,
// closest first.
func Nearby(svc internaldrivers.Service, zones ZoneAuthorizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "drivers service unavailable"))
			return
		}
		zoneID, err := authorizeZone(r, zones)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lat, err := parseFloat(r, "lat", -90, 90, nil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lng, err := parseFloat(r, "lng", -180, 180, nil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		radius := defaultRadiusKm
		radius, err = parseFloat(r, "radius_km", 0.1, 100, &radius)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		nearby, err := svc.Nearby(r.Context(), zoneID, lat, lng, radius)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if nearby == nil {
			nearby = []internaldrivers.NearbyDriver{}
		}
		responses.WriteSuccess(w, nearby)
	}
}

func authorizeZone(r *http.Request, zones ZoneAuthorizer) (uuid.UUID, error) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		return uuid.Nil, err
	}
	zoneID, err := validators.URLParamUUID(r, "zoneId")
	if err != nil {
		return uuid.Nil, err
	}
	if actor.Is(enums.ActorRoleAdmin) {
		return zoneID, nil
	}
	if zones == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeInternal, "zone lookup unavailable")
	}
	ok, err := zones.ManagesZone(r.Context(), nil, actor.UserID, zoneID)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "zone is not managed by caller")
	}
	return zoneID, nil
}

func parseFloat(r *http.Request, key string, min, max float64, fallback *float64) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		if fallback != nil {
			return *fallback, nil
		}
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s is required", key).WithDetails(map[string]any{"field": key})
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}
