package drivers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/api/middleware"
	internaldrivers "github.com/angelmondragon/packdrop-backend/internal/drivers"
	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

type stubDrivers struct {
	internaldrivers.Service
	online   *bool
	radiusKm float64
}

func (s *stubDrivers) SetAvailability(_ context.Context, driverID uuid.UUID, online bool) (*models.DriverProfile, error) {
	s.online = &online
	status := enums.DriverStatusOffline
	if online {
		status = enums.DriverStatusAvailable
	}
	return &models.DriverProfile{UserID: driverID, Status: status}, nil
}

func (s *stubDrivers) Nearby(_ context.Context, _ uuid.UUID, _, _, radiusKm float64) ([]internaldrivers.NearbyDriver, error) {
	s.radiusKm = radiusKm
	return []internaldrivers.NearbyDriver{{UserID: uuid.New(), Status: enums.DriverStatusAvailable, DistanceKm: 1.2}}, nil
}

type stubZones struct{ managed bool }

func (s stubZones) ManagesZone(context.Context, *gorm.DB, uuid.UUID, uuid.UUID) (bool, error) {
	return s.managed, nil
}

func actorRequest(method, target, body string, role enums.ActorRole, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := middleware.WithActor(req.Context(), auth.Actor{UserID: uuid.New(), Role: role})
	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, routeCtx))
}

func TestSetAvailabilityRequiresFlag(t *testing.T) {
	svc := &stubDrivers{}
	rec := httptest.NewRecorder()
	SetAvailability(svc, logger.Nop())(rec, actorRequest(http.MethodPost, "/", `{}`, enums.ActorRoleDriver, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	SetAvailability(svc, logger.Nop())(rec, actorRequest(http.MethodPost, "/", `{"online":false}`, enums.ActorRoleDriver, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.online)
	assert.False(t, *svc.online)
	assert.Contains(t, rec.Body.String(), string(enums.DriverStatusOffline))
}

func TestNearbyChecksZoneAndDefaultsRadius(t *testing.T) {
	svc := &stubDrivers{}
	params := map[string]string{"zoneId": uuid.NewString()}

	rec := httptest.NewRecorder()
	Nearby(svc, stubZones{managed: false}, logger.Nop())(rec, actorRequest(http.MethodGet, "/?lat=19.4&lng=-99.1", "", enums.ActorRoleManager, params))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	Nearby(svc, stubZones{managed: true}, logger.Nop())(rec, actorRequest(http.MethodGet, "/?lat=19.4&lng=-99.1", "", enums.ActorRoleManager, params))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, defaultRadiusKm, svc.radiusKm)

	rec = httptest.NewRecorder()
	Nearby(svc, nil, logger.Nop())(rec, actorRequest(http.MethodGet, "/?lat=120&lng=-99.1", "", enums.ActorRoleAdmin, params))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
