// Package drivers guards driver assignment and tracks driver availability
// and position.
package drivers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

const defaultNearbyLimit = 20

type geoIndex interface {
	GeoAdd(ctx context.Context, key, member string, lat, lng float64) error
	GeoRemove(ctx context.Context, key string, members ...string) error
	GeoNearby(ctx context.Context, key string, lat, lng, radiusKm float64, limit int) ([]redis.GeoLocation, error)
	DriverGeoKey(zoneID string) string
}

// NearbyDriver is an available driver close to a point.
type NearbyDriver struct {
	UserID     uuid.UUID          `json:"user_id"`
	Status     enums.DriverStatus `json:"status"`
	DistanceKm float64            `json:"distance_km"`
}

// Service exposes the assignment guard and availability operations.
type Service interface {
	Claim(ctx context.Context, tx *gorm.DB, driverID uuid.UUID) error
	Release(ctx context.Context, tx *gorm.DB, driverID uuid.UUID) error
	Get(ctx context.Context, tx *gorm.DB, driverID uuid.UUID) (*models.DriverProfile, error)
	SetAvailability(ctx context.Context, driverID uuid.UUID, online bool) (*models.DriverProfile, error)
	UpdateLocation(ctx context.Context, driverID uuid.UUID, lat, lng float64) error
	Nearby(ctx context.Context, zoneID uuid.UUID, lat, lng, radiusKm float64) ([]NearbyDriver, error)
	ListByZone(ctx context.Context, zoneID uuid.UUID, status *enums.DriverStatus) ([]models.DriverProfile, error)
}

type service struct {
	repo Repository
	geo  geoIndex
	logg *logger.Logger
}

// NewService wires the driver guard. geo may be nil, which disables
// position tracking.
func NewService(repo Repository, geo geoIndex, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("driver repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, geo: geo, logg: logg}, nil
}

// Claim marks the driver BUSY. At most one concurrent claim can succeed; the
// losers get RESOURCE_CONFLICT.
func (s *service) Claim(ctx context.Context, tx *gorm.DB, driverID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	n, err := repo.ClaimIfFree(ctx, driverID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "claim driver")
	}
	if n > 0 {
		return nil
	}
	if _, err := s.Get(ctx, tx, driverID); err != nil {
		return err
	}
	return pkgerrors.New(pkgerrors.CodeResourceConflict, "driver already busy").
		WithDetails(map[string]any{"driver_id": driverID})
}

func (s *service) Release(ctx context.Context, tx *gorm.DB, driverID uuid.UUID) error {
	if err := s.repo.WithTx(tx).SetStatus(ctx, driverID, enums.DriverStatusAvailable); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release driver")
	}
	return nil
}

func (s *service) Get(ctx context.Context, tx *gorm.DB, driverID uuid.UUID) (*models.DriverProfile, error) {
	profile, err := s.repo.WithTx(tx).Find(ctx, driverID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "driver not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load driver")
	}
	return profile, nil
}

// SetAvailability toggles a driver between OFFLINE and AVAILABLE. A driver on
// an active delivery stays BUSY until the order releases them.
func (s *service) SetAvailability(ctx context.Context, driverID uuid.UUID, online bool) (*models.DriverProfile, error) {
	profile, err := s.Get(ctx, nil, driverID)
	if err != nil {
		return nil, err
	}
	if profile.Status == enums.DriverStatusBusy {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "driver is on an active delivery")
	}

	target := enums.DriverStatusOffline
	if online {
		target = enums.DriverStatusAvailable
	}
	if profile.Status != target {
		if err := s.repo.SetStatus(ctx, driverID, target); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update driver status")
		}
		profile.Status = target
	}

	if !online && s.geo != nil {
		if err := s.geo.GeoRemove(ctx, s.geo.DriverGeoKey(profile.ZoneID.String()), driverID.String()); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "driver_id", driverID.String()), "failed to drop driver position")
		}
	}
	return profile, nil
}

// UpdateLocation records the driver's position in the zone geo index.
func (s *service) UpdateLocation(ctx context.Context, driverID uuid.UUID, lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range")
	}
	profile, err := s.Get(ctx, nil, driverID)
	if err != nil {
		return err
	}
	if profile.Status == enums.DriverStatusOffline {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "driver is offline")
	}
	if s.geo == nil {
		return nil
	}
	if err := s.geo.GeoAdd(ctx, s.geo.DriverGeoKey(profile.ZoneID.String()), driverID.String(), lat, lng); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store driver position")
	}
	return nil
}

// Nearby lists AVAILABLE drivers of the zone within radiusKm, nearest first.
func (s *service) Nearby(ctx context.Context, zoneID uuid.UUID, lat, lng, radiusKm float64) ([]NearbyDriver, error) {
	if radiusKm <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "radius must be positive")
	}
	if s.geo == nil {
		return []NearbyDriver{}, nil
	}

	locations, err := s.geo.GeoNearby(ctx, s.geo.DriverGeoKey(zoneID.String()), lat, lng, radiusKm, defaultNearbyLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query driver positions")
	}

	ids := make([]uuid.UUID, 0, len(locations))
	dist := make(map[uuid.UUID]float64, len(locations))
	for _, loc := range locations {
		id, err := uuid.Parse(loc.Name)
		if err != nil {
			continue
		}
		ids = append(ids, id)
		dist[id] = loc.Dist
	}

	profiles, err := s.repo.FindMany(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load drivers")
	}
	available := make(map[uuid.UUID]bool, len(profiles))
	for _, p := range profiles {
		if p.Status == enums.DriverStatusAvailable && p.ZoneID == zoneID {
			available[p.UserID] = true
		}
	}

	out := make([]NearbyDriver, 0, len(ids))
	for _, id := range ids {
		if available[id] {
			out = append(out, NearbyDriver{UserID: id, Status: enums.DriverStatusAvailable, DistanceKm: dist[id]})
		}
	}
	return out, nil
}

func (s *service) ListByZone(ctx context.Context, zoneID uuid.UUID, status *enums.DriverStatus) ([]models.DriverProfile, error) {
	profiles, err := s.repo.ListByZone(ctx, zoneID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list drivers")
	}
	return profiles, nil
}
