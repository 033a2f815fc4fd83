package drivers

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/pkg/db"
	"github.com/angelmondragon/packdrop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
)

type fakeGeo struct {
	mu        sync.Mutex
	positions map[string]redis.GeoLocation
	removed   []string
}

func newFakeGeo() *fakeGeo {
	return &fakeGeo{positions: map[string]redis.GeoLocation{}}
}

func (f *fakeGeo) GeoAdd(_ context.Context, key, member string, lat, lng float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions[key+"|"+member] = redis.GeoLocation{Name: member, Latitude: lat, Longitude: lng}
	return nil
}

func (f *fakeGeo) GeoRemove(_ context.Context, key string, members ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range members {
		delete(f.positions, key+"|"+m)
		f.removed = append(f.removed, m)
	}
	return nil
}

func (f *fakeGeo) GeoNearby(_ context.Context, key string, _, _, _ float64, _ int) ([]redis.GeoLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []redis.GeoLocation
	for k, loc := range f.positions {
		if len(k) > len(key) && k[:len(key)] == key {
			loc.Dist = 1.5
			out = append(out, loc)
		}
	}
	return out, nil
}

func (f *fakeGeo) DriverGeoKey(zoneID string) string {
	return "pd:geo:drivers:" + zoneID
}

func setup(t *testing.T) (*db.Client, Service, *fakeGeo) {
	t.Helper()
	client := dbtest.New(t)
	geo := newFakeGeo()
	svc, err := NewService(NewRepository(client.DB()), geo, nil)
	require.NoError(t, err)
	return client, svc, geo
}

func seedDriver(t *testing.T, conn *gorm.DB, zoneID uuid.UUID, status enums.DriverStatus) uuid.UUID {
	t.Helper()
	profile := models.DriverProfile{UserID: uuid.New(), ZoneID: zoneID, Status: status, VehicleType: "bike"}
	require.NoError(t, conn.Create(&profile).Error)
	return profile.UserID
}

func TestClaimIsExclusive(t *testing.T) {
	client, svc, _ := setup(t)
	ctx := context.Background()
	driverID := seedDriver(t, client.DB(), uuid.New(), enums.DriverStatusAvailable)

	const attempts = 5
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- client.WithTx(ctx, func(tx *gorm.DB) error {
				return svc.Claim(ctx, tx, driverID)
			})
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case pkgerrors.IsCode(err, pkgerrors.CodeResourceConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, conflicts)

	profile, err := svc.Get(ctx, nil, driverID)
	require.NoError(t, err)
	assert.Equal(t, enums.DriverStatusBusy, profile.Status)
}

func TestClaimUnknownDriver(t *testing.T) {
	_, svc, _ := setup(t)
	err := svc.Claim(context.Background(), nil, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestReleaseMakesDriverClaimableAgain(t *testing.T) {
	client, svc, _ := setup(t)
	ctx := context.Background()
	driverID := seedDriver(t, client.DB(), uuid.New(), enums.DriverStatusBusy)

	require.True(t, pkgerrors.IsCode(svc.Claim(ctx, nil, driverID), pkgerrors.CodeResourceConflict))
	require.NoError(t, svc.Release(ctx, nil, driverID))
	require.NoError(t, svc.Claim(ctx, nil, driverID))
}

func TestSetAvailability(t *testing.T) {
	client, svc, geo := setup(t)
	ctx := context.Background()
	zone := uuid.New()
	driverID := seedDriver(t, client.DB(), zone, enums.DriverStatusOffline)

	profile, err := svc.SetAvailability(ctx, driverID, true)
	require.NoError(t, err)
	assert.Equal(t, enums.DriverStatusAvailable, profile.Status)

	require.NoError(t, svc.UpdateLocation(ctx, driverID, 4.6, -74.1))

	profile, err = svc.SetAvailability(ctx, driverID, false)
	require.NoError(t, err)
	assert.Equal(t, enums.DriverStatusOffline, profile.Status)
	assert.Contains(t, geo.removed, driverID.String())

	busy := seedDriver(t, client.DB(), zone, enums.DriverStatusBusy)
	_, err = svc.SetAvailability(ctx, busy, false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
}

func TestUpdateLocationAndNearby(t *testing.T) {
	client, svc, _ := setup(t)
	ctx := context.Background()
	zone := uuid.New()
	available := seedDriver(t, client.DB(), zone, enums.DriverStatusAvailable)
	busy := seedDriver(t, client.DB(), zone, enums.DriverStatusBusy)
	offline := seedDriver(t, client.DB(), zone, enums.DriverStatusOffline)

	require.NoError(t, svc.UpdateLocation(ctx, available, 4.6, -74.1))
	require.NoError(t, svc.UpdateLocation(ctx, busy, 4.61, -74.1))
	err := svc.UpdateLocation(ctx, offline, 4.6, -74.1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	err = svc.UpdateLocation(ctx, available, 123, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	nearby, err := svc.Nearby(ctx, zone, 4.6, -74.1, 5)
	require.NoError(t, err)
	require.Len(t, nearby, 1)
	assert.Equal(t, available, nearby[0].UserID)
	assert.InDelta(t, 1.5, nearby[0].DistanceKm, 0.001)

	_, err = svc.Nearby(ctx, zone, 4.6, -74.1, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
