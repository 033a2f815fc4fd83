package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

type stubSinks struct {
	views    []OrderView
	zones    []uuid.UUID
	tracked  []LifecycleEvent
	notified []enums.NotificationTemplate
	failAll  bool
}

func (s *stubSinks) Notify(ctx context.Context, userID uuid.UUID, template enums.NotificationTemplate, payload map[string]any) error {
	return s.NotifyMany(ctx, []uuid.UUID{userID}, template, payload)
}

func (s *stubSinks) NotifyMany(_ context.Context, _ []uuid.UUID, template enums.NotificationTemplate, _ map[string]any) error {
	s.notified = append(s.notified, template)
	if s.failAll {
		return errors.New("notify down")
	}
	return nil
}

func (s *stubSinks) BroadcastOrderUpdate(_ context.Context, view OrderView, zoneID uuid.UUID) error {
	s.views = append(s.views, view)
	s.zones = append(s.zones, zoneID)
	if s.failAll {
		return errors.New("redis down")
	}
	return nil
}

func (s *stubSinks) TrackLifecycleEvent(_ context.Context, event LifecycleEvent) error {
	s.tracked = append(s.tracked, event)
	if s.failAll {
		return errors.New("pubsub down")
	}
	return nil
}

func TestDispatcherFansOutToEverySink(t *testing.T) {
	sinks := &stubSinks{}
	d, err := NewDispatcher(sinks, sinks, sinks, logger.Nop())
	require.NoError(t, err)

	otp := "123456"
	order := &models.Order{ID: uuid.New(), ZoneID: uuid.New(), Status: enums.OrderStatusShipped, DeliveryOTP: &otp}
	d.Emit(context.Background(), Envelope{
		Order:     order,
		Lifecycle: &LifecycleEvent{OrderID: order.ID, Type: enums.LifecyclePickedUp, NewStatus: order.Status},
		Notifications: []Notification{
			{UserIDs: []uuid.UUID{uuid.New()}, Template: enums.NotificationOrderPickedUp},
			{Template: enums.NotificationOrderOnTheWay},
		},
	})

	require.Len(t, sinks.views, 1)
	assert.Equal(t, order.ID, sinks.views[0].ID)
	assert.Equal(t, order.ZoneID, sinks.zones[0])
	require.Len(t, sinks.tracked, 1)
	assert.Equal(t, enums.LifecyclePickedUp, sinks.tracked[0].Type)
	assert.Equal(t, []enums.NotificationTemplate{enums.NotificationOrderPickedUp}, sinks.notified, "empty recipient lists are skipped")
}

func TestDispatcherSwallowsSinkFailures(t *testing.T) {
	sinks := &stubSinks{failAll: true}
	d, err := NewDispatcher(sinks, sinks, sinks, logger.Nop())
	require.NoError(t, err)

	order := &models.Order{ID: uuid.New()}
	assert.NotPanics(t, func() {
		d.Emit(context.Background(), Envelope{
			Order:         order,
			Lifecycle:     &LifecycleEvent{OrderID: order.ID},
			Notifications: []Notification{{UserIDs: []uuid.UUID{uuid.New()}, Template: enums.NotificationOrderPlaced}},
		})
	})
	assert.Len(t, sinks.views, 1)
	assert.Len(t, sinks.tracked, 1)
	assert.Len(t, sinks.notified, 1)
}

func TestDispatcherSkipsNilSinks(t *testing.T) {
	d, err := NewDispatcher(nil, nil, nil, logger.Nop())
	require.NoError(t, err)
	d.Emit(context.Background(), Envelope{Order: &models.Order{ID: uuid.New()}, Lifecycle: &LifecycleEvent{}})

	_, err = NewDispatcher(nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestOrderViewOmitsOTP(t *testing.T) {
	otp := "999999"
	view := NewOrderView(&models.Order{ID: uuid.New(), DeliveryOTP: &otp, VendorCommissionApplied: true})
	assert.NotContains(t, mustJSON(t, view), "999999")
	assert.NotContains(t, mustJSON(t, view), "commission_applied")
}
