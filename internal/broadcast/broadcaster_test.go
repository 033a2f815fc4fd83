package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packdrop-backend/internal/events"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
)

type fakePublisher struct {
	sent    map[string][]byte
	failFor string
}

func (f *fakePublisher) Publish(_ context.Context, channel string, payload any) (int64, error) {
	if f.failFor != "" && strings.Contains(channel, f.failFor) {
		return 0, errors.New("connection reset")
	}
	if f.sent == nil {
		f.sent = map[string][]byte{}
	}
	f.sent[channel] = payload.([]byte)
	return 1, nil
}

func (f *fakePublisher) ChannelKey(room, id string) string {
	return "rt:" + room + ":" + id
}

func TestBroadcastCoversEveryRoom(t *testing.T) {
	pub := &fakePublisher{}
	b, err := New(pub)
	require.NoError(t, err)

	driver := uuid.New()
	zone := uuid.New()
	view := events.OrderView{ID: uuid.New(), VendorID: uuid.New(), CustomerID: uuid.New(), DriverID: &driver, Status: enums.OrderStatusShipped}
	require.NoError(t, b.BroadcastOrderUpdate(context.Background(), view, zone))

	assert.Len(t, pub.sent, 5)
	raw, ok := pub.sent["rt:zone:"+zone.String()]
	require.True(t, ok)

	var msg struct {
		Type  string           `json:"type"`
		Order events.OrderView `json:"order"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, EventOrderUpdated, msg.Type)
	assert.Equal(t, view.ID, msg.Order.ID)
	assert.Equal(t, enums.OrderStatusShipped, msg.Order.Status)
}

func TestBroadcastSkipsDriverRoomWhenUnassigned(t *testing.T) {
	pub := &fakePublisher{}
	b, err := New(pub)
	require.NoError(t, err)

	require.NoError(t, b.BroadcastOrderUpdate(context.Background(), events.OrderView{ID: uuid.New()}, uuid.Nil))
	assert.Len(t, pub.sent, 3)
}

func TestBroadcastContinuesPastFailedRoom(t *testing.T) {
	pub := &fakePublisher{failFor: "vendor"}
	b, err := New(pub)
	require.NoError(t, err)

	err = b.BroadcastOrderUpdate(context.Background(), events.OrderView{ID: uuid.New()}, uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rt:vendor:")
	assert.Len(t, pub.sent, 3, "order, customer and zone rooms still published")
}
