package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetNXLock(t *testing.T) {
	ctx := context.Background()
	client := NewWithStore(newMockCmdable())

	ok, err := client.SetNX(ctx, client.LockKey("job"), "worker-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, client.LockKey("job"), "worker-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.Del(ctx, client.LockKey("job")))
	_, err = client.Get(ctx, client.LockKey("job"))
	assert.ErrorIs(t, err, redis.Nil)
}

func TestPublishRecordsChannel(t *testing.T) {
	mock := newMockCmdable()
	client := NewWithStore(mock)

	_, err := client.Publish(context.Background(), client.ChannelKey("order", "o-1"), `{"id":"o-1"}`)
	require.NoError(t, err)
	require.Len(t, mock.published, 1)
	assert.Equal(t, "pd:rt:order:o-1", mock.published[0].channel)
}

func TestHashRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := NewWithStore(newMockCmdable())

	require.NoError(t, client.HSet(ctx, client.SettingsKey("commission"), map[string]string{"vendor_rate": "12"}))
	values, err := client.HGetAll(ctx, client.SettingsKey("commission"))
	require.NoError(t, err)
	assert.Equal(t, "12", values["vendor_rate"])

	empty, err := client.HGetAll(ctx, client.SettingsKey("missing"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	_, err := client.Publish(context.Background(), "c", "p")
	assert.Error(t, err)
	assert.Error(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "pd:lock:auto-release", client.LockKey("auto-release"))
	assert.Equal(t, "pd:rt:zone:z1", client.ChannelKey("zone", "z1"))
	assert.Equal(t, "pd:settings:commission", client.SettingsKey("commission"))
	assert.Equal(t, "pd:drivers:geo:z1", client.DriverGeoKey("z1"))
	assert.Equal(t, "pd:idem:abc:k-1", client.IdempotencyKey("abc", "k-1"))
	assert.Equal(t, "pd:rt:order", client.ChannelKey("order", " "))
}

type publishCall struct {
	channel string
	payload any
}

type mockCmdable struct {
	data      map[string]string
	hashes    map[string]map[string]string
	geo       map[string][]redis.GeoLocation
	published []publishCall
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:   make(map[string]string),
		hashes: make(map[string]map[string]string),
		geo:    make(map[string][]redis.GeoLocation),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) Publish(_ context.Context, channel string, payload any) *redis.IntCmd {
	m.published = append(m.published, publishCall{channel: channel, payload: payload})
	return redis.NewIntResult(1, nil)
}

func (m *mockCmdable) HGetAll(_ context.Context, key string) *redis.MapStringStringCmd {
	out := map[string]string{}
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (m *mockCmdable) HSet(_ context.Context, key string, values ...any) *redis.IntCmd {
	if m.hashes[key] == nil {
		m.hashes[key] = map[string]string{}
	}
	for i := 0; i+1 < len(values); i += 2 {
		m.hashes[key][fmt.Sprint(values[i])] = fmt.Sprint(values[i+1])
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func (m *mockCmdable) GeoAdd(_ context.Context, key string, locs ...*redis.GeoLocation) *redis.IntCmd {
	for _, loc := range locs {
		m.geo[key] = append(m.geo[key], *loc)
	}
	return redis.NewIntResult(int64(len(locs)), nil)
}

func (m *mockCmdable) GeoRadius(_ context.Context, key string, _, _ float64, _ *redis.GeoRadiusQuery) *redis.GeoLocationCmd {
	return redis.NewGeoLocationCmdResult(m.geo[key], nil)
}

func (m *mockCmdable) ZRem(_ context.Context, key string, members ...any) *redis.IntCmd {
	kept := m.geo[key][:0]
	for _, loc := range m.geo[key] {
		drop := false
		for _, member := range members {
			if fmt.Sprint(member) == loc.Name {
				drop = true
			}
		}
		if !drop {
			kept = append(kept, loc)
		}
	}
	m.geo[key] = kept
	return redis.NewIntResult(int64(len(members)), nil)
}
