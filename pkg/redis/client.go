package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/packdrop-backend/pkg/config"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace    = "pd"
	lockPrefix      = "lock"
	channelPrefix   = "rt"
	settingsPrefix  = "settings"
	driverGeoPrefix = "drivers:geo"
	idemPrefix      = "idem"
)

var errNotInitialized = errors.New("redis client not initialized")

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
	Publish(context.Context, string, any) *redis.IntCmd
	HGetAll(context.Context, string) *redis.MapStringStringCmd
	HSet(context.Context, string, ...any) *redis.IntCmd
	GeoAdd(context.Context, string, ...*redis.GeoLocation) *redis.IntCmd
	GeoRadius(context.Context, string, float64, float64, *redis.GeoRadiusQuery) *redis.GeoLocationCmd
	ZRem(context.Context, string, ...any) *redis.IntCmd
}

// Client wraps the redis helpers used for realtime fan-out, job locks,
// settings overrides and driver positions.
type Client struct {
	store cmdable
	raw   *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// New bootstraps a Redis client with pooling/timeouts and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "redis connection established")
	}
	return &Client{store: raw, raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	if opts.Password == "" {
		opts.Password = cfg.Password
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Set stores a string value with an optional TTL.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Set(ctx, key, value, ttl).Err()
}

// Get returns a string value stored at key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.store == nil {
		return "", errNotInitialized
	}
	return c.store.Get(ctx, key).Result()
}

// SetNX sets a value only if the key does not exist yet.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	return c.store.SetNX(ctx, key, value, ttl).Result()
}

// Del removes the provided keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Del(ctx, keys...).Err()
}

// Publish sends payload to a pub/sub channel and returns the receiver count.
func (c *Client) Publish(ctx context.Context, channel string, payload any) (int64, error) {
	if c.store == nil {
		return 0, errNotInitialized
	}
	return c.store.Publish(ctx, channel, payload).Result()
}

// HGetAll returns every field of a hash; a missing key yields an empty map.
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if c.store == nil {
		return nil, errNotInitialized
	}
	return c.store.HGetAll(ctx, key).Result()
}

// HSet writes field/value pairs into a hash.
func (c *Client) HSet(ctx context.Context, key string, values map[string]string) error {
	if c.store == nil {
		return errNotInitialized
	}
	args := make([]any, 0, len(values)*2)
	for field, value := range values {
		args = append(args, field, value)
	}
	return c.store.HSet(ctx, key, args...).Err()
}

// GeoAdd upserts a member position in a geo set.
func (c *Client) GeoAdd(ctx context.Context, key, member string, lat, lng float64) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.GeoAdd(ctx, key, &redis.GeoLocation{Name: member, Latitude: lat, Longitude: lng}).Err()
}

// GeoRemove drops members from a geo set.
func (c *Client) GeoRemove(ctx context.Context, key string, members ...string) error {
	if c.store == nil {
		return errNotInitialized
	}
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return c.store.ZRem(ctx, key, args...).Err()
}

// GeoNearby returns members within radiusKm of the point, nearest first.
func (c *Client) GeoNearby(ctx context.Context, key string, lat, lng, radiusKm float64, limit int) ([]redis.GeoLocation, error) {
	if c.store == nil {
		return nil, errNotInitialized
	}
	return c.store.GeoRadius(ctx, key, lng, lat, &redis.GeoRadiusQuery{
		Radius:   radiusKm,
		Unit:     "km",
		WithDist: true,
		Count:    limit,
		Sort:     "ASC",
	}).Result()
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errNotInitialized
	}
	return c.store.Ping(ctx).Err()
}

// Close shuts down the underlying client if available.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

// LockKey returns a namespaced key for distributed job locks.
func (c *Client) LockKey(name string) string {
	return c.buildKey(lockPrefix, name)
}

// ChannelKey returns a namespaced realtime channel, e.g. pd:rt:order:<id>.
func (c *Client) ChannelKey(room, id string) string {
	return c.buildKey(channelPrefix, room, id)
}

// SettingsKey returns a namespaced key for operator overrides.
func (c *Client) SettingsKey(name string) string {
	return c.buildKey(settingsPrefix, name)
}

// IdempotencyKey scopes a client-supplied Idempotency-Key to the caller and route.
func (c *Client) IdempotencyKey(scope, key string) string {
	return c.buildKey(idemPrefix, scope, key)
}

// DriverGeoKey returns the per-zone geo set holding driver positions.
func (c *Client) DriverGeoKey(zoneID string) string {
	return c.buildKey(driverGeoPrefix, zoneID)
}

func (c *Client) buildKey(parts ...string) string {
	clean := []string{keyNamespace}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		clean = append(clean, part)
	}
	return strings.Join(clean, ":")
}

// NewWithStore builds a client over any command surface; used by tests and
// by callers that manage their own go-redis instance.
func NewWithStore(store cmdable) *Client {
	raw, _ := store.(*redis.Client)
	return &Client{store: store, raw: raw}
}
