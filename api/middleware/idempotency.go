package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/packdrop-backend/api/responses"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"

	shortReplayTTL = 24 * time.Hour
	moneyReplayTTL = 7 * 24 * time.Hour
	// inFlightTTL bounds how long a crashed request can hold its key.
	inFlightTTL = 2 * time.Minute
)

// replayRule marks a POST route whose response is cached per key.
type replayRule struct {
	prefix string
	suffix string
	exact  bool
	ttl    time.Duration
}

func (r replayRule) matches(path string) bool {
	if r.exact {
		return path == r.prefix
	}
	return strings.HasPrefix(path, r.prefix) && strings.HasSuffix(path, r.suffix)
}

// Routes that move money get the long TTL.
var replayRules = []replayRule{
	{prefix: "/api/v1/orders", exact: true, ttl: moneyReplayTTL},
	{prefix: "/api/v1/orders/", suffix: "/cancel", ttl: moneyReplayTTL},
	{prefix: "/api/v1/orders/", suffix: "/complete", ttl: moneyReplayTTL},
	{prefix: "/api/v1/orders/", suffix: "/protection/confirm", ttl: moneyReplayTTL},
	{prefix: "/api/v1/driver/orders/", suffix: "/pickup", ttl: moneyReplayTTL},
	{prefix: "/api/v1/cash/orders/", suffix: "/confirm", ttl: moneyReplayTTL},
	{prefix: "/api/v1/cash/payouts", exact: true, ttl: moneyReplayTTL},
	{prefix: "/api/v1/vendor/orders/", ttl: shortReplayTTL},
	{prefix: "/api/v1/dispatch/orders/", ttl: shortReplayTTL},
}

func replayTTL(method, path string) (time.Duration, bool) {
	if method != http.MethodPost {
		return 0, false
	}
	for _, rule := range replayRules {
		if rule.matches(path) {
			return rule.ttl, true
		}
	}
	return 0, false
}

// IdempotencyStore is the Redis surface the replay cache needs.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, key string) string
}

// replayEntry is stored under the key. Status zero means the first request
// is still running.
type replayEntry struct {
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency replays the stored response of a repeated Idempotency-Key on
// the routes above. The key is claimed before the handler runs, so a
// concurrent duplicate is refused instead of executed twice. Reusing a key
// with a different body is a conflict. Server errors release the key.
func Idempotency(store IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := replayTTL(r.Method, r.URL.Path)
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := store.IdempotencyKey(replayScope(r), clientKey)
			pending := replayEntry{RequestHash: digest(body)}

			claimed, err := claim(ctx, store, key, pending)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replay(ctx, logg, w, store, key, pending.RequestHash)
				return
			}

			rec := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.status >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil {
					logError(ctx, logg, "release idempotency key", err)
				}
				return
			}
			done := pending
			done.Status = rec.status
			if done.Status == 0 {
				done.Status = http.StatusOK
			}
			done.ContentType = rec.Header().Get("Content-Type")
			done.Body = rec.body.Bytes()
			payload, err := json.Marshal(done)
			if err == nil {
				err = store.Set(ctx, key, string(payload), ttl)
			}
			if err != nil {
				logError(ctx, logg, "persist idempotency record", err)
			}
		})
	}
}

func claim(ctx context.Context, store IdempotencyStore, key string, entry replayEntry) (bool, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	return store.SetNX(ctx, key, string(payload), inFlightTTL)
}

func replay(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, store IdempotencyStore, key, requestHash string) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeResourceConflict, "request with this idempotency key was just released, retry"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency record"))
		return
	}
	var stored replayEntry
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case stored.RequestHash != requestHash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeResourceConflict, "idempotency key reused with different request body"))
	case stored.Status == 0:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeResourceConflict, "request with this idempotency key is still in progress"))
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}

// replayScope keys the cache by caller and path so two users can share a
// client key without colliding.
func replayScope(r *http.Request) string {
	actor, _ := ActorFromContext(r.Context())
	return digest([]byte(actor.UserID.String() + "|" + r.URL.Path))[:24]
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
