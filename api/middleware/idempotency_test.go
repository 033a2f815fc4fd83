package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

type memoryIdempotencyStore struct {
	values map[string]string
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryIdempotencyStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.values[key] = value.(string)
	return nil
}

func (m *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, key string) string {
	return "idem:" + scope + ":" + key
}

func newIdempotentHandler(store IdempotencyStore, calls *int) http.Handler {
	return Idempotency(store, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"n":1}}`))
	}))
}

func idempotentRequest(actor auth.Actor, path, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req.WithContext(WithActor(req.Context(), actor))
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := &memoryIdempotencyStore{values: map[string]string{}}
	calls := 0
	h := newIdempotentHandler(store, &calls)
	actor := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}

	first := httptest.NewRecorder()
	h.ServeHTTP(first, idempotentRequest(actor, "/api/v1/orders", "k-1", `{"a":1}`))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, idempotentRequest(actor, "/api/v1/orders", "k-1", `{"a":1}`))

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	conflict := httptest.NewRecorder()
	h.ServeHTTP(conflict, idempotentRequest(actor, "/api/v1/orders", "k-1", `{"a":2}`))
	assert.Equal(t, http.StatusConflict, conflict.Code)

	other := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	h.ServeHTTP(httptest.NewRecorder(), idempotentRequest(other, "/api/v1/orders", "k-1", `{"a":1}`))
	assert.Equal(t, 2, calls)
}

func TestIdempotencyRequiresKeyOnlyOnGuardedRoutes(t *testing.T) {
	store := &memoryIdempotencyStore{values: map[string]string{}}
	calls := 0
	h := newIdempotentHandler(store, &calls)
	actor := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleDriver}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, idempotentRequest(actor, "/api/v1/orders/"+uuid.NewString()+"/complete", "", `{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, idempotentRequest(actor, "/api/v1/driver/orders/"+uuid.NewString()+"/accept", "", `{}`))
	assert.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, 1, calls)
	assert.Empty(t, store.values)
}

func TestIdempotencyRefusesDuplicateWhileInFlight(t *testing.T) {
	store := &memoryIdempotencyStore{values: map[string]string{}}
	actor := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleManager}
	path := "/api/v1/cash/payouts"

	var nested *httptest.ResponseRecorder
	var h http.Handler
	h = Idempotency(store, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if nested == nil {
			nested = httptest.NewRecorder()
			h.ServeHTTP(nested, idempotentRequest(actor, path, "payout-1", `{"amount":"10"}`))
		}
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, idempotentRequest(actor, path, "payout-1", `{"amount":"10"}`))

	assert.Equal(t, http.StatusCreated, first.Code)
	require.NotNil(t, nested)
	assert.Equal(t, http.StatusConflict, nested.Code)
	assert.Contains(t, nested.Body.String(), "in progress")
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := &memoryIdempotencyStore{values: map[string]string{}}
	actor := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	calls := 0
	h := Idempotency(store, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, idempotentRequest(actor, "/api/v1/orders", "k-retry", `{}`))
	assert.Equal(t, http.StatusServiceUnavailable, first.Code)
	assert.Empty(t, store.values)

	retry := httptest.NewRecorder()
	h.ServeHTTP(retry, idempotentRequest(actor, "/api/v1/orders", "k-retry", `{}`))
	assert.Equal(t, http.StatusCreated, retry.Code)
	assert.Equal(t, 2, calls)
}
