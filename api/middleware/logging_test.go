package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

func TestLoggingUsesRoutePattern(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})

	r := chi.NewRouter()
	r.Use(Logging(logg))
	r.Get("/orders/{orderId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/3f0c", nil))
	out := buf.String()
	assert.Contains(t, out, `"route":"/orders/{orderId}"`)
	assert.Contains(t, out, `"status":202`)
	assert.Contains(t, out, `"bytes":2`)
	assert.NotContains(t, out, "3f0c")

	buf.Reset()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Zero(t, buf.Len(), "health probes log at debug")
}
