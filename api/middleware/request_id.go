package middleware

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

const (
	HeaderRequestID    = "X-Request-Id"
	maxRequestIDLength = 128
)

// RequestID propagates the caller's request id or mints one. Ids that are too
// long or carry non-printable characters are replaced rather than logged.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
			if !validRequestID(reqID) {
				reqID = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range id {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) || r == ' ' {
			return false
		}
	}
	return true
}
