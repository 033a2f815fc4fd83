package admin

import (
	"context"
	"net/http"

	"github.com/angelmondragon/packdrop-backend/api/responses"
	"github.com/angelmondragon/packdrop-backend/api/validators"
	"github.com/angelmondragon/packdrop-backend/internal/settings"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

// SettingsStore reads and overrides the platform settings.
type SettingsStore interface {
	settings.Provider
	Update(ctx context.Context, patch settings.Patch) (settings.Settings, error)
}

func GetSettings(store settings.Provider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings unavailable"))
			return
		}
		current, err := store.Current(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, current)
	}
}

// PatchSettings applies a partial override. Orders already placed keep the
// rates captured on them.
func PatchSettings(store SettingsStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings unavailable"))
			return
		}
		var patch settings.Patch
		if err := validators.DecodeJSONBody(r, &patch); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := store.Update(r.Context(), patch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		logg.Info(logg.WithFields(r.Context(), map[string]any{"vendor_rate": updated.VendorCommissionRate.String(), "driver_rate": updated.DriverCommissionRate.String()}), "settings.updated")
		responses.WriteSuccess(w, updated)
	}
}
