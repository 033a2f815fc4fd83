package vendorcontext

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/api/middleware"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
)

// VendorLookup resolves the vendor a user operates.
type VendorLookup interface {
	VendorByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Vendor, error)
}

// ResolveVendorID maps the calling vendor user onto their vendor record.
func ResolveVendorID(r *http.Request, vendors VendorLookup) (uuid.UUID, error) {
	actor, err := middleware.RequireActor(r)
	if err != nil {
		return uuid.Nil, err
	}
	if !actor.Is(enums.ActorRoleVendor) {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor access required")
	}
	if vendors == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeInternal, "vendor lookup unavailable")
	}
	vendor, err := vendors.VendorByUser(r.Context(), nil, actor.UserID)
	if err != nil {
		return uuid.Nil, err
	}
	return vendor.ID, nil
}
