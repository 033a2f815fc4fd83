package wallet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/packdrop-backend/api/middleware"
	internalwallet "github.com/angelmondragon/packdrop-backend/internal/wallet"
	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
	"github.com/angelmondragon/packdrop-backend/pkg/pagination"
)

type stubLedger struct {
	internalwallet.Ledger
	gotType enums.WalletOwnerType
	gotID   uuid.UUID
}

func (s *stubLedger) Balance(_ context.Context, _ *gorm.DB, ownerType enums.WalletOwnerType, ownerID uuid.UUID) (*models.Wallet, error) {
	s.gotType, s.gotID = ownerType, ownerID
	return &models.Wallet{OwnerType: ownerType, OwnerID: ownerID, Balance: decimal.NewFromInt(85)}, nil
}

func (s *stubLedger) ListTransactions(_ context.Context, ownerType enums.WalletOwnerType, ownerID uuid.UUID, _ pagination.Params) (*pagination.Page[models.WalletTransaction], error) {
	s.gotType, s.gotID = ownerType, ownerID
	return &pagination.Page[models.WalletTransaction]{Items: []models.WalletTransaction{{ID: uuid.New(), Type: enums.WalletTxEarning, Amount: decimal.NewFromInt(85)}}}, nil
}

type stubVendors struct{ vendorID uuid.UUID }

func (s stubVendors) VendorByUser(context.Context, *gorm.DB, uuid.UUID) (*models.Vendor, error) {
	return &models.Vendor{ID: s.vendorID}, nil
}

func withActor(req *http.Request, role enums.ActorRole) (*http.Request, auth.Actor) {
	actor := auth.Actor{UserID: uuid.New(), Role: role}
	return req.WithContext(middleware.WithActor(req.Context(), actor)), actor
}

func TestMineResolvesWalletByRole(t *testing.T) {
	ledger := &stubLedger{}
	vendors := stubVendors{vendorID: uuid.New()}

	req, driver := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil), enums.ActorRoleDriver)
	rec := httptest.NewRecorder()
	Mine(ledger, vendors, logger.Nop())(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.WalletOwnerDriver, ledger.gotType)
	assert.Equal(t, driver.UserID, ledger.gotID)

	req, _ = withActor(httptest.NewRequest(http.MethodGet, "/api/v1/wallet/transactions", nil), enums.ActorRoleVendor)
	rec = httptest.NewRecorder()
	MyTransactions(ledger, vendors, logger.Nop())(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, enums.WalletOwnerVendor, ledger.gotType)
	assert.Equal(t, vendors.vendorID, ledger.gotID)
	assert.Contains(t, rec.Body.String(), string(enums.WalletTxEarning))

	req, _ = withActor(httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil), enums.ActorRoleManager)
	rec = httptest.NewRecorder()
	Mine(ledger, vendors, logger.Nop())(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLookupReadsPlatformWallet(t *testing.T) {
	ledger := &stubLedger{}
	req, _ := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/admin/wallets/platform", nil), enums.ActorRoleAdmin)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("ownerType", "platform")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rec := httptest.NewRecorder()
	Lookup(ledger, logger.Nop())(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, enums.WalletOwnerPlatform, ledger.gotType)
	assert.Equal(t, models.PlatformOwnerID, ledger.gotID)
}
