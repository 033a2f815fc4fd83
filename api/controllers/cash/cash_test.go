package cash

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packdrop-backend/api/middleware"
	internalcash "github.com/angelmondragon/packdrop-backend/internal/cash"
	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
	"github.com/angelmondragon/packdrop-backend/pkg/pagination"
)

type stubCash struct {
	internalcash.Service
	onHandFor    uuid.UUID
	reportFilter internalcash.ReportFilter
	payout       internalcash.PayoutInput
}

func (s *stubCash) CashOnHand(_ context.Context, managerID uuid.UUID) (decimal.Decimal, error) {
	s.onHandFor = managerID
	return decimal.NewFromInt(250), nil
}

func (s *stubCash) Report(_ context.Context, filter internalcash.ReportFilter, _ pagination.Params) (*internalcash.Report, error) {
	s.reportFilter = filter
	return &internalcash.Report{
		Count: 1,
		Total: decimal.NewFromInt(40),
		Confirmations: &pagination.Page[models.ManagerCashConfirmation]{
			Items: []models.ManagerCashConfirmation{{ID: uuid.New(), Amount: decimal.NewFromInt(40)}},
		},
	}, nil
}

func (s *stubCash) ConfirmPayout(_ context.Context, actor auth.Actor, in internalcash.PayoutInput) (*models.ManagerPayoutConfirmation, error) {
	s.payout = in
	return &models.ManagerPayoutConfirmation{ID: uuid.New(), ManagerID: in.ManagerID, AdminID: actor.UserID, Amount: decimal.NewFromInt(250)}, nil
}

func as(req *http.Request, role enums.ActorRole) (*http.Request, auth.Actor) {
	actor := auth.Actor{UserID: uuid.New(), Role: role}
	return req.WithContext(middleware.WithActor(req.Context(), actor)), actor
}

func TestOnHandScopesManagersToThemselves(t *testing.T) {
	svc := &stubCash{}
	req, manager := as(httptest.NewRequest(http.MethodGet, "/api/v1/cash/on-hand?manager_id="+uuid.NewString(), nil), enums.ActorRoleManager)
	rec := httptest.NewRecorder()
	OnHand(svc, logger.Nop())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, manager.UserID, svc.onHandFor)

	req, _ = as(httptest.NewRequest(http.MethodGet, "/api/v1/cash/on-hand", nil), enums.ActorRoleAdmin)
	rec = httptest.NewRecorder()
	OnHand(svc, logger.Nop())(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportForcesManagerFilter(t *testing.T) {
	svc := &stubCash{}
	req, manager := as(httptest.NewRequest(http.MethodGet, "/api/v1/cash/confirmations?from=2026-05-01T00:00:00Z", nil), enums.ActorRoleManager)
	rec := httptest.NewRecorder()
	Report(svc, logger.Nop())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.reportFilter.ManagerID)
	assert.Equal(t, manager.UserID, *svc.reportFilter.ManagerID)
	require.NotNil(t, svc.reportFilter.From)
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestConfirmPayoutDecodesPeriod(t *testing.T) {
	svc := &stubCash{}
	managerID := uuid.New()
	body := `{"manager_id":"` + managerID.String() + `","from":"2026-05-01T00:00:00Z","to":"2026-05-08T00:00:00Z"}`
	req, _ := as(httptest.NewRequest(http.MethodPost, "/api/v1/cash/payouts", strings.NewReader(body)), enums.ActorRoleAdmin)
	rec := httptest.NewRecorder()
	ConfirmPayout(svc, logger.Nop())(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, managerID, svc.payout.ManagerID)
	assert.Equal(t, 7*24.0, svc.payout.To.Sub(svc.payout.From).Hours())
	assert.Nil(t, svc.payout.Amount)
}
