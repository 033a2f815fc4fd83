package orders

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/packdrop-backend/api/middleware"
	internalorders "github.com/angelmondragon/packdrop-backend/internal/orders"
	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/db/models"
	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
	"github.com/angelmondragon/packdrop-backend/pkg/pagination"
)

type stubCoordinator struct {
	createFn   func(actor auth.Actor, in internalorders.CreateOrderInput) (*models.Order, error)
	getFn      func(actor auth.Actor, id uuid.UUID) (*models.Order, error)
	listFn     func(actor auth.Actor, filter internalorders.ListFilter) (*pagination.Page[models.Order], error)
	rejectFn   func(actor auth.Actor, id uuid.UUID, reason string) (*models.Order, error)
	completeFn func(actor auth.Actor, id uuid.UUID, otp *string) (*models.Order, error)
}

func (s *stubCoordinator) CreateOrder(_ context.Context, actor auth.Actor, in internalorders.CreateOrderInput) (*models.Order, error) {
	return s.createFn(actor, in)
}

func (s *stubCoordinator) GetOrder(_ context.Context, actor auth.Actor, id uuid.UUID) (*models.Order, error) {
	return s.getFn(actor, id)
}

func (s *stubCoordinator) ListOrders(_ context.Context, actor auth.Actor, filter internalorders.ListFilter) (*pagination.Page[models.Order], error) {
	return s.listFn(actor, filter)
}

func (s *stubCoordinator) VendorAccept(_ context.Context, _ auth.Actor, id uuid.UUID, _ *int) (*models.Order, error) {
	return &models.Order{ID: id, Status: enums.OrderStatusVendorAccepted}, nil
}

func (s *stubCoordinator) VendorReject(_ context.Context, actor auth.Actor, id uuid.UUID, reason string) (*models.Order, error) {
	return s.rejectFn(actor, id, reason)
}

func (s *stubCoordinator) MarkReady(_ context.Context, _ auth.Actor, id uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: id, Status: enums.OrderStatusDriverPending}, nil
}

func (s *stubCoordinator) CompleteDelivery(_ context.Context, actor auth.Actor, id uuid.UUID, otp *string) (*models.Order, error) {
	return s.completeFn(actor, id, otp)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newRequest(method, target, body string, actor auth.Actor, orderID *uuid.UUID) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := middleware.WithActor(req.Context(), actor)
	if orderID != nil {
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("orderId", orderID.String())
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}
	return req.WithContext(ctx)
}

type envelope struct {
	Data json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestCreateMapsRequestAndHidesCommissionFromCustomer(t *testing.T) {
	customer := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	vendorID, addressID, productID := uuid.New(), uuid.New(), uuid.New()
	otp := "123456"

	var got internalorders.CreateOrderInput
	svc := &stubCoordinator{createFn: func(actor auth.Actor, in internalorders.CreateOrderInput) (*models.Order, error) {
		got = in
		return &models.Order{
			ID:            uuid.New(),
			Status:        enums.OrderStatusPlaced,
			PaymentMethod: in.PaymentMethod,
			CustomerID:    actor.UserID,
			VendorID:      in.VendorID,
			OrderTotal:    decimal.RequireFromString("105.00"),
			VendorNet:     decimal.RequireFromString("76.50"),
			DeliveryOTP:   &otp,
			Items:         []models.OrderItem{{ProductID: productID, Name: "Coffee", Quantity: 2}},
		}, nil
	}}

	body := `{"vendor_id":"` + vendorID.String() + `","address_id":"` + addressID.String() + `","items":[{"product_id":"` + productID.String() + `","quantity":2}],"payment_method":"wallet","tip":"5"}`
	rec := httptest.NewRecorder()
	Create(svc, testLogger())(rec, newRequest(http.MethodPost, "/api/v1/orders", body, customer, nil))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, vendorID, got.VendorID)
	assert.Equal(t, enums.PaymentMethodWallet, got.PaymentMethod)
	assert.True(t, got.Tip.Equal(decimal.NewFromInt(5)))
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)

	raw := rec.Body.String()
	assert.NotContains(t, raw, "123456")
	assert.NotContains(t, raw, `"commission"`)
	assert.Contains(t, raw, `"name":"Coffee"`)
}

func TestCreateRejectsInvalidBody(t *testing.T) {
	svc := &stubCoordinator{createFn: func(auth.Actor, internalorders.CreateOrderInput) (*models.Order, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	customer := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}

	for _, body := range []string{
		`{"vendor_id":"x","address_id":"y","items":[],"payment_method":"wallet"}`,
		`{"vendor_id":"` + uuid.NewString() + `","address_id":"` + uuid.NewString() + `","items":[{"product_id":"` + uuid.NewString() + `","quantity":1}],"payment_method":"card"}`,
	} {
		rec := httptest.NewRecorder()
		Create(svc, testLogger())(rec, newRequest(http.MethodPost, "/api/v1/orders", body, customer, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestListParsesStatusFilter(t *testing.T) {
	vendor := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleVendor}
	svc := &stubCoordinator{listFn: func(actor auth.Actor, filter internalorders.ListFilter) (*pagination.Page[models.Order], error) {
		require.NotNil(t, filter.Status)
		assert.Equal(t, enums.OrderStatusPlaced, *filter.Status)
		assert.Equal(t, 10, filter.Limit)
		return &pagination.Page[models.Order]{
			Items:      []models.Order{{ID: uuid.New(), Status: enums.OrderStatusPlaced, VendorNet: decimal.NewFromInt(85)}},
			NextCursor: "next",
		}, nil
	}}

	rec := httptest.NewRecorder()
	List(svc, testLogger())(rec, newRequest(http.MethodGet, "/api/v1/orders?status=placed&limit=10", "", vendor, nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page struct {
		Items []struct {
			Status     string          `json:"status"`
			Commission json.RawMessage `json:"commission"`
		} `json:"items"`
		NextCursor string `json:"next_cursor"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "PLACED", page.Items[0].Status)
	assert.NotEmpty(t, page.Items[0].Commission)
	assert.Equal(t, "next", page.NextCursor)

	rec = httptest.NewRecorder()
	List(svc, testLogger())(rec, newRequest(http.MethodGet, "/api/v1/orders?status=lost", "", vendor, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetailPropagatesDomainErrors(t *testing.T) {
	orderID := uuid.New()
	svc := &stubCoordinator{getFn: func(auth.Actor, uuid.UUID) (*models.Order, error) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}}
	rec := httptest.NewRecorder()
	Detail(svc, testLogger())(rec, newRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), "", auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleDriver}, &orderID))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeNotFound), decode(t, rec).Error.Code)
}

func TestVendorRejectRequiresReason(t *testing.T) {
	orderID := uuid.New()
	vendor := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleVendor}
	var reason string
	svc := &stubCoordinator{rejectFn: func(_ auth.Actor, id uuid.UUID, r string) (*models.Order, error) {
		reason = r
		return &models.Order{ID: id, Status: enums.OrderStatusVendorRejected}, nil
	}}

	rec := httptest.NewRecorder()
	VendorReject(svc, testLogger())(rec, newRequest(http.MethodPost, "/", `{"reason":"   "}`, vendor, &orderID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	VendorReject(svc, testLogger())(rec, newRequest(http.MethodPost, "/", `{"reason":"  out of stock "}`, vendor, &orderID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "out of stock", reason)
}

func TestCompletePassesOTP(t *testing.T) {
	orderID := uuid.New()
	driver := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleDriver}
	var gotOTP *string
	svc := &stubCoordinator{completeFn: func(_ auth.Actor, id uuid.UUID, otp *string) (*models.Order, error) {
		gotOTP = otp
		return &models.Order{ID: id, Status: enums.OrderStatusCompleted}, nil
	}}

	rec := httptest.NewRecorder()
	Complete(svc, testLogger())(rec, newRequest(http.MethodPost, "/", `{"otp":"482913"}`, driver, &orderID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, gotOTP)
	assert.Equal(t, "482913", *gotOTP)

	gotOTP = nil
	rec = httptest.NewRecorder()
	Complete(svc, testLogger())(rec, newRequest(http.MethodPost, "/", "", driver, &orderID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, gotOTP)

	rec = httptest.NewRecorder()
	Complete(svc, testLogger())(rec, newRequest(http.MethodPost, "/", `{"otp":"12ab"}`, driver, &orderID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkReadyUsesTransition(t *testing.T) {
	orderID := uuid.New()
	rec := httptest.NewRecorder()
	MarkReady(&stubCoordinator{}, testLogger())(rec, newRequest(http.MethodPost, "/", "", auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleVendor}, &orderID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(enums.OrderStatusDriverPending))

	rec = httptest.NewRecorder()
	MarkReady(nil, testLogger())(rec, newRequest(http.MethodPost, "/", "", auth.Actor{}, &orderID))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
