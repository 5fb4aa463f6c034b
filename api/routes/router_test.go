package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderssvc "github.com/florelink/florelink-backend/internal/orders"
	paymentssvc "github.com/florelink/florelink-backend/internal/payments"
	pkgauth "github.com/florelink/florelink-backend/pkg/auth"
	"github.com/florelink/florelink-backend/pkg/config"
	"github.com/florelink/florelink-backend/pkg/db/models"
	"github.com/florelink/florelink-backend/pkg/enums"
	pkgerrors "github.com/florelink/florelink-backend/pkg/errors"
	"github.com/florelink/florelink-backend/pkg/logger"
	"github.com/florelink/florelink-backend/pkg/payu"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubOrdersService struct {
	created    *models.Order
	lastCreate *orderssvc.CreateInput
}

func (s *stubOrdersService) Create(ctx context.Context, input orderssvc.CreateInput) (*models.Order, error) {
	s.lastCreate = &input
	if s.created == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	return s.created, nil
}

func (s *stubOrdersService) List(ctx context.Context, input orderssvc.ListInput) (*orderssvc.OrderList, error) {
	return &orderssvc.OrderList{}, nil
}

func (s *stubOrdersService) Get(ctx context.Context, userID, orderID uuid.UUID, role enums.UserRole) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (s *stubOrdersService) UpdateStatus(ctx context.Context, input orderssvc.UpdateStatusInput) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only cancellation is allowed")
}

type stubPaymentsService struct{}

func (stubPaymentsService) CreateIntent(ctx context.Context, input paymentssvc.IntentInput) (*paymentssvc.IntentOutput, error) {
	return &paymentssvc.IntentOutput{TransactionID: "pi_test_123", ClientSecret: "secret"}, nil
}

func (stubPaymentsService) Confirm(ctx context.Context, input paymentssvc.ConfirmInput) (*paymentssvc.ConfirmOutput, error) {
	return &paymentssvc.ConfirmOutput{
		Order: &models.Order{
			ID:            input.OrderID,
			Status:        enums.OrderStatusConfirmed,
			PaymentStatus: enums.OrderPaymentStatusPaid,
		},
		Payment: &models.Payment{Status: enums.PaymentStatusCompleted},
	}, nil
}

func (stubPaymentsService) StartHostedCheckout(ctx context.Context, input paymentssvc.HostedCheckoutInput) (*paymentssvc.HostedCheckoutOutput, error) {
	return &paymentssvc.HostedCheckoutOutput{RedirectURI: "https://secure.snd.payu.com/pay"}, nil
}

func (stubPaymentsService) HandleHostedNotification(ctx context.Context, n *payu.Notification) error {
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Env = config.AppEnvDev
	cfg.JWT.Secret = "router-test-secret"
	cfg.JWT.Issuer = "florelink-test"
	cfg.JWT.ExpirationMinutes = 15
	return cfg
}

func testRouter(t *testing.T, orders orderssvc.Service) http.Handler {
	t.Helper()
	return NewRouter(Deps{
		Config:   testConfig(),
		Logger:   logger.New(logger.Options{ServiceName: "router-test"}),
		DB:       stubPinger{},
		Orders:   orders,
		Payments: stubPaymentsService{},
	})
}

func mintToken(t *testing.T, cfg *config.Config, userID uuid.UUID, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
	})
	require.NoError(t, err)
	return token
}

func TestHealthLive(t *testing.T) {
	router := testRouter(t, &stubOrdersService{})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "live")
}

func TestHealthReady(t *testing.T) {
	router := testRouter(t, &stubOrdersService{})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ready")
}

func TestOrdersRequireAuth(t *testing.T) {
	router := testRouter(t, &stubOrdersService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestOrdersRejectsBadToken(t *testing.T) {
	router := testRouter(t, &stubOrdersService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateOrderAuthorized(t *testing.T) {
	cfg := testConfig()
	svc := &stubOrdersService{created: &models.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-1757000000000-A1B2C",
		Status:      enums.OrderStatusPending,
		Total:       decimal.RequireFromString("61.90"),
		Currency:    enums.CurrencyEUR,
	}}
	router := NewRouter(Deps{
		Config:   cfg,
		Logger:   logger.New(logger.Options{ServiceName: "router-test"}),
		DB:       stubPinger{},
		Orders:   svc,
		Payments: stubPaymentsService{},
	})

	body := `{"items":[{"catalogItemId":"` + uuid.NewString() + `","quantity":3}],` +
		`"shippingAddress":{"street":"Kwiatowa 12","city":"Warszawa","postalCode":"00-001"},` +
		`"paymentMethod":"card"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, uuid.New(), enums.UserRoleFlorist))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "ORD-1757000000000-A1B2C")
	assert.Contains(t, rec.Body.String(), "order created")
}

func TestCreateOrderDefaultsPaymentMethod(t *testing.T) {
	cfg := testConfig()
	svc := &stubOrdersService{created: &models.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-1757000000000-B2C3D",
		Status:      enums.OrderStatusPending,
		Total:       decimal.RequireFromString("61.90"),
		Currency:    enums.CurrencyEUR,
	}}
	router := NewRouter(Deps{
		Config:   cfg,
		Logger:   logger.New(logger.Options{ServiceName: "router-test"}),
		DB:       stubPinger{},
		Orders:   svc,
		Payments: stubPaymentsService{},
	})

	body := `{"items":[{"catalogItemId":"` + uuid.NewString() + `","quantity":3}],` +
		`"shippingAddress":{"street":"Kwiatowa 12","city":"Warszawa","postalCode":"00-001"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, uuid.New(), enums.UserRoleFlorist))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.lastCreate)
	assert.Equal(t, enums.PaymentMethodCard, svc.lastCreate.PaymentMethod)
}

func TestCreateOrderRejectsAdminRole(t *testing.T) {
	cfg := testConfig()
	svc := &stubOrdersService{created: &models.Order{ID: uuid.New()}}
	router := NewRouter(Deps{
		Config:   cfg,
		Logger:   logger.New(logger.Options{ServiceName: "router-test"}),
		DB:       stubPinger{},
		Orders:   svc,
		Payments: stubPaymentsService{},
	})

	body := `{"items":[{"catalogItemId":"` + uuid.NewString() + `","quantity":1}],` +
		`"shippingAddress":{"street":"Kwiatowa 12","city":"Warszawa","postalCode":"00-001"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, uuid.New(), enums.UserRoleAdmin))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, svc.lastCreate)
}

func TestGetOrderNotFound(t *testing.T) {
	cfg := testConfig()
	router := testRouter(t, &stubOrdersService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, uuid.New(), enums.UserRoleFlorist))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestCreatePaymentIntentRoute(t *testing.T) {
	cfg := testConfig()
	router := testRouter(t, &stubOrdersService{})

	body := `{"orderId":"` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/create-payment-intent", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, uuid.New(), enums.UserRoleFlorist))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pi_test_123")
	assert.Contains(t, rec.Body.String(), "clientSecret")
}

func TestConfirmPaymentRoute(t *testing.T) {
	cfg := testConfig()
	router := testRouter(t, &stubOrdersService{})

	body := `{"paymentIntentId":"pi_test_123","orderId":"` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/confirm-payment", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, uuid.New(), enums.UserRoleFlorist))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "payment confirmed")
	assert.Contains(t, rec.Body.String(), "confirmed")
}

func TestPayuCreateOrderRoute(t *testing.T) {
	cfg := testConfig()
	router := testRouter(t, &stubOrdersService{})

	body := `{"orderId":"` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/payu/create-order", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, uuid.New(), enums.UserRoleFlorist))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "redirectUri")
}

func TestPayuNotifyUnauthenticated(t *testing.T) {
	router := testRouter(t, &stubOrdersService{})

	body := `{"order":{"orderId":"WZHF5FFDRJ","extOrderId":"` + uuid.NewString() + `","status":"COMPLETED"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/payu/notify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestPayuNotifyAcceptsBareBody(t *testing.T) {
	router := testRouter(t, &stubOrdersService{})

	body := `{"orderId":"` + uuid.NewString() + `","status":"COMPLETED"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/payu/notify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestUpdateStatusForbiddenMapped(t *testing.T) {
	cfg := testConfig()
	router := testRouter(t, &stubOrdersService{})

	body := `{"status":"shipped"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/orders/"+uuid.NewString()+"/status", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, uuid.New(), enums.UserRoleFlorist))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}
