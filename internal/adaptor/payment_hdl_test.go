package adaptor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"travel-booking/internal/credit"
	"travel-booking/internal/data/entity"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/dto/response"
	"travel-booking/internal/gateway"
	"travel-booking/internal/usecase"
)

// --- Mock PaymentService ---

type mockPaymentService struct {
	createFn func(ctx context.Context, req *request.CreatePaymentRequest) (*response.CheckoutResponse, error)
	getFn    func(ctx context.Context, paymentID string) (*response.PaymentResponse, error)
}

func (m *mockPaymentService) CreatePayment(ctx context.Context, req *request.CreatePaymentRequest) (*response.CheckoutResponse, error) {
	return m.createFn(ctx, req)
}
func (m *mockPaymentService) GetPayment(ctx context.Context, paymentID string) (*response.PaymentResponse, error) {
	return m.getFn(ctx, paymentID)
}

func paymentRouter(svc usecase.PaymentService) *chi.Mux {
	h := NewPaymentHandler(svc, zap.NewNop())
	r := chi.NewRouter()
	r.Post("/api/payments", h.CreatePayment)
	r.Get("/api/payments/{id}", h.GetPayment)
	return r
}

// --- Tests ---

func TestCreatePaymentHandler_CardCheckout(t *testing.T) {
	url := "https://gateway.test/pay/cs_100"
	svc := &mockPaymentService{
		createFn: func(ctx context.Context, req *request.CreatePaymentRequest) (*response.CheckoutResponse, error) {
			assert.Equal(t, "card", req.Method)
			return &response.CheckoutResponse{
				Payment: response.PaymentResponse{
					ID:     "c0a8b1e2-0f47-4f3a-8d20-b5fe1e0a9d11",
					Status: entity.PaymentStatusPending,
					Method: entity.PaymentMethodCard,
				},
				BookingStatus: entity.BookingStatusPending,
				CheckoutURL:   &url,
			}, nil
		},
	}

	body := `{"booking_id":"9f3c2b34-5cde-4a52-9cb6-5b7d1a1e8a01","method":"card"}`
	req := httptest.NewRequest(http.MethodPost, "/api/payments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	paymentRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)

	var checkout response.CheckoutResponse
	require.NoError(t, json.Unmarshal(env.Data, &checkout))
	require.NotNil(t, checkout.CheckoutURL)
	assert.Equal(t, url, *checkout.CheckoutURL)
	assert.Equal(t, entity.BookingStatusPending, checkout.BookingStatus)
}

func TestCreatePaymentHandler_ValidationFailed(t *testing.T) {
	body := `{"booking_id":"not-a-uuid","method":"card"}`
	req := httptest.NewRequest(http.MethodPost, "/api/payments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	paymentRouter(&mockPaymentService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePaymentHandler_InsufficientCredit(t *testing.T) {
	svc := &mockPaymentService{
		createFn: func(ctx context.Context, req *request.CreatePaymentRequest) (*response.CheckoutResponse, error) {
			return nil, fmt.Errorf("owner abc: %w", credit.ErrInsufficientCredit)
		},
	}

	body := `{"booking_id":"9f3c2b34-5cde-4a52-9cb6-5b7d1a1e8a01","method":"stored_credit"}`
	req := httptest.NewRequest(http.MethodPost, "/api/payments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	paymentRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreatePaymentHandler_BookingNotPending(t *testing.T) {
	svc := &mockPaymentService{
		createFn: func(ctx context.Context, req *request.CreatePaymentRequest) (*response.CheckoutResponse, error) {
			return nil, fmt.Errorf("booking status is expired: %w", usecase.ErrBookingNotPending)
		},
	}

	body := `{"booking_id":"9f3c2b34-5cde-4a52-9cb6-5b7d1a1e8a01","method":"card"}`
	req := httptest.NewRequest(http.MethodPost, "/api/payments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	paymentRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreatePaymentHandler_GatewayDown(t *testing.T) {
	svc := &mockPaymentService{
		createFn: func(ctx context.Context, req *request.CreatePaymentRequest) (*response.CheckoutResponse, error) {
			return nil, fmt.Errorf("create gateway session: %w", &gateway.APIError{StatusCode: 503, Message: "unavailable"})
		},
	}

	body := `{"booking_id":"9f3c2b34-5cde-4a52-9cb6-5b7d1a1e8a01","method":"card"}`
	req := httptest.NewRequest(http.MethodPost, "/api/payments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	paymentRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetPaymentHandler_Success(t *testing.T) {
	svc := &mockPaymentService{
		getFn: func(ctx context.Context, paymentID string) (*response.PaymentResponse, error) {
			return &response.PaymentResponse{ID: paymentID, Status: entity.PaymentStatusSucceeded}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/payments/c0a8b1e2-0f47-4f3a-8d20-b5fe1e0a9d11", nil)
	rec := httptest.NewRecorder()
	paymentRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetPaymentHandler_NotFound(t *testing.T) {
	svc := &mockPaymentService{
		getFn: func(ctx context.Context, paymentID string) (*response.PaymentResponse, error) {
			return nil, fmt.Errorf("payment %s: %w", paymentID, usecase.ErrPaymentNotFound)
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/payments/c0a8b1e2-0f47-4f3a-8d20-b5fe1e0a9d11", nil)
	rec := httptest.NewRecorder()
	paymentRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
