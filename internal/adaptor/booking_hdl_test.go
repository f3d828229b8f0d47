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

	"travel-booking/internal/data/entity"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/dto/response"
	"travel-booking/internal/usecase"
)

// envelope mirrors the JSON response wrapper for decoding in tests.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

// --- Mock BookingService ---

type mockBookingService struct {
	createFn    func(ctx context.Context, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	getFn       func(ctx context.Context, bookingID string) (*response.BookingResponse, error)
	getByRefFn  func(ctx context.Context, reference string) (*response.BookingResponse, error)
	ownerListFn func(ctx context.Context, ownerID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	cancelFn    func(ctx context.Context, bookingID string) (*response.BookingResponse, error)
}

func (m *mockBookingService) CreateBooking(ctx context.Context, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	return m.createFn(ctx, req)
}
func (m *mockBookingService) GetBooking(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
	return m.getFn(ctx, bookingID)
}
func (m *mockBookingService) GetBookingByReference(ctx context.Context, reference string) (*response.BookingResponse, error) {
	return m.getByRefFn(ctx, reference)
}
func (m *mockBookingService) GetOwnerBookings(ctx context.Context, ownerID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	return m.ownerListFn(ctx, ownerID, req)
}
func (m *mockBookingService) CancelBooking(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
	return m.cancelFn(ctx, bookingID)
}

func bookingRouter(svc usecase.BookingService) *chi.Mux {
	h := NewBookingHandler(svc, zap.NewNop())
	r := chi.NewRouter()
	r.Post("/api/bookings", h.CreateBooking)
	r.Get("/api/bookings", h.GetOwnerBookings)
	r.Get("/api/bookings/{id}", h.GetBooking)
	r.Get("/api/bookings/reference/{reference}", h.GetBookingByReference)
	r.Post("/api/bookings/{id}/cancel", h.CancelBooking)
	return r
}

// --- Tests ---

func TestCreateBookingHandler_Success(t *testing.T) {
	svc := &mockBookingService{
		createFn: func(ctx context.Context, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
			return &response.BookingResponse{
				ID:          "9f3c2b34-5cde-4a52-9cb6-5b7d1a1e8a01",
				Reference:   "TRV-20260314-093000-0007",
				Kind:        entity.BookingKindHotel,
				Status:      entity.BookingStatusPending,
				AmountCents: req.AmountCents,
				Currency:    req.Currency,
			}, nil
		},
	}

	body := `{"kind":"hotel","amount_cents":25000,"currency":"AUD","payload":{"hotel_id":"H-881"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	bookingRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Status)

	var booking response.BookingResponse
	require.NoError(t, json.Unmarshal(env.Data, &booking))
	assert.Equal(t, "TRV-20260314-093000-0007", booking.Reference)
	assert.Equal(t, entity.BookingStatusPending, booking.Status)
}

func TestCreateBookingHandler_InvalidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(`{nope`))
	rec := httptest.NewRecorder()
	bookingRouter(&mockBookingService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBookingHandler_ValidationFailed(t *testing.T) {
	body := `{"kind":"hotel","amount_cents":-5,"currency":"AUD","payload":{}}`
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	bookingRouter(&mockBookingService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Status)
	assert.NotEmpty(t, env.Errors, "field errors are returned to the caller")
}

func TestGetBookingHandler_Success(t *testing.T) {
	svc := &mockBookingService{
		getFn: func(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
			return &response.BookingResponse{ID: bookingID, Status: entity.BookingStatusConfirmed}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/bookings/9f3c2b34-5cde-4a52-9cb6-5b7d1a1e8a01", nil)
	rec := httptest.NewRecorder()
	bookingRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetBookingHandler_NotFound(t *testing.T) {
	svc := &mockBookingService{
		getFn: func(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
			return nil, fmt.Errorf("booking %s: %w", bookingID, usecase.ErrBookingNotFound)
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/bookings/9f3c2b34-5cde-4a52-9cb6-5b7d1a1e8a01", nil)
	rec := httptest.NewRecorder()
	bookingRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetBookingByReferenceHandler_Success(t *testing.T) {
	svc := &mockBookingService{
		getByRefFn: func(ctx context.Context, reference string) (*response.BookingResponse, error) {
			assert.Equal(t, "TRV-20260314-093000-0007", reference)
			return &response.BookingResponse{Reference: reference}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/bookings/reference/TRV-20260314-093000-0007", nil)
	rec := httptest.NewRecorder()
	bookingRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetOwnerBookingsHandler_RequiresOwnerID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
	rec := httptest.NewRecorder()
	bookingRouter(&mockBookingService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOwnerBookingsHandler_PassesPagination(t *testing.T) {
	var gotOwner string
	var gotReq *request.PaginatedRequest
	svc := &mockBookingService{
		ownerListFn: func(ctx context.Context, ownerID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
			gotOwner = ownerID
			gotReq = req
			return response.NewPaginatedResponse([]response.BookingResponse{}, req.Page, req.PerPage, 0), nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/bookings?owner_id=ab5fcb11-41b7-4d32-a2a8-0f01b7a4e2c3&page=3&per_page=25", nil)
	rec := httptest.NewRecorder()
	bookingRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ab5fcb11-41b7-4d32-a2a8-0f01b7a4e2c3", gotOwner)
	require.NotNil(t, gotReq)
	assert.Equal(t, 3, gotReq.Page)
	assert.Equal(t, 25, gotReq.PerPage)
}

func TestCancelBookingHandler_Success(t *testing.T) {
	svc := &mockBookingService{
		cancelFn: func(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
			return &response.BookingResponse{ID: bookingID, Status: entity.BookingStatusCancelled}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/9f3c2b34-5cde-4a52-9cb6-5b7d1a1e8a01/cancel", nil)
	rec := httptest.NewRecorder()
	bookingRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	var booking response.BookingResponse
	require.NoError(t, json.Unmarshal(env.Data, &booking))
	assert.Equal(t, entity.BookingStatusCancelled, booking.Status)
}

func TestCancelBookingHandler_NotPending(t *testing.T) {
	svc := &mockBookingService{
		cancelFn: func(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
			return nil, fmt.Errorf("booking status is confirmed: %w", usecase.ErrBookingNotPending)
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/9f3c2b34-5cde-4a52-9cb6-5b7d1a1e8a01/cancel", nil)
	rec := httptest.NewRecorder()
	bookingRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
