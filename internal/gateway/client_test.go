package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"travel-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewHTTPClient(utils.GatewayConfig{
		BaseURL:   srv.URL,
		SecretKey: "sk_test_123",
		Timeout:   2 * time.Second,
	}, zap.NewNop())
}

func TestCreateSession(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/sessions", r.URL.Path)

		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "sk_test_123", user)

		var input CreateSessionInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		assert.Equal(t, int64(25000), input.AmountCents)
		assert.Equal(t, "AUD", input.Currency)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"id":           "sess_abc",
			"status":       "pending",
			"redirect_url": "https://pay.example.com/sess_abc",
		})
	})

	session, err := client.CreateSession(context.Background(), CreateSessionInput{
		AmountCents: 25000,
		Currency:    "AUD",
		Reference:   "TRV-20260825-101501-0042",
	})

	require.NoError(t, err)
	assert.Equal(t, "sess_abc", session.ID)
	assert.Equal(t, SessionStatusPending, session.Status)
	assert.Equal(t, "https://pay.example.com/sess_abc", session.RedirectURL)
	assert.NotEmpty(t, session.Raw)
}

func TestGetStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/sessions/sess_abc", r.URL.Path)

		json.NewEncoder(w).Encode(map[string]string{"id": "sess_abc", "status": "succeeded"})
	})

	session, err := client.GetStatus(context.Background(), "sess_abc")

	require.NoError(t, err)
	assert.Equal(t, SessionStatusSucceeded, session.Status)
	assert.True(t, session.Status.IsTerminal())
}

func TestGetStatusNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetStatus(context.Background(), "sess_missing")

	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, IsTransient(err))
}

func TestCancel(t *testing.T) {
	var cancelled bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sessions/sess_abc/cancel", r.URL.Path)
		cancelled = true
		json.NewEncoder(w).Encode(map[string]string{"id": "sess_abc", "status": "cancelled"})
	})

	require.NoError(t, client.Cancel(context.Background(), "sess_abc"))
	assert.True(t, cancelled)
}

func TestAPIErrorDecoding(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"code": "currency_not_supported", "message": "XYZ is not supported"})
	})

	_, err := client.CreateSession(context.Background(), CreateSessionInput{AmountCents: 100, Currency: "XYZ"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "currency_not_supported", apiErr.Code)
	assert.False(t, IsTransient(err), "a decoded 4xx is terminal")
}

func TestTransientClassification(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetStatus(context.Background(), "sess_abc")
	require.Error(t, err)
	assert.True(t, IsTransient(err), "5xx should defer to the next run")

	// Transport failure is transient too
	dead := NewHTTPClient(utils.GatewayConfig{
		BaseURL: "http://127.0.0.1:1", // nothing listens here
		Timeout: 200 * time.Millisecond,
	}, zap.NewNop())

	_, err = dead.GetStatus(context.Background(), "sess_abc")
	require.Error(t, err)
	assert.True(t, IsTransient(err))

	assert.False(t, IsTransient(nil))
}
