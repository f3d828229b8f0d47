package credit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLedger(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewHTTPClient(utils.CreditConfig{
		BaseURL: srv.URL,
		APIKey:  "ck_test",
		Timeout: 2 * time.Second,
	}, zap.NewNop())
}

func TestDebit(t *testing.T) {
	owner := uuid.New()
	ledger := newTestLedger(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/debits", r.URL.Path)
		assert.Equal(t, "Bearer ck_test", r.Header.Get("Authorization"))

		var tx Transaction
		require.NoError(t, json.NewDecoder(r.Body).Decode(&tx))
		assert.Equal(t, owner, tx.OwnerID)
		assert.Equal(t, int64(10000), tx.AmountCents)

		w.WriteHeader(http.StatusCreated)
	})

	err := ledger.Debit(context.Background(), Transaction{
		OwnerID:     owner,
		AmountCents: 10000,
		Currency:    "AUD",
		Reference:   "TRV-20260825-101501-0042",
	})
	assert.NoError(t, err)
}

func TestDebitInsufficientCredit(t *testing.T) {
	ledger := newTestLedger(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"code": "insufficient_credit", "message": "balance too low"})
	})

	err := ledger.Debit(context.Background(), Transaction{OwnerID: uuid.New(), AmountCents: 10000, Currency: "AUD"})
	assert.ErrorIs(t, err, ErrInsufficientCredit)
}

func TestRefund(t *testing.T) {
	var path string
	ledger := newTestLedger(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusCreated)
	})

	err := ledger.Refund(context.Background(), Transaction{OwnerID: uuid.New(), AmountCents: 5000, Currency: "AUD"})
	require.NoError(t, err)
	assert.Equal(t, "/v1/refunds", path)
}

func TestLedgerAPIError(t *testing.T) {
	ledger := newTestLedger(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"code": "ledger_down", "message": "try later"})
	})

	err := ledger.Debit(context.Background(), Transaction{OwnerID: uuid.New(), AmountCents: 5000, Currency: "AUD"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "ledger_down", apiErr.Code)
}
