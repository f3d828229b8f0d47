package credit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInsufficientCredit means the ledger declined the debit for lack of
// balance. Terminal for the payment attempt.
var ErrInsufficientCredit = errors.New("insufficient stored credit")

// Ledger is the stored-credit collaborator. Balances live outside this
// service, the core only debits and refunds.
type Ledger interface {
	Debit(ctx context.Context, input Transaction) error
	Refund(ctx context.Context, input Transaction) error
}

type Transaction struct {
	OwnerID     uuid.UUID `json:"owner_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Reference   string    `json:"reference"`
}

type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("credit ledger error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// HTTPClient talks to the credit ledger's REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *zap.Logger
}

func NewHTTPClient(config utils.CreditConfig, log *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		client:  &http.Client{Timeout: config.Timeout},
		log:     log.With(zap.String("client", "credit_ledger")),
	}
}

func (c *HTTPClient) Debit(ctx context.Context, input Transaction) error {
	if err := c.post(ctx, "/v1/debits", input); err != nil {
		return fmt.Errorf("debit credit for %s: %w", input.Reference, err)
	}

	c.log.Info("Stored credit debited",
		zap.String("owner_id", input.OwnerID.String()),
		zap.Int64("amount_cents", input.AmountCents),
		zap.String("reference", input.Reference),
	)
	return nil
}

func (c *HTTPClient) Refund(ctx context.Context, input Transaction) error {
	if err := c.post(ctx, "/v1/refunds", input); err != nil {
		return fmt.Errorf("refund credit for %s: %w", input.Reference, err)
	}

	c.log.Info("Stored credit refunded",
		zap.String("owner_id", input.OwnerID.String()),
		zap.Int64("amount_cents", input.AmountCents),
		zap.String("reference", input.Reference),
	)
	return nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	res, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}

	raw, _ := io.ReadAll(res.Body)
	apiErr := &APIError{StatusCode: res.StatusCode}
	if err := json.Unmarshal(raw, apiErr); err != nil {
		apiErr.Message = string(raw)
	}

	if apiErr.Code == "insufficient_credit" || res.StatusCode == http.StatusPaymentRequired {
		return ErrInsufficientCredit
	}

	return apiErr
}
