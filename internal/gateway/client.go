package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

// ErrSessionNotFound means the gateway has no record of the session id.
var ErrSessionNotFound = errors.New("gateway session not found")

type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusSucceeded SessionStatus = "succeeded"
	SessionStatusFailed    SessionStatus = "failed"
	SessionStatusCancelled SessionStatus = "cancelled"
	SessionStatusExpired   SessionStatus = "expired"
)

// IsTerminal reports whether the gateway will never move the session again.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusSucceeded || s == SessionStatusFailed ||
		s == SessionStatusCancelled || s == SessionStatusExpired
}

// Session is the gateway's view of one checkout attempt. Raw keeps the
// unparsed response body for the audit trail.
type Session struct {
	ID          string          `json:"id"`
	Status      SessionStatus   `json:"status"`
	RedirectURL string          `json:"redirect_url"`
	Raw         json.RawMessage `json:"-"`
}

type CreateSessionInput struct {
	AmountCents int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Client is the boundary to the external payment processor. Its responses
// are the source of truth for payment state, never the local copy.
type Client interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error)
	GetStatus(ctx context.Context, sessionID string) (*Session, error)
	Cancel(ctx context.Context, sessionID string) error
}

// APIError is a decoded non-2xx gateway response.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// IsTransient reports whether the failure may heal on its own: transport
// errors, timeouts and gateway 5xx. A decoded 4xx is a terminal answer.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSessionNotFound) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return true
}

// HTTPClient talks to the gateway's hosted-checkout session API.
type HTTPClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
	log       *zap.Logger
}

func NewHTTPClient(config utils.GatewayConfig, log *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:   config.BaseURL,
		secretKey: config.SecretKey,
		client:    &http.Client{Timeout: config.Timeout},
		log:       log.With(zap.String("client", "gateway")),
	}
}

func (c *HTTPClient) CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error) {
	session, err := c.do(ctx, http.MethodPost, "/v1/sessions", input)
	if err != nil {
		return nil, fmt.Errorf("create gateway session: %w", err)
	}

	c.log.Info("Gateway session created",
		zap.String("session_id", session.ID),
		zap.String("reference", input.Reference),
		zap.Int64("amount_cents", input.AmountCents),
		zap.String("currency", input.Currency),
	)
	return session, nil
}

func (c *HTTPClient) GetStatus(ctx context.Context, sessionID string) (*Session, error) {
	session, err := c.do(ctx, http.MethodGet, "/v1/sessions/"+sessionID, nil)
	if err != nil {
		return nil, fmt.Errorf("get gateway session %s: %w", sessionID, err)
	}
	return session, nil
}

func (c *HTTPClient) Cancel(ctx context.Context, sessionID string) error {
	if _, err := c.do(ctx, http.MethodPost, "/v1/sessions/"+sessionID+"/cancel", nil); err != nil {
		return fmt.Errorf("cancel gateway session %s: %w", sessionID, err)
	}

	c.log.Info("Gateway session cancelled", zap.String("session_id", sessionID))
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload any) (*Session, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Basic auth, secret key as username with empty password
	req.SetBasicAuth(c.secretKey, "")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrSessionNotFound
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: res.StatusCode}
		if err := json.Unmarshal(raw, apiErr); err != nil {
			apiErr.Message = string(raw)
		}
		return nil, apiErr
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	session.Raw = raw

	return &session, nil
}
