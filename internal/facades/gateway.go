package facades

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chamapesa/chama-wallet/internal/logger"
)

var (
	// ErrGatewayTimeout is returned when the provider did not answer in time.
	// Callers may retry up to their attempt ceiling.
	ErrGatewayTimeout = errors.New("gateway timeout")

	// ErrGatewayRejected is returned on a definitive decline. Terminal.
	ErrGatewayRejected = errors.New("gateway rejected payment")
)

// Status is the provider's view of a payment.
type Status string

// Gateway statuses
const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// InitiateRequest carries everything a provider needs to start collecting
// a payment. Target is a phone number for mobile money, a card token for
// card processors.
type InitiateRequest struct {
	Target  string
	Amount  decimal.Decimal
	Purpose string
}

// Gateway abstracts a payment provider: start a collection and query its
// outcome by external reference.
type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (string, error)
	QueryStatus(ctx context.Context, externalReference string) (Status, error)
}

// httpGateway is the JSON-over-HTTP core shared by the provider clients.
type httpGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func (g *httpGateway) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	return g.do(req, out)
}

func (g *httpGateway) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	return g.do(req, out)
}

func (g *httpGateway) do(req *http.Request, out any) error {
	resp, err := g.client.Do(req)
	if err != nil {
		logger.Log.Errorw("gateway request failed", "url", req.URL.String(), "error", err)
		return fmt.Errorf("%w: %v", ErrGatewayTimeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		logger.Log.Errorw("gateway unavailable", "url", req.URL.String(), "status", resp.StatusCode)
		return fmt.Errorf("%w: status %d", ErrGatewayTimeout, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		logger.Log.Errorw("gateway declined request", "url", req.URL.String(), "status", resp.StatusCode)
		return fmt.Errorf("%w: status %d", ErrGatewayRejected, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

type initiateResponse struct {
	Reference string `json:"reference"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func parseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusSuccess, StatusFailed:
		return Status(raw), nil
	}
	return "", fmt.Errorf("unknown gateway status %q", raw)
}

// MobileMoneyGateway speaks to a push-based mobile money provider.
// Initiate triggers an STK push to the member's phone; confirmation
// arrives on the webhook or via QueryStatus.
type MobileMoneyGateway struct {
	httpGateway
}

func NewMobileMoneyGateway(baseURL, apiKey string, timeout time.Duration) *MobileMoneyGateway {
	return &MobileMoneyGateway{httpGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}}
}

// Initiate asks the provider to push a payment prompt to the phone.
func (g *MobileMoneyGateway) Initiate(ctx context.Context, req InitiateRequest) (string, error) {
	body := map[string]any{
		"phone":       req.Target,
		"amount":      req.Amount,
		"description": req.Purpose,
	}

	var resp initiateResponse
	if err := g.post(ctx, "/v1/push", body, &resp); err != nil {
		return "", err
	}
	if resp.Reference == "" {
		return "", fmt.Errorf("%w: empty reference", ErrGatewayRejected)
	}
	return resp.Reference, nil
}

// QueryStatus asks the provider for the payment outcome directly.
func (g *MobileMoneyGateway) QueryStatus(ctx context.Context, externalReference string) (Status, error) {
	var resp statusResponse
	if err := g.get(ctx, "/v1/status/"+externalReference, &resp); err != nil {
		return "", err
	}
	return parseStatus(resp.Status)
}

// CardGateway speaks to a card/USSD processor using tokenized cards.
type CardGateway struct {
	httpGateway
}

func NewCardGateway(baseURL, apiKey string, timeout time.Duration) *CardGateway {
	return &CardGateway{httpGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}}
}

// Initiate charges a tokenized card.
func (g *CardGateway) Initiate(ctx context.Context, req InitiateRequest) (string, error) {
	body := map[string]any{
		"card_token": req.Target,
		"amount":     req.Amount,
		"narration":  req.Purpose,
	}

	var resp initiateResponse
	if err := g.post(ctx, "/v1/charges", body, &resp); err != nil {
		return "", err
	}
	if resp.Reference == "" {
		return "", fmt.Errorf("%w: empty reference", ErrGatewayRejected)
	}
	return resp.Reference, nil
}

// QueryStatus asks the processor for the charge outcome.
func (g *CardGateway) QueryStatus(ctx context.Context, externalReference string) (Status, error) {
	var resp statusResponse
	if err := g.get(ctx, "/v1/charges/"+externalReference, &resp); err != nil {
		return "", err
	}
	return parseStatus(resp.Status)
}
