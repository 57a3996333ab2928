package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"funnelpay/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Client is a thin HTTP client for the external payment gateway:
// create a charge, query its status. Settlement, ledgers and webhook
// generation happen on the gateway's side and are opaque here.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

func New(cfg config.GatewayCfg) *Client {
	timeout := cfg.TimeoutSec
	if timeout == 0 {
		timeout = 30
	}
	return &Client{
		http:    &http.Client{Timeout: time.Duration(timeout) * time.Second},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// Charge is the gateway's view of a payment intent
type Charge struct {
	Reference string `json:"reference"`
	Code      string `json:"code"`
	Status    string `json:"status"`
}

// ChargeRequest creates a new charge on the gateway
type ChargeRequest struct {
	Reference   string `json:"reference"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	CustomerKey string `json:"customer_key"`
}

// NewReference returns a client-generated idempotency reference.
func NewReference() string { return uuid.NewString() }

// CreateCharge registers a charge with the gateway, retrying transient
// failures with exponential backoff. 4xx responses are permanent.
func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if req.Reference == "" {
		req.Reference = NewReference()
	}
	var out Charge
	err := c.retry(ctx, func() error {
		return c.doJSON(ctx, http.MethodPost, "/v1/charges", req, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ChargeStatus queries the gateway for the current charge status.
func (c *Client) ChargeStatus(ctx context.Context, code string) (*Charge, error) {
	var out Charge
	err := c.retry(ctx, func() error {
		return c.doJSON(ctx, http.MethodGet, "/v1/charges/"+code, nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 15 * time.Second
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("marshal payload: %w", err))
		}
		body = bytes.NewReader(b)
	}

	url := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", "funnelpay/gateway")

	log.Debug().Str("method", method).Str("url", url).Msg("gateway request")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode gateway response: %w", err))
		}
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return backoff.Permanent(fmt.Errorf("gateway rejected request: %d %s", resp.StatusCode, raw))
	default:
		return fmt.Errorf("gateway error: %d", resp.StatusCode)
	}
}
