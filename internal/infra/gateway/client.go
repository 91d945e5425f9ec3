package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"enrollment-service/internal/config"
	"enrollment-service/internal/domain"

	"github.com/go-resty/resty/v2"
)

type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
	Capture  int               `json:"payment_capture"`
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// Client creates orders on a Razorpay-compatible gateway.
type Client struct {
	http    *resty.Client
	keyID   string
	breaker *CircuitBreaker
}

func NewClient(cfg config.GatewayConfig) *Client {
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetBasicAuth(cfg.KeyID, cfg.KeySecret).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:    rc,
		keyID:   cfg.KeyID,
		breaker: NewCircuitBreaker(cfg.BreakerMaxFailures, cfg.BreakerReset),
	}
}

// KeyID is the public key the browser checkout needs.
func (c *Client) KeyID() string {
	return c.keyID
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.Capture == 0 {
		req.Capture = 1
	}

	var (
		order    Order
		rejected error
	)
	err := c.breaker.Execute(ctx, func() error {
		var apiErr apiError
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&order).
			SetError(&apiErr).
			Post("/orders")
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return fmt.Errorf("%w: status %d", domain.ErrGatewayUnavailable, resp.StatusCode())
		}
		if resp.IsError() {
			// The gateway answered; a client error must not open the breaker.
			rejected = fmt.Errorf("%w: status %d: %s %s", domain.ErrGatewayRejected,
				resp.StatusCode(), apiErr.Error.Code, apiErr.Error.Description)
			return nil
		}
		return nil
	})
	if errors.Is(err, ErrCircuitOpen) {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	if rejected != nil {
		return nil, rejected
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: order response without id", domain.ErrGatewayUnavailable)
	}
	return &order, nil
}
