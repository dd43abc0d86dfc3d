// Package remote talks to an x402 facilitator service over HTTP.
package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	x402 "github.com/becomeliminal/x402-facilitator"
)

// DefaultFacilitatorURL is the public facilitator operated for the x402 project.
const DefaultFacilitatorURL = "https://x402.org/facilitator"

// DefaultTimeout bounds every facilitator request.
const DefaultTimeout = 30 * time.Second

// Client handles communication with an x402 facilitator service.
type Client struct {
	baseURL string
	rc      *resty.Client
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.rc.SetTimeout(d)
	}
}

// WithAuthorization sends a static Authorization header, e.g. "Bearer <key>".
func WithAuthorization(value string) Option {
	return func(c *Client) {
		c.rc.SetHeader("Authorization", value)
	}
}

// WithLogger sets the logger. Defaults to zap.L().
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a facilitator client targeting baseURL, e.g.
// "https://x402.org/facilitator" or "http://localhost:8080/facilitator".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		rc: resty.New().
			SetTimeout(DefaultTimeout).
			SetHeader("Content-Type", "application/json"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.L()
	}
	c.rc.SetLogger(c.logger.Sugar())
	return c
}

// BaseURL returns the facilitator base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// At returns a client for another facilitator sharing c's transport and options.
func (c *Client) At(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		rc:      c.rc,
		logger:  c.logger,
	}
}

type paymentRequest struct {
	X402Version         int                       `json:"x402Version"`
	PaymentPayload      *x402.PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements *x402.PaymentRequirements `json:"paymentRequirements"`
}

// Verify checks a payment via POST /verify.
// A non-2xx reply carrying an invalidReason is returned as a result, not an error.
func (c *Client) Verify(ctx context.Context, payload *x402.PaymentPayload, requirements *x402.PaymentRequirements) (*x402.VerifyResponse, error) {
	var result, failure x402.VerifyResponse

	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(paymentRequest{X402Version: x402.X402Version, PaymentPayload: payload, PaymentRequirements: requirements}).
		SetResult(&result).
		SetError(&failure).
		Post(c.baseURL + "/verify")
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeFacilitator, "failed to call facilitator verify endpoint", err)
	}

	if resp.IsError() {
		if failure.InvalidReason != "" {
			return &failure, nil
		}
		return nil, x402.NewPaymentError(x402.ErrCodeFacilitator,
			fmt.Sprintf("facilitator verify returned status %d: %s", resp.StatusCode(), resp.String()), nil)
	}

	return &result, nil
}

// Settle executes the payment on-chain via POST /settle.
// A non-2xx reply carrying an errorReason is returned as a result, not an error.
func (c *Client) Settle(ctx context.Context, payload *x402.PaymentPayload, requirements *x402.PaymentRequirements) (*x402.SettleResponse, error) {
	var result, failure x402.SettleResponse

	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(paymentRequest{X402Version: x402.X402Version, PaymentPayload: payload, PaymentRequirements: requirements}).
		SetResult(&result).
		SetError(&failure).
		Post(c.baseURL + "/settle")
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeFacilitator, "failed to call facilitator settle endpoint", err)
	}

	if resp.IsError() {
		if failure.ErrorReason != "" {
			return &failure, nil
		}
		return nil, x402.NewPaymentError(x402.ErrCodeFacilitator,
			fmt.Sprintf("facilitator settle returned status %d: %s", resp.StatusCode(), resp.String()), nil)
	}

	return &result, nil
}

// Supported fetches the payment kinds via GET /supported.
func (c *Client) Supported(ctx context.Context) (*x402.SupportedPaymentKindsResponse, error) {
	var result x402.SupportedPaymentKindsResponse

	resp, err := c.rc.R().
		SetContext(ctx).
		SetResult(&result).
		Get(c.baseURL + "/supported")
	if err != nil {
		return nil, x402.NewPaymentError(x402.ErrCodeFacilitator, "failed to call facilitator supported endpoint", err)
	}

	if resp.IsError() {
		return nil, x402.NewPaymentError(x402.ErrCodeFacilitator,
			fmt.Sprintf("facilitator supported returned status %d: %s", resp.StatusCode(), resp.String()), nil)
	}

	return &result, nil
}
