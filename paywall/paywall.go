// Package paywall decides, per request, whether a priced route may be served:
// it issues the 402 challenge, verifies the X-PAYMENT header through a
// facilitator and settles once the protected handler has succeeded.
package paywall

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	x402 "github.com/becomeliminal/x402-facilitator"
	"github.com/becomeliminal/x402-facilitator/remote"
)

const (
	errHeaderRequired = "X-PAYMENT header is required"
	errNoMatchingKind = "Unable to find matching payment requirements"
)

// Options customize the browser paywall page.
type Options struct {
	CDPClientKey         string
	AppLogo              string
	AppName              string
	SessionTokenEndpoint string
}

// Params is everything a Delegate needs to gate one request.
type Params struct {
	// Address receives the payments.
	Address string

	// Routes must already carry a network per entry (see x402.NormalizeRoutes).
	Routes x402.Routes

	// FacilitatorURL is the base URL verify and settle are posted under.
	FacilitatorURL string

	Options Options
}

// Delegate decides between serving next and answering 402.
type Delegate interface {
	Serve(w http.ResponseWriter, r *http.Request, next http.Handler, p Params)
}

// Paywall is the default Delegate.
type Paywall struct {
	client *remote.Client
	logger *zap.Logger
}

// Option configures a Paywall.
type Option func(*Paywall)

// WithClient sets the facilitator client whose transport is reused for every
// facilitator URL.
func WithClient(c *remote.Client) Option {
	return func(p *Paywall) {
		p.client = c
	}
}

// WithLogger sets the logger. Defaults to zap.L().
func WithLogger(logger *zap.Logger) Option {
	return func(p *Paywall) {
		p.logger = logger
	}
}

// New creates a Paywall.
func New(opts ...Option) *Paywall {
	p := &Paywall{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.L()
	}
	if p.client == nil {
		p.client = remote.NewClient(remote.DefaultFacilitatorURL, remote.WithLogger(p.logger))
	}
	p.logger = p.logger.With(zap.String("component", "paywall"))
	return p
}

// Serve gates r according to the route it matches.
func (p *Paywall) Serve(w http.ResponseWriter, r *http.Request, next http.Handler, params Params) {
	ctx := r.Context()

	_, route, ok := params.Routes.Match(r.URL.Path)
	if !ok {
		next.ServeHTTP(w, r)
		return
	}

	requirements, err := BuildRequirements(r, params.Address, route)
	if err != nil {
		p.logger.Error("failed to build payment requirements", zap.String("path", r.URL.Path), zap.Error(err))
		sendError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	accepts := []x402.PaymentRequirements{*requirements}

	header := r.Header.Get(x402.HeaderPayment)
	if header == "" {
		if isBrowserRequest(r) {
			p.sendPaywallPage(w, r, route, requirements, params.Options)
			return
		}
		sendPaymentRequired(w, errHeaderRequired, accepts, "")
		return
	}

	payload, err := x402.DecodePaymentHeader(header)
	if err != nil {
		p.logger.Warn("invalid payment header", zap.Error(err))
		sendPaymentRequired(w, err.Error(), accepts, "")
		return
	}

	selected := findMatchingRequirements(accepts, payload)
	if selected == nil {
		sendPaymentRequired(w, errNoMatchingKind, accepts, payload.Payer())
		return
	}

	client := p.client.At(params.FacilitatorURL)

	verifyResult, err := client.Verify(ctx, payload, selected)
	if err != nil {
		p.logger.Error("payment verification failed", zap.String("facilitator", client.BaseURL()), zap.Error(err))
		sendPaymentRequired(w, err.Error(), accepts, payload.Payer())
		return
	}
	if !verifyResult.IsValid {
		sendPaymentRequired(w, verifyResult.InvalidReason, accepts, verifyResult.Payer)
		return
	}

	payer := verifyResult.Payer
	if payer == "" {
		payer = payload.Payer()
	}

	paymentCtx := &x402.PaymentContext{
		Verified:     true,
		PayerAddress: payer,
		Amount:       selected.MaxAmountRequired,
		Network:      selected.Network,
		Resource:     selected.Resource,
	}

	buf := newBufferedWriter()
	next.ServeHTTP(buf, r.WithContext(x402.WithPaymentContext(ctx, paymentCtx)))

	if buf.Status() >= http.StatusBadRequest {
		buf.flushTo(w)
		return
	}

	settleResult, err := client.Settle(ctx, payload, selected)
	if err != nil {
		p.logger.Error("payment settlement failed", zap.String("facilitator", client.BaseURL()), zap.Error(err))
		sendPaymentRequired(w, err.Error(), accepts, payer)
		return
	}
	if !settleResult.Success {
		sendPaymentRequired(w, settleResult.ErrorReason, accepts, payer)
		return
	}

	encoded, err := x402.EncodePaymentResponse(&x402.PaymentResponse{
		Success:     true,
		Transaction: settleResult.Transaction,
		Network:     settleResult.Network,
		Payer:       payer,
	})
	if err != nil {
		p.logger.Error("failed to encode payment response", zap.Error(err))
	} else {
		w.Header().Set(x402.HeaderPaymentResponse, encoded)
		w.Header().Set("Access-Control-Expose-Headers", x402.HeaderPaymentResponse)
	}

	buf.flushTo(w)
}

// BuildRequirements derives the payment requirements a request to route must meet.
func BuildRequirements(r *http.Request, address string, route *x402.RouteConfig) (*x402.PaymentRequirements, error) {
	network := route.Network
	if network == "" {
		network = x402.DefaultNetwork
	}
	info, err := x402.LookupNetwork(network)
	if err != nil {
		return nil, err
	}

	amount, err := x402.ParsePrice(route.Price)
	if err != nil {
		return nil, err
	}

	req := &x402.PaymentRequirements{
		Scheme:            x402.SchemeExact,
		Network:           network,
		MaxAmountRequired: amount,
		Resource:          resourceURL(r),
		PayTo:             address,
		MaxTimeoutSeconds: route.MaxTimeout(),
		Asset:             info.USDC,
	}

	if cfg := route.Config; cfg != nil {
		req.Description = cfg.Description
		req.MimeType = cfg.MimeType
		req.OutputSchema = cfg.OutputSchema
		if cfg.Resource != "" {
			req.Resource = cfg.Resource
		}
	}

	if info.Family == x402.FamilyEVM {
		req.Extra = map[string]interface{}{
			"name":    info.EIP712Name,
			"version": info.EIP712Version,
		}
	}

	return req, nil
}

func findMatchingRequirements(accepts []x402.PaymentRequirements, payload *x402.PaymentPayload) *x402.PaymentRequirements {
	for i := range accepts {
		if accepts[i].Scheme == payload.Scheme && accepts[i].Network == payload.Network {
			return &accepts[i]
		}
	}
	return nil
}

func resourceURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return fmt.Sprintf("%s://%s%s", scheme, r.Host, r.URL.Path)
}

// isBrowserRequest detects a web browser from the Accept and User-Agent headers
func isBrowserRequest(r *http.Request) bool {
	if !strings.Contains(r.Header.Get("Accept"), "text/html") {
		return false
	}

	userAgent := r.Header.Get("User-Agent")
	browserIndicators := []string{"Mozilla/", "Chrome/", "Safari/", "Firefox/", "Edge/", "Opera/"}
	for _, indicator := range browserIndicators {
		if strings.Contains(userAgent, indicator) {
			return true
		}
	}

	return false
}

// sendPaymentRequired sends a 402 Payment Required response
func sendPaymentRequired(w http.ResponseWriter, message string, accepts []x402.PaymentRequirements, payer string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusPaymentRequired)
	json.NewEncoder(w).Encode(x402.PaymentRequiredResponse{
		X402Version: x402.X402Version,
		Error:       message,
		Accepts:     accepts,
		Payer:       payer,
	})
}

// sendError sends a JSON error response
func sendError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
