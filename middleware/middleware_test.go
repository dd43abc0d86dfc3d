package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	x402 "github.com/becomeliminal/x402-facilitator"
	"github.com/becomeliminal/x402-facilitator/facilitator"
	"github.com/becomeliminal/x402-facilitator/paywall"
)

const testAddress = "0x209693Bc6afc0C5328bA36FaF03C514EF312287C"

// MockDelegate is a mock implementation of paywall.Delegate for testing
type MockDelegate struct {
	ServeFunc func(w http.ResponseWriter, r *http.Request, next http.Handler, p paywall.Params)

	params paywall.Params
}

func (m *MockDelegate) Serve(w http.ResponseWriter, r *http.Request, next http.Handler, p paywall.Params) {
	m.params = p
	if m.ServeFunc != nil {
		m.ServeFunc(w, r, next, p)
		return
	}
	next.ServeHTTP(w, r)
}

func challenge(body string, headers map[string]string) func(http.ResponseWriter, *http.Request, http.Handler, paywall.Params) {
	return func(w http.ResponseWriter, r *http.Request, next http.Handler, p paywall.Params) {
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(http.StatusPaymentRequired)
		io.WriteString(w, body)
	}
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
})

var testBasket = x402.Basket{
	{ID: "sku-1", Name: "Premium report", Price: "$0.50", Quantity: 2, ImageURLs: []string{"https://cdn.example.com/r.png"}},
	{Name: "Support", Price: "$0.10", Metadata: map[string]interface{}{"tier": "gold"}},
}

const testBasketJSON = `[
	{"id":"sku-1","name":"Premium report","price":"$0.50","quantity":2,"image_urls":["https://cdn.example.com/r.png"]},
	{"name":"Support","price":"$0.10","metadata":{"tier":"gold"}}
]`

func serve(t *testing.T, routes x402.Routes, cfg Config, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = zaptest.NewLogger(t)
	}
	w := httptest.NewRecorder()
	PaymentMiddleware(testAddress, routes, cfg)(okHandler).ServeHTTP(w, r)
	return w
}

func TestBasketInjection(t *testing.T) {
	delegate := &MockDelegate{ServeFunc: challenge(`{
		"x402Version": 1,
		"error": "X-PAYMENT header is required",
		"accepts": [
			{"scheme":"exact","network":"base-sepolia","extra":{"name":"USDC","version":"2"}},
			{"scheme":"exact","network":"solana"},
			{"scheme":"exact","network":"base","extra":["not","an","object"]}
		]
	}`, map[string]string{"Content-Type": "application/json", "X-Custom": "kept"})}

	routes := x402.Routes{"/report": {Price: "$1.10", Basket: testBasket}}
	w := serve(t, routes, Config{Delegate: delegate}, httptest.NewRequest(http.MethodGet, "/report", nil))

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "kept", w.Header().Get("X-Custom"))

	assert.JSONEq(t, `{
		"x402Version": 1,
		"error": "X-PAYMENT header is required",
		"basket": `+testBasketJSON+`,
		"accepts": [
			{"scheme":"exact","network":"base-sepolia","extra":{"name":"USDC","version":"2","basket":`+testBasketJSON+`}},
			{"scheme":"exact","network":"solana"},
			{"scheme":"exact","network":"base","extra":["not","an","object"]}
		]
	}`, w.Body.String())
}

func TestBasketInjection_RecomputesContentLength(t *testing.T) {
	body := `{"accepts":[{"extra":{}}]}`
	delegate := &MockDelegate{ServeFunc: challenge(body, map[string]string{"Content-Length": "26"})}

	routes := x402.Routes{"/report": {Price: "$1", Basket: testBasket[:1]}}
	w := serve(t, routes, Config{Delegate: delegate}, httptest.NewRequest(http.MethodGet, "/report", nil))

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, w.Body.Len(), mustAtoi(t, w.Header().Get("Content-Length")))
	assert.Greater(t, w.Body.Len(), len(body))
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}

func TestBasketInjection_FailureKeepsOriginal(t *testing.T) {
	bodies := []string{
		`<html>pay</html>`,
		`["accepts"]`,
		`null`,
		``,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			delegate := &MockDelegate{ServeFunc: challenge(body, nil)}
			routes := x402.Routes{"/report": {Price: "$1", Basket: testBasket}}

			w := serve(t, routes, Config{Delegate: delegate}, httptest.NewRequest(http.MethodGet, "/report", nil))

			assert.Equal(t, http.StatusPaymentRequired, w.Code)
			assert.Equal(t, body, w.Body.String())
		})
	}
}

func TestBasketInjection_WithoutBasketUntouched(t *testing.T) {
	body := `{"x402Version":1,"error":"X-PAYMENT header is required","accepts":[{"extra":{"name":"USDC"}}]}`
	delegate := &MockDelegate{ServeFunc: challenge(body, nil)}

	routes := x402.Routes{"/report": x402.Price("$1")}
	w := serve(t, routes, Config{Delegate: delegate}, httptest.NewRequest(http.MethodGet, "/report", nil))

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, body, w.Body.String())
}

func TestBasketInjection_PassThroughNeverModified(t *testing.T) {
	routes := x402.Routes{"/report": {Price: "$1", Basket: testBasket}}

	for _, status := range []int{http.StatusOK, http.StatusCreated, http.StatusBadRequest} {
		delegate := &MockDelegate{ServeFunc: func(w http.ResponseWriter, r *http.Request, next http.Handler, p paywall.Params) {
			w.WriteHeader(status)
			io.WriteString(w, `{"accepts":[{"extra":{}}]}`)
		}}

		w := serve(t, routes, Config{Delegate: delegate}, httptest.NewRequest(http.MethodGet, "/report", nil))

		assert.Equal(t, status, w.Code)
		assert.Equal(t, `{"accepts":[{"extra":{}}]}`, w.Body.String())
	}

	w := serve(t, routes, Config{Delegate: &MockDelegate{}}, httptest.NewRequest(http.MethodGet, "/report", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"status":"ok"}`, w.Body.String())
}

func TestDelegateParams(t *testing.T) {
	delegate := &MockDelegate{}
	routes := x402.Routes{
		"/a":   x402.Price("$0.01"),
		"/b/*": {Price: "$0.02", Network: "base"},
	}
	cfg := Config{
		Facilitator:          FacilitatorConfig{BasePath: "/api/payments", Network: "polygon-amoy"},
		CDPClientKey:         "key",
		AppLogo:              "/logo.png",
		AppName:              "Demo",
		SessionTokenEndpoint: "/api/session",
		Delegate:             delegate,
	}

	req := httptest.NewRequest(http.MethodGet, "/a", nil)
	req.Host = "shop.example.com"
	req.Header.Set("X-Forwarded-Proto", "https")
	serve(t, routes, cfg, req)

	p := delegate.params
	assert.Equal(t, testAddress, p.Address)
	assert.Equal(t, "https://shop.example.com/api/payments", p.FacilitatorURL)
	assert.Equal(t, "polygon-amoy", p.Routes["/a"].Network)
	assert.Equal(t, "base", p.Routes["/b/*"].Network)
	assert.Equal(t, paywall.Options{
		CDPClientKey:         "key",
		AppLogo:              "/logo.png",
		AppName:              "Demo",
		SessionTokenEndpoint: "/api/session",
	}, p.Options)

	assert.Empty(t, routes["/a"].Network, "caller routes must not be modified")
}

func TestDelegateParams_ConfiguredFacilitatorURL(t *testing.T) {
	delegate := &MockDelegate{}
	cfg := Config{
		Facilitator: FacilitatorConfig{URL: "https://pay.example.com/facilitator/"},
		Delegate:    delegate,
	}

	req := httptest.NewRequest(http.MethodGet, "/a", nil)
	req.Host = "attacker.example"
	req.Header.Set("X-Forwarded-Proto", "http")
	serve(t, x402.Routes{"/a": x402.Price("$0.01")}, cfg, req)

	assert.Equal(t, "https://pay.example.com/facilitator", delegate.params.FacilitatorURL)
}

func TestNetworkFallback(t *testing.T) {
	routes := x402.Routes{"/a": x402.Price("$0.01")}

	t.Run("env", func(t *testing.T) {
		t.Setenv("NETWORK", "avalanche-fuji")
		delegate := &MockDelegate{}
		serve(t, routes, Config{Delegate: delegate}, httptest.NewRequest(http.MethodGet, "/a", nil))
		assert.Equal(t, "avalanche-fuji", delegate.params.Routes["/a"].Network)
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv("NETWORK", "")
		delegate := &MockDelegate{}
		serve(t, routes, Config{Delegate: delegate}, httptest.NewRequest(http.MethodGet, "/a", nil))
		assert.Equal(t, "base-sepolia", delegate.params.Routes["/a"].Network)
	})
}

func TestFacilitatorURL(t *testing.T) {
	tests := []struct {
		name      string
		host      string
		forwarded string
		basePath  string
		want      string
	}{
		{"defaults", "", "", "/facilitator", "http://localhost:3000/facilitator"},
		{"host", "api.example.com:8080", "", "/facilitator", "http://api.example.com:8080/facilitator"},
		{"forwarded", "api.example.com", "https", "/pay", "https://api.example.com/pay"},
		{"forwarded list", "api.example.com", "https, http", "/facilitator", "https://api.example.com/facilitator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Host = tt.host
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-Proto", tt.forwarded)
			}
			assert.Equal(t, tt.want, FacilitatorURL(r, tt.basePath))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{Facilitator: FacilitatorConfig{
		URL:      "https://pay.example.com/facilitator",
		BasePath: "/facilitator",
		Network:  "base",
	}}
	assert.NoError(t, valid.Validate())

	unknown := Config{Facilitator: FacilitatorConfig{Network: "mars"}}
	err := unknown.Validate()
	assert.Equal(t, x402.ErrCodeInvalidConfig, x402.GetPaymentErrorCode(err))
	assert.ErrorIs(t, err, x402.ErrUnknownNetwork)

	for _, fc := range []FacilitatorConfig{{BasePath: "pay"}, {URL: "pay.example.com"}} {
		cfg := Config{Facilitator: fc}
		assert.Equal(t, x402.ErrCodeInvalidConfig, x402.GetPaymentErrorCode(cfg.Validate()), "%+v", fc)
	}
}

func TestPaymentMiddleware_InvalidConfigPanics(t *testing.T) {
	tests := []struct {
		name    string
		address string
		routes  x402.Routes
		cfg     Config
	}{
		{"missing address", "", x402.Routes{"/a": x402.Price("$1")}, Config{}},
		{"bad price", testAddress, x402.Routes{"/a": x402.Price("one dollar")}, Config{}},
		{"unknown route network", testAddress, x402.Routes{"/a": {Price: "$1", Network: "mars"}}, Config{}},
		{"unknown global network", testAddress, x402.Routes{"/a": x402.Price("$1")}, Config{Facilitator: FacilitatorConfig{Network: "mars"}}},
		{"relative base path", testAddress, x402.Routes{"/a": x402.Price("$1")}, Config{Facilitator: FacilitatorConfig{BasePath: "pay"}}},
		{"relative facilitator URL", testAddress, x402.Routes{"/a": x402.Price("$1")}, Config{Facilitator: FacilitatorConfig{URL: "/facilitator"}}},
		{"non-http facilitator URL", testAddress, x402.Routes{"/a": x402.Price("$1")}, Config{Facilitator: FacilitatorConfig{URL: "ftp://pay.example.com"}}},
		{"unnamed basket item", testAddress, x402.Routes{"/a": {Price: "$1", Basket: x402.Basket{{Price: "$1"}}}}, Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() {
				PaymentMiddleware(tt.address, tt.routes, tt.cfg)
			})
		})
	}
}

// mockFacilitator accepts every payment made on the network it is bound to,
// like remote.Facilitator does.
type mockFacilitator struct{}

func (mockFacilitator) Verify(ctx context.Context, client x402.ChainReader, payload *x402.PaymentPayload, req *x402.PaymentRequirements) (*x402.VerifyResponse, error) {
	if client.Network() != payload.Network {
		return &x402.VerifyResponse{IsValid: false, InvalidReason: x402.ReasonInvalidNetwork, Payer: payload.Payer()}, nil
	}
	return &x402.VerifyResponse{IsValid: true, Payer: payload.Payer()}, nil
}

func (mockFacilitator) Settle(ctx context.Context, signer x402.ChainSigner, payload *x402.PaymentPayload, req *x402.PaymentRequirements) (*x402.SettleResponse, error) {
	if signer.Network() != payload.Network {
		return &x402.SettleResponse{Success: false, ErrorReason: x402.ReasonInvalidNetwork, Network: payload.Network}, nil
	}
	return &x402.SettleResponse{Success: true, Transaction: "0xsettled", Network: payload.Network, Payer: payload.Payer()}, nil
}

const testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func paymentHeader(t *testing.T, network string) string {
	t.Helper()
	resp = paidGet(t, server.URL+"/report", paymentHeader(t, "base-sepolia"))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "0x857b06519E91e3A54538791bDbb0E22373e36b66", body["payer"])

	settled, err := x402.DecodePaymentResponse(resp.Header.Get(x402.HeaderPaymentResponse))
	require.NoError(t, err)
	assert.Equal(t, "0xsettled", settled.Transaction)
	assert.Equal(t, "base-sepolia", settled.Network)
}

func TestEmbeddedFacilitator_OnePerNetwork(t *testing.T) {
	logger := zaptest.NewLogger(t)
	mux := http.NewServeMux()

	for _, network := range []string{"base", "polygon"} {
		basePath := "/facilitator/" + network
		routes := facilitator.NewRoutes(facilitator.Config{
			Network:     network,
			PrivateKey:  testPrivateKey,
			Facilitator: mockFacilitator{},
			Chains:      mockChains{},
			Logger:      logger,
		})
		mux.Handle(basePath+"/", routes.Handler(basePath))

		prefix := "/v1/" + network + "/"
		mux.Handle(prefix, PaymentMiddleware(testAddress, x402.Routes{
			prefix + "*": {Price: "$0.01"},
		}, Config{
			Facilitator: FacilitatorConfig{BasePath: basePath, Network: network},
			Logger:      logger,
		})(okHandler))
	}

	server := httptest.NewServer(mux)
	defer server.Close()

	for _, network := range []string{"base", "polygon"} {
		t.Run(network, func(t *testing.T) {
			resp := paidGet(t, server.URL+"/v1/"+network+"/report", paymentHeader(t, network))
			defer resp.Body.Close()

			require.Equal(t, http.StatusOK, resp.StatusCode)
			settled, err := x402.DecodePaymentResponse(resp.Header.Get(x402.HeaderPaymentResponse))
			require.NoError(t, err)
			assert.Equal(t, network, settled.Network)
		})
	}

	// A payment on another network matches no accepted requirement.
	resp := paidGet(t, server.URL+"/v1/base/report", paymentHeader(t, "polygon"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
}
