// Package middleware gates net/http handlers behind x402 payments settled
// through the facilitator routes embedded in the same server.
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	x402 "github.com/becomeliminal/x402-facilitator"
	"github.com/becomeliminal/x402-facilitator/paywall"
)

// PaymentMiddleware creates HTTP middleware that requires payment to address
// for every path matched by routes. It works with any net/http router,
// including a grpc-gateway ServeMux.
func PaymentMiddleware(address string, routes x402.Routes, cfg Config) func(http.Handler) http.Handler {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid x402 middleware configuration: %v", err))
	}
	if address == "" {
		panic("invalid x402 middleware configuration: address is required")
	}

	normalized := x402.NormalizeRoutes(routes, cfg.network())
	if err := normalized.Validate(); err != nil {
		panic(fmt.Sprintf("invalid x402 middleware configuration: %v", err))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.L()
	}
	logger = logger.With(zap.String("component", "x402-middleware"))

	delegate := cfg.Delegate
	if delegate == nil {
		delegate = paywall.New(paywall.WithLogger(logger))
	}

	basePath := cfg.basePath()
	options := cfg.options()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			params := paywall.Params{
				Address:        address,
				Routes:         normalized,
				FacilitatorURL: cfg.facilitatorURL(r, basePath),
				Options:        options,
			}

			_, route, ok := normalized.Match(r.URL.Path)
			if !ok || len(route.Basket) == 0 {
				delegate.Serve(w, r, next, params)
				return
			}

			bw := newBasketWriter(w, route.Basket, logger)
			delegate.Serve(bw, r, next, params)
			bw.finish()
		})
	}
}

// FacilitatorURL is the externally reachable facilitator base URL for r:
// the first X-Forwarded-Proto value (default http), the Host (default
// DefaultHost) and basePath. Both headers come from the client; see
// FacilitatorConfig.URL.
func FacilitatorURL(r *http.Request, basePath string) string {
	proto := "http"
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			proto = first
		}
	}

	host := r.Host
	if host == "" {
		host = DefaultHost
	}

	return proto + "://" + host + basePath
}
