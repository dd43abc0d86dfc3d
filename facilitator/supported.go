package facilitator

import (
	"net/http"

	x402 "github.com/becomeliminal/x402-facilitator"
)

// NewSupportedRoute lists one exact-scheme kind per network, in order.
// An empty list advertises x402.DefaultNetwork.
func NewSupportedRoute(networks []string) Route {
	if len(networks) == 0 {
		networks = []string{x402.DefaultNetwork}
	}

	kinds := make([]x402.SupportedKind, 0, len(networks))
	for _, network := range networks {
		kinds = append(kinds, x402.SupportedKind{
			X402Version: x402.X402Version,
			Scheme:      x402.SchemeExact,
			Network:     network,
		})
	}
	body := x402.SupportedPaymentKindsResponse{Kinds: kinds}

	return Route{
		GET: func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, body)
		},
	}
}
