package x402

import (
	"fmt"
	"path"
	"strings"
)

// DefaultMaxTimeoutSeconds is used when a route does not set MaxTimeoutSeconds.
const DefaultMaxTimeoutSeconds = 300

// RouteConfig describes the payment required for one route pattern.
type RouteConfig struct {
	// Price is a USD amount such as "$0.01", paid in USDC
	Price string

	// Network overrides the middleware-wide network for this route (optional)
	Network string

	// Basket lists line items injected into the 402 challenge (optional)
	Basket Basket

	// Config carries the remaining challenge fields (optional)
	Config *PaymentConfig
}

// PaymentConfig holds optional fields copied into the payment requirements
type PaymentConfig struct {
	// Description explains what this payment is for
	Description string

	// MimeType of the resource being sold
	MimeType string

	// MaxTimeoutSeconds bounds how long the payment authorization may take.
	// Zero means DefaultMaxTimeoutSeconds.
	MaxTimeoutSeconds int

	// OutputSchema is a JSON schema describing the response format
	OutputSchema map[string]interface{}

	// Resource overrides the resource URL derived from the request
	Resource string

	// CustomPaywallHTML is returned to browsers instead of the default paywall page
	CustomPaywallHTML string
}

// Price promotes a bare price to a RouteConfig inheriting the global network.
func Price(price string) RouteConfig {
	return RouteConfig{Price: price}
}

// Routes maps URL patterns to their payment configuration.
// Patterns support exact matches ("/v1/endpoint"), wildcards ("/v1/*")
// and path.Match globs ("/v1/*/summary").
type Routes map[string]RouteConfig

// NormalizeRoutes returns a copy of routes in which every entry carries a
// network: its own when set, network otherwise.
func NormalizeRoutes(routes Routes, network string) Routes {
	normalized := make(Routes, len(routes))
	for pattern, route := range routes {
		if route.Network == "" {
			route.Network = network
		}
		normalized[pattern] = route
	}
	return normalized
}

// Validate checks every route configuration
func (r Routes) Validate() error {
	for pattern, route := range r {
		if pattern == "" {
			return fmt.Errorf("route pattern cannot be empty")
		}
		if err := route.Validate(); err != nil {
			return fmt.Errorf("invalid route config for pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// Validate checks if the route configuration is valid
func (c *RouteConfig) Validate() error {
	if c.Price == "" {
		return fmt.Errorf("price is required")
	}

	if _, err := ParsePrice(c.Price); err != nil {
		return err
	}

	if c.Network != "" && !IsKnownNetwork(c.Network) {
		return fmt.Errorf("%w: %q", ErrUnknownNetwork, c.Network)
	}

	if c.Config != nil && c.Config.MaxTimeoutSeconds < 0 {
		return fmt.Errorf("maxTimeoutSeconds cannot be negative")
	}

	for i, item := range c.Basket {
		if item.Name == "" {
			return fmt.Errorf("basket item %d: name is required", i)
		}
	}

	return nil
}

// MaxTimeout returns the configured timeout or DefaultMaxTimeoutSeconds.
func (c *RouteConfig) MaxTimeout() int {
	if c.Config != nil && c.Config.MaxTimeoutSeconds > 0 {
		return c.Config.MaxTimeoutSeconds
	}
	return DefaultMaxTimeoutSeconds
}

// Match finds the route configuration for a given path.
// Exact patterns win over wildcards; among wildcards the longest pattern wins.
// Returns the matched pattern, the route and true if found.
func (r Routes) Match(requestPath string) (string, *RouteConfig, bool) {
	// First try exact matches
	if route, ok := r[requestPath]; ok {
		return requestPath, &route, true
	}

	var bestMatch string
	var bestRoute *RouteConfig

	for pattern, route := range r {
		if !matchPath(requestPath, pattern) {
			continue
		}
		// Ties on length are broken lexically so matching is deterministic.
		if bestRoute == nil || len(pattern) > len(bestMatch) ||
			(len(pattern) == len(bestMatch) && pattern < bestMatch) {
			bestMatch = pattern
			routeCopy := route
			bestRoute = &routeCopy
		}
	}

	if bestRoute != nil {
		return bestMatch, bestRoute, true
	}

	return "", nil, false
}

// matchPath checks if a request path matches a pattern
// Supports wildcards: /v1/* matches /v1/foo, /v1/foo/bar, etc.
func matchPath(requestPath, pattern string) bool {
	if requestPath == pattern {
		return true
	}

	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		return strings.HasPrefix(requestPath, prefix+"/") || requestPath == prefix
	}

	matched, _ := path.Match(pattern, requestPath)
	return matched
}
