package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"

	x402 "github.com/becomeliminal/x402-facilitator"
	"github.com/becomeliminal/x402-facilitator/facilitator"
	"github.com/becomeliminal/x402-facilitator/paywall"
)

// DefaultHost is used for the facilitator URL when a request carries no Host.
const DefaultHost = "localhost:3000"

// FacilitatorConfig locates the embedded facilitator routes.
type FacilitatorConfig struct {
	// URL the paywall posts verify and settle requests to, e.g.
	// "https://api.example.com/facilitator". When empty it is derived per
	// request from the Host and X-Forwarded-Proto headers, which the client
	// controls: a forged Host points verification at a server of the client's
	// choosing. Set URL in production, or only run without it behind a proxy
	// that rewrites Host.
	URL string

	// BasePath the facilitator routes are mounted under. Defaults to "/facilitator".
	// Ignored for the paywall's requests when URL is set.
	BasePath string

	// Network priced routes default to. Falls back to NETWORK, then base-sepolia.
	Network string
}

// Config holds the optional middleware configuration
type Config struct {
	Facilitator FacilitatorConfig

	// Passed through to the browser paywall page.
	CDPClientKey         string
	AppLogo              string
	AppName              string
	SessionTokenEndpoint string

	// Logger defaults to zap.L().
	Logger *zap.Logger

	// Delegate decides between pass-through and 402. Defaults to paywall.New().
	Delegate paywall.Delegate
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Facilitator.Network != "" && !x402.IsKnownNetwork(c.Facilitator.Network) {
		return x402.NewPaymentError(x402.ErrCodeInvalidConfig,
			fmt.Sprintf("facilitator network %q", c.Facilitator.Network), x402.ErrUnknownNetwork)
	}
	if c.Facilitator.BasePath != "" && !strings.HasPrefix(c.Facilitator.BasePath, "/") {
		return x402.NewPaymentError(x402.ErrCodeInvalidConfig,
			fmt.Sprintf("facilitator base path must start with /: %q", c.Facilitator.BasePath), nil)
	}
	if c.Facilitator.URL != "" {
		u, err := url.Parse(c.Facilitator.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return x402.NewPaymentError(x402.ErrCodeInvalidConfig,
				fmt.Sprintf("facilitator URL must be an absolute http(s) URL: %q", c.Facilitator.URL), err)
		}
	}
	return nil
}

// facilitatorURL is the configured URL, or the one derived from r.
func (c Config) facilitatorURL(r *http.Request, basePath string) string {
	if c.Facilitator.URL != "" {
		return strings.TrimSuffix(c.Facilitator.URL, "/")
	}
	return FacilitatorURL(r, basePath)
}

func (c Config) network() string {
	if c.Facilitator.Network != "" {
		return c.Facilitator.Network
	}
	if env := strings.TrimSpace(os.Getenv(facilitator.EnvNetwork)); env != "" {
		return env
	}
	return x402.DefaultNetwork
}

func (c Config) basePath() string {
	if c.Facilitator.BasePath == "" {
		return facilitator.DefaultBasePath
	}
	return strings.TrimSuffix(c.Facilitator.BasePath, "/")
}

func (c Config) options() paywall.Options {
	return paywall.Options{
		CDPClientKey:         c.CDPClientKey,
		AppLogo:              c.AppLogo,
		AppName:              c.AppName,
		SessionTokenEndpoint: c.SessionTokenEndpoint,
	}
}
