package facilitator

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	x402 "github.com/becomeliminal/x402-facilitator"
)

// Route serves one facilitator endpoint. A nil handler means the method is
// not offered.
type Route struct {
	GET  http.HandlerFunc
	POST http.HandlerFunc
}

// ServeHTTP dispatches by method: an unoffered GET or POST is 404, any other
// method is 405.
func (rt Route) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if rt.GET != nil {
			rt.GET(w, r)
			return
		}
	case http.MethodPost:
		if rt.POST != nil {
			rt.POST(w, r)
			return
		}
	default:
		sendError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	sendError(w, http.StatusNotFound, "Not found")
}

// Routes bundles the four facilitator routes.
type Routes struct {
	Verify    Route
	Settle    Route
	Supported Route
	Discovery Route
}

// NewRoutes resolves cfg's defaults and binds every route to them.
func NewRoutes(cfg Config) Routes {
	cfg = cfg.resolve()

	for _, network := range cfg.SupportedNetworks {
		if !x402.IsKnownNetwork(network) {
			cfg.Logger.Warn("advertising unknown network", zap.String("network", network))
		}
	}

	return Routes{
		Verify:    NewVerifyRoute(cfg),
		Settle:    NewSettleRoute(cfg),
		Supported: NewSupportedRoute(cfg.SupportedNetworks),
		Discovery: NewDiscoveryRoute(cfg.Logger),
	}
}

// NewRoutesFromEnv is NewRoutes over ConfigFromEnv with overrides applied.
func NewRoutesFromEnv(overrides Config) Routes {
	return NewRoutes(ConfigFromEnv().Merge(overrides))
}

// Route returns the route named by a path segment.
func (rs Routes) Route(segment string) (Route, bool) {
	switch segment {
	case "verify":
		return rs.Verify, true
	case "settle":
		return rs.Settle, true
	case "supported":
		return rs.Supported, true
	case "discovery":
		return rs.Discovery, true
	}
	return Route{}, false
}

// Handler serves every route under basePath, dispatching on the first path
// segment after it: <basePath>/verify, <basePath>/settle, ...
func (rs Routes) Handler(basePath string) http.Handler {
	basePath = normalizeBasePath(basePath)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		segment, ok := firstSegment(r.URL.Path, basePath)
		if !ok {
			sendError(w, http.StatusNotFound, "Not found")
			return
		}

		route, ok := rs.Route(segment)
		if !ok {
			sendError(w, http.StatusNotFound, "Not found")
			return
		}

		route.ServeHTTP(w, r)
	})
}

func normalizeBasePath(basePath string) string {
	if basePath == "" {
		return DefaultBasePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return strings.TrimSuffix(basePath, "/")
}

func firstSegment(requestPath, basePath string) (string, bool) {
	rest := strings.TrimPrefix(requestPath, basePath)
	if rest == requestPath && basePath != "" {
		return "", false
	}
	if !strings.HasPrefix(rest, "/") {
		return "", false
	}
	rest = strings.TrimPrefix(rest, "/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest, rest != ""
}
