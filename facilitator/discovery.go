package facilitator

import (
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	x402 "github.com/becomeliminal/x402-facilitator"
)

// DefaultDiscoveryLimit is the page size when limit is absent or zero.
const DefaultDiscoveryLimit = 10

// NewDiscoveryRoute serves an empty discovery listing paginated by the
// offset and limit query parameters.
func NewDiscoveryRoute(logger *zap.Logger) Route {
	if logger == nil {
		logger = zap.L()
	}
	logger = logger.With(zap.String("route", "discovery"))

	get := func(w http.ResponseWriter, r *http.Request) {
		resp, err := listDiscoveryResources(r)
		if err != nil {
			logger.Error("error in discovery list", zap.Error(err))
			sendError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}

	return Route{GET: get}
}

func listDiscoveryResources(r *http.Request) (*x402.ListDiscoveryResourcesResponse, error) {
	limit, err := queryInt(r, "limit", DefaultDiscoveryLimit)
	if err != nil {
		return nil, err
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return nil, err
	}

	resp := &x402.ListDiscoveryResourcesResponse{
		X402Version: x402.X402Version,
		Items:       []x402.DiscoveryResource{},
		Pagination: x402.DiscoveryPagination{
			Limit:  limit,
			Offset: offset,
			Total:  0,
		},
	}

	if err := x402.ValidateDiscoveryResponse(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// queryInt treats an absent or zero parameter as def.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %q", name, raw)
	}
	if n == 0 {
		return def, nil
	}
	return n, nil
}
