// Package ginx402 adapts the x402 payment middleware and the embedded
// facilitator routes to gin.
package ginx402

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	x402 "github.com/becomeliminal/x402-facilitator"
	"github.com/becomeliminal/x402-facilitator/facilitator"
	"github.com/becomeliminal/x402-facilitator/middleware"
)

// PaymentMiddleware creates a gin handler enforcing x402 payments on routes.
// It panics on invalid configuration, like middleware.PaymentMiddleware.
func PaymentMiddleware(address string, routes x402.Routes, cfg middleware.Config) gin.HandlerFunc {
	standardMiddleware := middleware.PaymentMiddleware(address, routes, cfg)

	return func(c *gin.Context) {
		original := c.Writer
		called := false

		handler := standardMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			rw := newResponseWriter(original, w)
			c.Writer = rw
			c.Request = r
			c.Next()
			rw.WriteHeaderNow()
		}))

		handler.ServeHTTP(original, c.Request)
		c.Writer = original

		if !called {
			c.Abort()
		}
	}
}

// RegisterFacilitator mounts the facilitator routes as GET and POST
// <basePath>/:segment on router. An empty basePath means "/facilitator".
func RegisterFacilitator(router gin.IRoutes, routes facilitator.Routes, basePath string) {
	if basePath == "" {
		basePath = facilitator.DefaultBasePath
	}
	pattern := strings.TrimSuffix(basePath, "/") + "/:segment"

	handle := func(c *gin.Context) {
		route, ok := routes.Route(c.Param("segment"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		route.ServeHTTP(c.Writer, c.Request)
	}

	router.GET(pattern, handle)
	router.POST(pattern, handle)
}
