// Package grpc enforces, on the gRPC side of a grpc-gateway deployment,
// that calls to priced methods carry the payment the HTTP middleware verified.
//
// The payment arrives as the x-payment-* metadata set by
// x402.WithPaymentMetadata, so these interceptors are only meaningful when the
// gRPC server is reachable solely through the gateway.
package grpc

import (
	"context"
	"fmt"
	"path"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	x402 "github.com/becomeliminal/x402-facilitator"
)

// Config selects the methods that require a forwarded payment.
type Config struct {
	// Methods are full method names ("/pkg.Service/Method") or path.Match
	// patterns over them ("/pkg.Service/*").
	Methods []string

	// Logger defaults to zap.L().
	Logger *zap.Logger
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Methods) == 0 {
		return x402.NewPaymentError(x402.ErrCodeInvalidConfig, "at least one method is required", nil)
	}
	for _, m := range c.Methods {
		if _, err := path.Match(m, "/"); err != nil {
			return x402.NewPaymentError(x402.ErrCodeInvalidConfig, fmt.Sprintf("invalid method pattern %q", m), err)
		}
	}
	return nil
}

func (c *Config) requiresPayment(fullMethod string) bool {
	for _, m := range c.Methods {
		if m == fullMethod {
			return true
		}
		if ok, _ := path.Match(m, fullMethod); ok {
			return true
		}
	}
	return false
}

// UnaryServerInterceptor rejects calls to priced methods that carry no
// verified payment and exposes the payment through x402.GetPaymentFromContext.
func UnaryServerInterceptor(cfg Config) grpc.UnaryServerInterceptor {
	logger := mustLogger(&cfg)

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !cfg.requiresPayment(info.FullMethod) {
			return handler(ctx, req)
		}

		ctx, err := paymentContext(ctx, info.FullMethod, logger)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

func paymentContext(ctx context.Context, fullMethod string, logger *zap.Logger) (context.Context, error) {
	payment, ok := x402.GetPaymentFromGRPCContext(ctx)
	if !ok {
		logger.Warn("call without verified payment", zap.String("method", fullMethod))
		return nil, status.Error(codes.ResourceExhausted, "payment required")
	}
	return x402.WithPaymentContext(ctx, payment), nil
}

func mustLogger(cfg *Config) *zap.Logger {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid x402 config: %v", err))
	}
	if cfg.Logger == nil {
		return zap.L()
	}
	return cfg.Logger
}

// RequirePayment is x402.RequirePayment with gRPC status errors, for use in
// service handlers.
func RequirePayment(ctx context.Context) (*x402.PaymentContext, error) {
	payment, err := x402.RequirePayment(ctx)
	if err != nil {
		return nil, status.Error(codes.ResourceExhausted, err.Error())
	}
	return payment, nil
}
