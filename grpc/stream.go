package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// StreamServerInterceptor is UnaryServerInterceptor for streaming RPCs.
// The payment is checked once, before the stream begins.
func StreamServerInterceptor(cfg Config) grpc.StreamServerInterceptor {
	logger := mustLogger(&cfg)

	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if !cfg.requiresPayment(info.FullMethod) {
			return handler(srv, ss)
		}

		ctx, err := paymentContext(ss.Context(), info.FullMethod, logger)
		if err != nil {
			return err
		}
		return handler(srv, &paymentServerStream{ServerStream: ss, ctx: ctx})
	}
}

// paymentServerStream wraps grpc.ServerStream to provide updated context with payment info
type paymentServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context with payment information
func (s *paymentServerStream) Context() context.Context {
	return s.ctx
}
