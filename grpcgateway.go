package x402

import (
	"context"
	"net/http"
	"strings"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/metadata"
)

// gRPC metadata keys carrying the verified payment.
const (
	MetadataPaymentVerified = "x-payment-verified"
	MetadataPaymentPayer    = "x-payment-payer"
	MetadataPaymentAmount   = "x-payment-amount"
	MetadataPaymentNetwork  = "x-payment-network"
	MetadataPaymentResource = "x-payment-resource"
)

// forwardedPaymentPrefix is how a client would smuggle x-payment-* metadata
// through the gateway's default header matcher.
var forwardedPaymentPrefix = strings.ToLower(runtime.MetadataHeaderPrefix) + "x-payment-"

// WithPaymentMetadata returns a ServeMuxOption that propagates payment information
// from HTTP context to gRPC metadata, making it accessible in gRPC handlers.
//
// It also installs an incoming header matcher that drops Grpc-Metadata-X-Payment-*
// headers and otherwise behaves like runtime.DefaultHeaderMatcher. A later
// runtime.WithIncomingHeaderMatcher replaces it, so wrap PaymentHeaderMatcher
// instead of passing a matcher of your own.
func WithPaymentMetadata() runtime.ServeMuxOption {
	return func(mux *runtime.ServeMux) {
		runtime.WithIncomingHeaderMatcher(PaymentHeaderMatcher(runtime.DefaultHeaderMatcher))(mux)
		runtime.WithMetadata(paymentMetadata)(mux)
	}
}

// PaymentHeaderMatcher wraps next so that client headers can never become
// x-payment-* metadata.
func PaymentHeaderMatcher(next runtime.HeaderMatcherFunc) runtime.HeaderMatcherFunc {
	return func(key string) (string, bool) {
		if strings.HasPrefix(strings.ToLower(key), forwardedPaymentPrefix) {
			return "", false
		}
		return next(key)
	}
}

// paymentMetadata always emits x-payment-verified so the gateway's own value
// is the last one on the wire, whatever else reached the metadata.
func paymentMetadata(ctx context.Context, _ *http.Request) metadata.MD {
	payment, ok := GetPaymentFromContext(ctx)
	if !ok || payment == nil || !payment.Verified {
		return metadata.Pairs(MetadataPaymentVerified, "false")
	}

	return metadata.Pairs(
		MetadataPaymentVerified, "true",
		MetadataPaymentPayer, payment.PayerAddress,
		MetadataPaymentAmount, payment.Amount,
		MetadataPaymentNetwork, payment.Network,
		MetadataPaymentResource, payment.Resource,
	)
}

// GetPaymentFromGRPCContext extracts payment information from gRPC metadata.
// Use this in gRPC handlers to access payment details. The last value of each
// key wins, since the gateway appends its annotations after forwarded headers.
func GetPaymentFromGRPCContext(ctx context.Context) (*PaymentContext, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, false
	}

	if last(md, MetadataPaymentVerified) != "true" {
		return nil, false
	}

	return &PaymentContext{
		Verified:     true,
		PayerAddress: last(md, MetadataPaymentPayer),
		Amount:       last(md, MetadataPaymentAmount),
		Network:      last(md, MetadataPaymentNetwork),
		Resource:     last(md, MetadataPaymentResource),
	}, true
}

// GetHTTPPathPattern extracts the HTTP path pattern from grpc-gateway context
func GetHTTPPathPattern(ctx context.Context) (string, bool) {
	return runtime.HTTPPathPattern(ctx)
}

func last(md metadata.MD, key string) string {
	if v := md.Get(key); len(v) > 0 {
		return v[len(v)-1]
	}
	return ""
}
