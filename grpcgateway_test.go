package x402

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/metadata"
)

func TestPaymentMetadata(t *testing.T) {
	req := httptest.NewRequest("GET", "/v1/paid", nil)

	md := paymentMetadata(context.Background(), req)
	if got := md.Get(MetadataPaymentVerified); len(got) != 1 || got[0] != "false" {
		t.Errorf("expected verified=false without payment, got %v", md)
	}
	if got := md.Get(MetadataPaymentPayer); len(got) != 0 {
		t.Errorf("expected no payer without payment, got %v", got)
	}

	ctx := WithPaymentContext(context.Background(), &PaymentContext{
		Verified:     true,
		PayerAddress: testPayer,
		Amount:       "10000",
		Network:      "base-sepolia",
		Resource:     "http://example.com/v1/paid",
	})
	md = paymentMetadata(ctx, req)

	if got := md.Get(MetadataPaymentVerified); len(got) != 1 || got[0] != "true" {
		t.Errorf("expected verified=true, got %v", got)
	}
	if got := md.Get(MetadataPaymentPayer); len(got) != 1 || got[0] != testPayer {
		t.Errorf("expected payer %s, got %v", testPayer, got)
	}
	if got := md.Get(MetadataPaymentResource); len(got) != 1 || got[0] != "http://example.com/v1/paid" {
		t.Errorf("unexpected resource %v", got)
	}
}

func TestPaymentMetadata_Unverified(t *testing.T) {
	ctx := WithPaymentContext(context.Background(), &PaymentContext{Verified: false, PayerAddress: testPayer})
	md := paymentMetadata(ctx, httptest.NewRequest("GET", "/", nil))
	if got := md.Get(MetadataPaymentVerified); len(got) != 1 || got[0] != "false" {
		t.Errorf("expected verified=false for unverified payment, got %v", md)
	}
	if got := md.Get(MetadataPaymentPayer); len(got) != 0 {
		t.Errorf("expected no payer for unverified payment, got %v", got)
	}
}

func TestGetPaymentFromGRPCContext(t *testing.T) {
	if _, ok := GetPaymentFromGRPCContext(context.Background()); ok {
		t.Error("expected no payment without metadata")
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		MetadataPaymentVerified, "true",
		MetadataPaymentPayer, testPayer,
		MetadataPaymentAmount, "10000",
		MetadataPaymentNetwork, "base",
	))

	payment, ok := GetPaymentFromGRPCContext(ctx)
	if !ok {
		t.Fatal("expected payment in context")
	}
	if payment.PayerAddress != testPayer || payment.Amount != "10000" || payment.Network != "base" {
		t.Errorf("unexpected payment %+v", payment)
	}
	if payment.Resource != "" {
		t.Errorf("expected empty resource, got %s", payment.Resource)
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs(MetadataPaymentVerified, "false"))
	if _, ok := GetPaymentFromGRPCContext(ctx); ok {
		t.Error("expected no payment when not verified")
	}
}

func TestGetPaymentFromGRPCContext_LastValueWins(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Join(
		metadata.Pairs(MetadataPaymentVerified, "true", MetadataPaymentPayer, "0xforged"),
		metadata.Pairs(MetadataPaymentVerified, "false"),
	))
	if _, ok := GetPaymentFromGRPCContext(ctx); ok {
		t.Error("expected the trailing verified=false to win")
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Join(
		metadata.Pairs(MetadataPaymentPayer, "0xforged"),
		metadata.Pairs(MetadataPaymentVerified, "true", MetadataPaymentPayer, testPayer),
	))
	payment, ok := GetPaymentFromGRPCContext(ctx)
	if !ok {
		t.Fatal("expected payment in context")
	}
	if payment.PayerAddress != testPayer {
		t.Errorf("expected payer %s, got %s", testPayer, payment.PayerAddress)
	}
}

func TestPaymentHeaderMatcher(t *testing.T) {
	matcher := PaymentHeaderMatcher(runtime.DefaultHeaderMatcher)

	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Grpc-Metadata-X-Payment-Verified", "", false},
		{"Grpc-Metadata-X-Payment-Payer", "", false},
		{"grpc-metadata-x-payment-amount", "", false},
		{"Grpc-Metadata-Request-Id", "Request-Id", true},
		{"Authorization", "grpcgateway-Authorization", true},
		{"X-Payment", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := matcher(tt.header)
			if ok != tt.ok || got != tt.want {
				t.Errorf("matcher(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
			}
		})
	}
}
