package facilitator

import (
	"net/http"

	"go.uber.org/zap"

	x402 "github.com/becomeliminal/x402-facilitator"
)

// NewVerifyRoute creates the verify route bound to cfg.Network.
//
// POST validates paymentPayload and paymentRequirements, then hands both to
// cfg.Facilitator with a client connected to the network. GET describes the
// endpoint.
func NewVerifyRoute(cfg Config) Route {
	cfg = cfg.resolve()
	logger := cfg.Logger.With(zap.String("route", "verify"), zap.String("network", cfg.Network))

	client, clientErr := cfg.Chains.ConnectedClient(cfg.Network)
	if clientErr != nil {
		logger.Error("failed to create connected client", zap.Error(clientErr))
	}

	post := func(w http.ResponseWriter, r *http.Request) {
		body := decodePaymentRequest(r, logger)

		payload, err := x402.ParsePaymentPayload(body.PaymentPayload)
		if err != nil {
			logger.Warn("invalid payment payload", zap.Error(err))
			writeJSON(w, http.StatusBadRequest, x402.VerifyResponse{
				IsValid:       false,
				InvalidReason: x402.ReasonInvalidPayload,
				Payer:         x402.PayerFromRaw(body.PaymentPayload),
			})
			return
		}

		requirements, err := x402.ParsePaymentRequirements(body.PaymentRequirements)
		if err != nil {
			logger.Warn("invalid payment requirements", zap.Error(err))
			writeJSON(w, http.StatusBadRequest, x402.VerifyResponse{
				IsValid:       false,
				InvalidReason: x402.ReasonInvalidPaymentRequirements,
				Payer:         payload.Payer(),
			})
			return
		}

		if clientErr != nil {
			writeJSON(w, http.StatusInternalServerError, x402.VerifyResponse{
				IsValid:       false,
				InvalidReason: x402.ReasonUnexpectedVerifyError,
				Payer:         payload.Payer(),
			})
			return
		}

		resp, err := cfg.Facilitator.Verify(r.Context(), client, payload, requirements)
		if err == nil && resp == nil {
			err = errNilResponse
		}
		if err != nil {
			logger.Error("error verifying payment", zap.String("payer", payload.Payer()), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, x402.VerifyResponse{
				IsValid:       false,
				InvalidReason: x402.ReasonUnexpectedVerifyError,
				Payer:         payload.Payer(),
			})
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}

	return Route{
		GET:  docHandler("/verify", "POST to verify x402 payments"),
		POST: post,
	}
}
