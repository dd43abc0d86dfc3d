package facilitator

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	x402 "github.com/becomeliminal/x402-facilitator"
)

var errNilResponse = errors.New("facilitator returned no response")

// NewSettleRoute creates the settle route bound to cfg.Network and cfg.PrivateKey.
//
// Without a key POST fails with missing_private_key before reading the body.
func NewSettleRoute(cfg Config) Route {
	cfg = cfg.resolve()
	logger := cfg.Logger.With(zap.String("route", "settle"), zap.String("network", cfg.Network))

	post := func(w http.ResponseWriter, r *http.Request) {
		if cfg.PrivateKey == "" {
			logger.Error("settlement attempted without a private key")
			writeJSON(w, http.StatusInternalServerError, x402.SettleResponse{
				Success:     false,
				ErrorReason: x402.ReasonMissingPrivateKey,
				Transaction: "",
				Network:     cfg.Network,
			})
			return
		}

		signer, err := cfg.Chains.Signer(cfg.Network, cfg.PrivateKey)
		if err != nil {
			logger.Error("failed to create signer", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, x402.SettleResponse{
				Success:     false,
				ErrorReason: x402.ReasonUnexpectedSettleError,
				Transaction: "",
				Network:     cfg.Network,
			})
			return
		}

		body := decodePaymentRequest(r, logger)

		payload, err := x402.ParsePaymentPayload(body.PaymentPayload)
		if err != nil {
			logger.Warn("invalid payment payload", zap.Error(err))
			writeJSON(w, http.StatusBadRequest, x402.SettleResponse{
				Success:     false,
				ErrorReason: x402.ReasonInvalidPayload,
				Transaction: "",
				Network:     x402.NetworkFromRaw(body.PaymentPayload),
			})
			return
		}

		requirements, err := x402.ParsePaymentRequirements(body.PaymentRequirements)
		if err != nil {
			logger.Warn("invalid payment requirements", zap.Error(err))
			writeJSON(w, http.StatusBadRequest, x402.SettleResponse{
				Success:     false,
				ErrorReason: x402.ReasonInvalidPaymentRequirements,
				Transaction: "",
				Network:     payload.Network,
			})
			return
		}

		resp, err := cfg.Facilitator.Settle(r.Context(), signer, payload, requirements)
		if err == nil && resp == nil {
			err = errNilResponse
		}
		if err != nil {
			logger.Error("error settling payment", zap.String("payer", payload.Payer()), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, x402.SettleResponse{
				Success:     false,
				ErrorReason: x402.ReasonUnexpectedSettleError,
				Transaction: "",
				Network:     payload.Network,
			})
			return
		}

		logger.Info("payment settled",
			zap.String("payer", payload.Payer()),
			zap.String("transaction", resp.Transaction),
			zap.Bool("success", resp.Success))
		writeJSON(w, http.StatusOK, resp)
	}

	return Route{
		GET:  docHandler("/settle", "POST to settle x402 payments"),
		POST: post,
	}
}
