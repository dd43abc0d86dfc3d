package facilitator

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// maxBodyBytes caps verify and settle request bodies.
const maxBodyBytes = 1 << 20

type paymentRequest struct {
	PaymentPayload      json.RawMessage `json:"paymentPayload"`
	PaymentRequirements json.RawMessage `json:"paymentRequirements"`
}

// decodePaymentRequest reads a verify/settle body. A body that is not a JSON
// object decodes as an empty request so validation reports it.
func decodePaymentRequest(r *http.Request, logger *zap.Logger) paymentRequest {
	var req paymentRequest

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		logger.Warn("failed to read request body", zap.Error(err))
		return req
	}

	if err := json.Unmarshal(body, &req); err != nil {
		logger.Warn("request body is not a JSON object", zap.Error(err))
		return paymentRequest{}
	}

	return req
}

type endpointDoc struct {
	Endpoint    string            `json:"endpoint"`
	Description string            `json:"description"`
	Body        map[string]string `json:"body"`
}

func docHandler(endpoint, description string) http.HandlerFunc {
	doc := endpointDoc{
		Endpoint:    endpoint,
		Description: description,
		Body: map[string]string{
			"paymentPayload":      "PaymentPayload",
			"paymentRequirements": "PaymentRequirements",
		},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, doc)
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// sendError sends a JSON error response
func sendError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
