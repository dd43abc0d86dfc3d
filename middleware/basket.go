package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	x402 "github.com/becomeliminal/x402-facilitator"
)

// basketWriter streams every response except a 402, which it holds back so
// the basket can be attached to the challenge.
type basketWriter struct {
	http.ResponseWriter
	basket x402.Basket
	logger *zap.Logger

	wroteHeader bool
	challenge   bool
	body        bytes.Buffer
}

func newBasketWriter(w http.ResponseWriter, basket x402.Basket, logger *zap.Logger) *basketWriter {
	return &basketWriter{ResponseWriter: w, basket: basket, logger: logger}
}

func (bw *basketWriter) WriteHeader(statusCode int) {
	if bw.wroteHeader {
		return
	}
	bw.wroteHeader = true
	if statusCode == http.StatusPaymentRequired {
		bw.challenge = true
		return
	}
	bw.ResponseWriter.WriteHeader(statusCode)
}

func (bw *basketWriter) Write(p []byte) (int, error) {
	if !bw.wroteHeader {
		bw.WriteHeader(http.StatusOK)
	}
	if bw.challenge {
		return bw.body.Write(p)
	}
	return bw.ResponseWriter.Write(p)
}

func (bw *basketWriter) Flush() {
	if bw.challenge {
		return
	}
	if f, ok := bw.ResponseWriter.(http.Flusher); ok {
		if !bw.wroteHeader {
			bw.WriteHeader(http.StatusOK)
		}
		f.Flush()
	}
}

// finish emits the held 402, with the basket attached when the body allows it.
func (bw *basketWriter) finish() {
	if !bw.challenge {
		return
	}

	body := bw.body.Bytes()
	rewritten, err := injectBasket(body, bw.basket)
	if err != nil {
		bw.logger.Warn("failed to attach basket to payment challenge", zap.Error(err))
	} else {
		body = rewritten
	}

	h := bw.ResponseWriter.Header()
	if h.Get("Content-Length") != "" {
		h.Set("Content-Length", strconv.Itoa(len(body)))
	}
	bw.ResponseWriter.WriteHeader(http.StatusPaymentRequired)
	bw.ResponseWriter.Write(body)
}

var errNotObject = errors.New("payment challenge is not a JSON object")

// injectBasket sets body.basket and accepts[i].extra.basket for every
// accepts entry whose extra is an object. Other fields are left as they are.
func injectBasket(body []byte, basket x402.Basket) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errNotObject
	}

	basketJSON, err := json.Marshal(basket)
	if err != nil {
		return nil, err
	}
	doc["basket"] = basketJSON

	if raw, ok := doc["accepts"]; ok {
		var accepts []json.RawMessage
		if err := json.Unmarshal(raw, &accepts); err == nil {
			for i, entry := range accepts {
				if updated, ok := withExtraBasket(entry, basketJSON); ok {
					accepts[i] = updated
				}
			}
			if doc["accepts"], err = json.Marshal(accepts); err != nil {
				return nil, err
			}
		}
	}

	return json.Marshal(doc)
}

func withExtraBasket(entry, basketJSON json.RawMessage) (json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
		return nil, false
	}

	var extra map[string]json.RawMessage
	if err := json.Unmarshal(fields["extra"], &extra); err != nil || extra == nil {
		return nil, false
	}
	extra["basket"] = basketJSON

	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return nil, false
	}
	fields["extra"] = extraJSON

	updated, err := json.Marshal(fields)
	if err != nil {
		return nil, false
	}
	return updated, true
}
