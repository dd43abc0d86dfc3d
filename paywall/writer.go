package paywall

import (
	"bytes"
	"net/http"
)

// bufferedWriter holds the protected handler's response until the payment
// has been settled.
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header)}
}

func (b *bufferedWriter) Header() http.Header {
	return b.header
}

func (b *bufferedWriter) WriteHeader(statusCode int) {
	if b.status == 0 {
		b.status = statusCode
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

// Status is the recorded status, http.StatusOK if none was written.
func (b *bufferedWriter) Status() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

// flushTo replays the buffered response onto w. Headers already set on w
// are kept unless the handler set the same key.
func (b *bufferedWriter) flushTo(w http.ResponseWriter) {
	dst := w.Header()
	for key, values := range b.header {
		dst[key] = values
	}
	w.WriteHeader(b.Status())
	w.Write(b.body.Bytes())
}
