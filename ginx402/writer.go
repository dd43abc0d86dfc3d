package ginx402

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const noWritten = -1

// responseWriter routes gin's writes through the http.ResponseWriter the
// payment middleware handed to the next handler, deferring the status line
// the way gin's own writer does.
type responseWriter struct {
	gin.ResponseWriter
	w      http.ResponseWriter
	status int
	size   int
}

func newResponseWriter(base gin.ResponseWriter, w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: base, w: w, status: http.StatusOK, size: noWritten}
}

func (rw *responseWriter) Header() http.Header {
	return rw.w.Header()
}

func (rw *responseWriter) WriteHeader(code int) {
	if code > 0 && !rw.Written() {
		rw.status = code
	}
}

func (rw *responseWriter) WriteHeaderNow() {
	if !rw.Written() {
		rw.size = 0
		rw.w.WriteHeader(rw.status)
	}
}

func (rw *responseWriter) Write(p []byte) (int, error) {
	rw.WriteHeaderNow()
	n, err := rw.w.Write(p)
	rw.size += n
	return n, err
}

func (rw *responseWriter) WriteString(s string) (int, error) {
	return rw.Write([]byte(s))
}

func (rw *responseWriter) Status() int { return rw.status }

func (rw *responseWriter) Size() int { return rw.size }

func (rw *responseWriter) Written() bool { return rw.size != noWritten }

func (rw *responseWriter) Flush() {
	rw.WriteHeaderNow()
	if f, ok := rw.w.(http.Flusher); ok {
		f.Flush()
	}
}
