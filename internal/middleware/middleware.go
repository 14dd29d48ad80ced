// Package middleware implements the gateway's HTTP middleware chain:
// request ID tagging, structured logging, panic recovery, CORS,
// rate limiting, bearer-token identity, and Prometheus metrics. The
// shape (a plain func(http.Handler) http.Handler and a Chain helper)
// is the mini-service's, carried over unchanged.
package middleware

import "net/http"

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares in order; the first middleware in the
// list wraps all the others, so it sees the request first and the
// response last.
func Chain(handler http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// ResponseWriter wraps http.ResponseWriter to capture the status code
// and bytes written, for logging and metrics middleware.
type ResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

// NewResponseWriter wraps w, defaulting the observed status to 200
// (the value http.ResponseWriter assumes if WriteHeader is never
// called explicitly).
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *ResponseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

func (rw *ResponseWriter) StatusCode() int { return rw.statusCode }

func (rw *ResponseWriter) BytesWritten() int { return rw.bytesWritten }
