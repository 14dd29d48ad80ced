package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Logging logs one structured line when a request starts and one when
// it completes, tagged with the request ID set by RequestID and, once
// Auth has run, the bearer token's subject — so a submission or
// notification-registration failure can be traced back to the token
// that made the call without grepping the ledger.
func Logging(logger zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := GetRequestID(r.Context())

			startEvent := logger.Info().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr)
			if id := SenderTokenID(r.Context()); id != nil {
				startEvent = startEvent.Str("sender_token_id", *id)
			}
			startEvent.Msg("request started")

			rw := NewResponseWriter(w)
			next.ServeHTTP(rw, r)

			doneEvent := logger.Info().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.StatusCode()).
				Int("bytes", rw.BytesWritten()).
				Dur("duration", time.Since(start))
			if id := SenderTokenID(r.Context()); id != nil {
				doneEvent = doneEvent.Str("sender_token_id", *id)
			}
			doneEvent.Msg("request completed")
		})
	}
}
