// Package httpapi is the HTTP boundary, spec §6: it decodes JSON
// request bodies, calls into the core packages, and is the only place
// in the repo that translates an *apierr.Error into the
// {"errors":[...]} wire envelope. Core packages never import
// net/http.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tokeneth/eth-gateway/internal/apierr"
	"github.com/tokeneth/eth-gateway/internal/balance"
	"github.com/tokeneth/eth-gateway/internal/chainclient"
	"github.com/tokeneth/eth-gateway/internal/ledger"
	"github.com/tokeneth/eth-gateway/internal/middleware"
	"github.com/tokeneth/eth-gateway/internal/notify"
	"github.com/tokeneth/eth-gateway/internal/skeleton"
	"github.com/tokeneth/eth-gateway/internal/submission"
	"github.com/tokeneth/eth-gateway/internal/validate"
)

// Server wires every HTTP-facing operation in spec §6's table.
type Server struct {
	chain      chainclient.Client
	balances   *balance.Oracle
	skeletons  *skeleton.Builder
	submission *submission.Pipeline
	notify     *notify.Registrar
	ledger     *ledger.Ledger
	logger     zerolog.Logger
}

// New builds a Server.
func New(chain chainclient.Client, balances *balance.Oracle, skeletons *skeleton.Builder, sub *submission.Pipeline, reg *notify.Registrar, led *ledger.Ledger, logger zerolog.Logger) *Server {
	return &Server{chain: chain, balances: balances, skeletons: skeletons, submission: sub, notify: reg, ledger: led, logger: logger}
}

// Routes returns the gateway's route table, mounted on a fresh
// http.ServeMux using Go 1.22 method-aware patterns.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /balance/{addr}", s.handleBalance)
	mux.HandleFunc("POST /tx/skeleton", s.handleSkeleton)
	mux.HandleFunc("POST /tx", s.handleSubmit)
	mux.HandleFunc("GET /tx/{hash}", s.handleGetTransaction)
	mux.HandleFunc("POST /notifications/register", s.handleRegisterAddresses)
	mux.HandleFunc("POST /notifications/deregister", s.handleDeregisterAddresses)
	mux.HandleFunc("POST /pn/{service}/register", s.handleRegisterPush)
	mux.HandleFunc("POST /pn/{service}/deregister", s.handleDeregisterPush)

	return mux
}

// writeError translates err into the wire envelope. Unrecognized
// errors are logged at Error level and collapsed to unexpected_error,
// per spec §7 — the underlying cause is never echoed to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		apiErr = apierr.ErrUnexpected(err)
	}
	if apiErr.Cause != nil {
		s.logger.Error().
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("slug", apiErr.Slug).
			Err(apiErr.Cause).
			Msg("request failed")
	}

	writeJSON(w, apiErr.Status, map[string]any{
		"errors": []map[string]string{
			{"id": apiErr.Slug, "message": apiErr.Message},
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// decodeJSON parses the request body into v, failing bad_arguments on
// any decode error.
func decodeJSON(r *http.Request, v any) *apierr.Error {
	if r.Body == nil {
		return apierr.ErrBadArguments()
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierr.ErrBadArguments()
	}
	return nil
}

func senderTokenID(ctx context.Context) *string {
	return middleware.SenderTokenID(ctx)
}
