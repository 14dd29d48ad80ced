package httpapi

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/tokeneth/eth-gateway/internal/apierr"
	"github.com/tokeneth/eth-gateway/internal/skeleton"
	"github.com/tokeneth/eth-gateway/internal/submission"
	"github.com/tokeneth/eth-gateway/internal/validate"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "reason": "database unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleBalance implements GET /balance/{addr}, spec §6/§8 scenario S6.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := validate.Address(r.PathValue("addr"))
	if !ok {
		s.writeError(w, r, apierr.ErrInvalidAddress())
		return
	}

	confirmed, effective, err := s.balances.Balances(r.Context(), addr, false)
	if err != nil {
		s.writeError(w, r, apierr.ErrUnexpected(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"confirmed_balance":   hexutil.EncodeBig(confirmed),
		"unconfirmed_balance": hexutil.EncodeBig(effective),
	})
}

type skeletonRequest struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Value    string  `json:"value"`
	Nonce    *string `json:"nonce"`
	Gas      *string `json:"gas"`
	GasPrice *string `json:"gas_price"`
}

// handleSkeleton implements POST /tx/skeleton, spec §6/§8 scenario S1.
func (s *Server) handleSkeleton(w http.ResponseWriter, r *http.Request) {
	var req skeletonRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	in := skeleton.Input{From: req.From, To: req.To, Value: req.Value}
	if req.Nonce != nil {
		n, ok := validate.Int(*req.Nonce)
		if !ok {
			s.writeError(w, r, apierr.ErrInvalidNonce("unparseable nonce"))
			return
		}
		nonce := n.Uint64()
		in.Nonce = &nonce
	}
	if req.Gas != nil {
		g, ok := validate.Int(*req.Gas)
		if !ok {
			s.writeError(w, r, apierr.ErrInvalidGas())
			return
		}
		gas := g.Uint64()
		in.Gas = &gas
	}
	if req.GasPrice != nil {
		in.GasPrice = req.GasPrice
	}

	result, err := s.skeletons.Build(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tx_data": result.Descriptor,
		"tx":      hexutil.Encode(result.UnsignedTransaction),
	})
}

type submitRequest struct {
	Tx        string  `json:"tx"`
	Signature *string `json:"signature"`
}

// handleSubmit implements POST /tx, spec §4.6/§6/§8 scenarios S2-S5.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	raw, err := hexutil.Decode(req.Tx)
	if err != nil {
		s.writeError(w, r, apierr.ErrInvalidTransaction())
		return
	}

	in := submission.Input{Tx: raw, SenderTokenID: senderTokenID(r.Context())}
	if req.Signature != nil {
		sig, ok := validate.Signature(*req.Signature)
		if !ok {
			s.writeError(w, r, apierr.ErrInvalidSignature())
			return
		}
		in.Signature = sig
		in.HasSignature = true
	}

	result, err := s.submission.Submit(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"tx_hash": result.TxHash.Hex()})
}

// handleGetTransaction implements GET /tx/{hash}.
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	hashHex := r.PathValue("hash")
	if !common.IsHexAddress(hashHex) && len(hashHex) != 2*common.HashLength+2 {
		s.writeError(w, r, apierr.ErrBadArguments())
		return
	}
	hash := common.HexToHash(hashHex)

	raw, err := s.chain.GetTransactionByHash(r.Context(), hash)
	if err != nil {
		s.writeError(w, r, apierr.ErrUnexpected(err))
		return
	}
	if raw == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"tx":`))
	_, _ = w.Write(raw)
	_, _ = w.Write([]byte(`}`))
}

type addressListRequest struct {
	Addresses []string `json:"addresses"`
}

func (s *Server) handleRegisterAddresses(w http.ResponseWriter, r *http.Request) {
	var req addressListRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tokenID := tokenIDOrEmpty(r.Context())
	if err := s.notify.RegisterAddresses(r.Context(), tokenID, req.Addresses); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleDeregisterAddresses(w http.ResponseWriter, r *http.Request) {
	var req addressListRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tokenID := tokenIDOrEmpty(r.Context())
	if err := s.notify.DeregisterAddresses(r.Context(), tokenID, req.Addresses); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

type pushRegistrationRequest struct {
	RegistrationID string `json:"registration_id"`
}

func (s *Server) handleRegisterPush(w http.ResponseWriter, r *http.Request) {
	var req pushRegistrationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	service := r.PathValue("service")
	tokenID := tokenIDOrEmpty(r.Context())
	if err := s.notify.RegisterPushNotification(r.Context(), service, req.RegistrationID, tokenID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleDeregisterPush(w http.ResponseWriter, r *http.Request) {
	var req pushRegistrationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	service := r.PathValue("service")
	tokenID := tokenIDOrEmpty(r.Context())
	if err := s.notify.DeregisterPushNotification(r.Context(), service, req.RegistrationID, tokenID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func tokenIDOrEmpty(ctx context.Context) string {
	id := senderTokenID(ctx)
	if id == nil {
		return ""
	}
	return *id
}
