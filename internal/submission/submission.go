// Package submission implements the Submission Pipeline, spec §4.6:
// decode, reconcile signature, check balance and nonce admissibility,
// broadcast, and commit the cache/ledger side effects. It is a linear
// state machine — each step either advances or terminates with a
// failure — wiring together codec, balance, nonce, chainclient,
// noncecache, and ledger.
package submission

import (
	"bytes"
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/tokeneth/eth-gateway/internal/apierr"
	"github.com/tokeneth/eth-gateway/internal/codec"
	"github.com/tokeneth/eth-gateway/internal/ledger"
)

// BalanceOracle is the subset of the balance oracle the pipeline needs
// for step 5's admissibility check.
type BalanceOracle interface {
	Balances(ctx context.Context, addr common.Address, ignorePendingIn bool) (confirmed, effective *big.Int, err error)
}

// NonceValidator is the subset of the nonce oracle the pipeline needs
// for step 6's admissibility check.
type NonceValidator interface {
	ValidateNonce(ctx context.Context, addr common.Address, submitted uint64) error
}

// Broadcaster is the subset of the chain client the pipeline needs for
// step 7.
type Broadcaster interface {
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)
}

// NonceCache is the subset of the nonce hint cache the pipeline
// updates in step 8a. It is advisory: a failure here is never fatal to
// the submission, per spec §4.6's ordering note.
type NonceCache interface {
	Set(key string, nonce uint64)
}

// Ledger is the subset of the pending ledger the pipeline writes to in
// step 8b.
type Ledger interface {
	InsertPending(ctx context.Context, row ledger.PendingRow) error
}

// Metrics is the subset of the gateway's instrumentation the pipeline
// reports submission outcomes to. Outcome is the apierr slug of the
// failure, or "success".
type Metrics interface {
	ObserveSubmission(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveSubmission(string) {}

// Pipeline wires the submission state machine's collaborators.
type Pipeline struct {
	codec     *codec.Adapter
	balances  BalanceOracle
	nonces    NonceValidator
	chain     Broadcaster
	cache     NonceCache
	ledger    Ledger
	metrics   Metrics
	nowLogger func(format string, args ...any)
}

// New builds a Pipeline. logf receives the split-brain warning
// described in spec §4.6's ordering note; pass nil to discard it. A
// broadcast error is not passed to logf: it is returned as the Cause
// of an unexpected_error, which internal/httpapi logs.
// m records a gateway_submissions_total sample per outcome; pass nil
// to skip instrumentation.
func New(c *codec.Adapter, balances BalanceOracle, nonces NonceValidator, chain Broadcaster, cache NonceCache, ledger Ledger, logf func(format string, args ...any), m Metrics) *Pipeline {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	if m == nil {
		m = noopMetrics{}
	}
	return &Pipeline{codec: c, balances: balances, nonces: nonces, chain: chain, cache: cache, ledger: ledger, nowLogger: logf, metrics: m}
}

// Input is the submission pipeline's request. Tx is the RLP-encoded
// transaction; it may already be signed, or Signature may supply a
// detached signature to attach to an otherwise-unsigned Tx. SenderTokenID
// is the token identity recorded by step 1's optional authentication,
// nil when the request carried no identity.
type Input struct {
	Tx            []byte
	Signature     []byte
	HasSignature  bool
	SenderTokenID *string
}

// Result is the submission pipeline's response, per spec §4.6 step 9.
type Result struct {
	TxHash common.Hash
}

// Submit runs the pipeline end to end.
func (p *Pipeline) Submit(ctx context.Context, in Input) (result *Result, err error) {
	defer func() {
		if err != nil {
			if apiErr, ok := err.(*apierr.Error); ok {
				p.metrics.ObserveSubmission(apiErr.Slug)
				return
			}
			p.metrics.ObserveSubmission("unexpected_error")
			return
		}
		p.metrics.ObserveSubmission("success")
	}()

	tx, err := p.codec.Decode(in.Tx)
	if err != nil {
		return nil, apierr.ErrInvalidTransaction()
	}

	tx, err = p.reconcileSignature(tx, in.Signature, in.HasSignature)
	if err != nil {
		return nil, err
	}

	from, err := p.codec.SenderOf(tx)
	if err != nil {
		return nil, apierr.ErrInvalidSignature()
	}
	to := common.Address{}
	if tx.To() != nil {
		to = *tx.To()
	}

	required := new(big.Int).Set(tx.Value())
	gasCost := new(big.Int).Mul(new(big.Int).SetUint64(tx.Gas()), tx.GasPrice())
	required.Add(required, gasCost)

	_, effective, err := p.balances.Balances(ctx, from, true)
	if err != nil {
		return nil, apierr.ErrUnexpected(err)
	}
	if effective.Cmp(required) < 0 {
		return nil, apierr.ErrInsufficientFunds()
	}

	if err := p.nonces.ValidateNonce(ctx, from, tx.Nonce()); err != nil {
		return nil, apierr.ErrInvalidNonce(err.Error())
	}

	raw, err := p.codec.Encode(tx)
	if err != nil {
		return nil, apierr.ErrUnexpected(err)
	}
	hash, err := p.chain.SendRawTransaction(ctx, raw)
	if err != nil {
		return nil, apierr.ErrUnexpected(err)
	}

	p.cache.Set(from.Hex(), tx.Nonce()+1)

	row := ledger.PendingRow{
		TransactionHash:  hash.Hex(),
		FromAddress:      from.Hex(),
		ToAddress:        to.Hex(),
		Value:            new(big.Int).Set(tx.Value()),
		EstimatedGasCost: gasCost,
		SenderTokenID:    in.SenderTokenID,
	}
	if err := p.ledger.InsertPending(ctx, row); err != nil {
		// The transaction is already on the network; this split-brain
		// case must be visible to operators but does not fail the
		// request, per spec §4.6's ordering note.
		p.nowLogger("ledger insert failed after successful broadcast hash=%s from=%s: %v", hash.Hex(), from.Hex(), err)
	}

	return &Result{TxHash: hash}, nil
}

// reconcileSignature implements spec §4.6 step 3.
func (p *Pipeline) reconcileSignature(tx *types.Transaction, sig []byte, hasSig bool) (*types.Transaction, error) {
	if p.codec.IsSigned(tx) {
		if !hasSig {
			return tx, nil
		}
		embedded, err := p.codec.SignatureOf(tx)
		if err != nil {
			return nil, apierr.ErrInvalidSignature()
		}
		if !bytes.Equal(embedded, sig) {
			return nil, apierr.ErrInvalidSignature()
		}
		return tx, nil
	}

	if !hasSig {
		return nil, apierr.ErrMissingSignature()
	}
	if len(sig) != 65 {
		return nil, apierr.ErrInvalidSignature()
	}
	signed, err := p.codec.AttachSignature(tx, sig)
	if err != nil {
		return nil, apierr.ErrInvalidSignature()
	}
	return signed, nil
}
