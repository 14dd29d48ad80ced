// Package skeleton implements the Skeleton Builder, spec §4.5: it
// assembles an unsigned transaction from partial client input, filling
// in nonce/gas/gasPrice defaults, and renders a human-readable
// descriptor alongside the RLP-encoded transaction. It does not
// consult the balance oracle and does not write any state.
package skeleton

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/tokeneth/eth-gateway/internal/apierr"
	"github.com/tokeneth/eth-gateway/internal/codec"
	"github.com/tokeneth/eth-gateway/internal/validate"
)

// NonceOracle is the subset of the nonce oracle the builder needs to
// fill in an omitted nonce.
type NonceOracle interface {
	SuggestedNonce(ctx context.Context, addr common.Address) (uint64, error)
}

// Builder assembles unsigned transaction skeletons.
type Builder struct {
	codec  *codec.Adapter
	nonces NonceOracle
}

// New builds a Builder.
func New(c *codec.Adapter, nonces NonceOracle) *Builder {
	return &Builder{codec: c, nonces: nonces}
}

// Input is the skeleton builder's request: from and to are required;
// value is required; nonce, gas, and gasPrice are optional and are
// defaulted per spec §4.5 when the pointer is nil.
type Input struct {
	From     string
	To       string
	Value    string
	Nonce    *uint64
	Gas      *uint64
	GasPrice *string
}

// Descriptor is the echoed, human-readable rendering of the assembled
// transaction, with every numeric field rendered as hex per spec §4.5.
type Descriptor struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value"`
	Nonce    string `json:"nonce"`
	Gas      string `json:"gas"`
	GasPrice string `json:"gasPrice"`
}

// Result is the skeleton builder's output: the RLP-encoded unsigned
// transaction and its human-readable descriptor.
type Result struct {
	UnsignedTransaction []byte
	Descriptor          Descriptor
}

// Build validates in and assembles an unsigned transaction skeleton.
// It is idempotent: identical inputs yield identical outputs at a
// fixed chain state (it performs no writes and the only external read,
// the nonce oracle lookup, is skipped entirely when in.Nonce is set).
func (b *Builder) Build(ctx context.Context, in Input) (*Result, error) {
	from, ok := validate.Address(in.From)
	if !ok {
		return nil, apierr.ErrInvalidFromAddress()
	}
	to, ok := validate.Address(in.To)
	if !ok {
		return nil, apierr.ErrInvalidToAddress()
	}
	value, ok := validate.PositiveInt(in.Value)
	if !ok {
		return nil, apierr.ErrInvalidValue()
	}

	var nonce uint64
	if in.Nonce != nil {
		nonce = *in.Nonce
	} else {
		n, err := b.nonces.SuggestedNonce(ctx, from)
		if err != nil {
			return nil, apierr.ErrUnexpected(err)
		}
		nonce = n
	}

	var gas uint64
	if in.Gas != nil {
		gas = *in.Gas
	} else {
		gas = b.codec.DefaultStartGas()
	}

	var gasPrice *big.Int
	if in.GasPrice != nil {
		gp, ok := validate.Int(*in.GasPrice)
		if !ok {
			return nil, apierr.ErrInvalidGasPrice()
		}
		gasPrice = gp
	} else {
		gasPrice = b.codec.DefaultGasPrice()
	}

	tx := codec.NewUnsigned(nonce, to, value, gas, gasPrice)
	raw, err := b.codec.Encode(tx)
	if err != nil {
		return nil, apierr.ErrUnexpected(err)
	}

	return &Result{
		UnsignedTransaction: raw,
		Descriptor: Descriptor{
			From:     from.Hex(),
			To:       to.Hex(),
			Value:    hexutil.EncodeBig(value),
			Nonce:    hexutil.EncodeUint64(nonce),
			Gas:      hexutil.EncodeUint64(gas),
			GasPrice: hexutil.EncodeBig(gasPrice),
		},
	}, nil
}
