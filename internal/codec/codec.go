// Package codec is the narrow façade around go-ethereum's RLP
// transaction codec that spec §4.2 calls the "Codec Adapter". It is
// the only package in this repo that knows how a *types.Transaction
// is encoded, signed, and has its sender recovered; every other
// package treats transactions as opaque values produced and consumed
// through this adapter.
package codec

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Fallback defaults used when the operator's configuration leaves
// chain.default_start_gas/chain.default_gas_price_wei unset (see
// internal/config.Validate). A real deployment would source these
// from chain conditions; the gateway's job is only to supply a safe,
// fixed fallback when a client omits them.
const (
	DefaultStartGas = uint64(21000)
)

// DefaultGasPrice is 20 gwei, a conservative legacy-transaction
// default independent of current network congestion.
func DefaultGasPrice() *big.Int {
	return new(big.Int).SetUint64(20_000_000_000)
}

// Adapter binds transaction encode/decode/signature operations to a
// fixed chain ID, and carries the configured gas limit/gas price defaults the
// skeleton builder falls back to per spec §4.5 ("Defaults are
// constants shared with the codec"). A zero chain ID selects the
// unprotected Homestead signer (no EIP-155 replay protection); this
// is the legacy transaction shape wallet gateways of this vintage
// speak, and matches the bring-your-own-signature flow where the
// client signs off-device and may not have baked a chain ID into the
// signature. See DESIGN.md for the chain-ID policy this setting
// expresses.
type Adapter struct {
	signer types.Signer

	defaultStartGas uint64
	defaultGasPrice *big.Int
}

// New builds an Adapter. chainID may be nil or zero to select the
// unprotected Homestead signer. defaultStartGas and defaultGasPrice
// are the operator-configured skeleton-builder defaults
// (chain.default_start_gas/chain.default_gas_price_wei); a zero
// defaultStartGas or nil defaultGasPrice falls back to this
// package's fixed constants.
func New(chainID *big.Int, defaultStartGas uint64, defaultGasPrice *big.Int) *Adapter {
	a := &Adapter{defaultStartGas: defaultStartGas, defaultGasPrice: defaultGasPrice}
	if chainID == nil || chainID.Sign() == 0 {
		a.signer = types.HomesteadSigner{}
	} else {
		a.signer = types.NewEIP155Signer(chainID)
	}
	if a.defaultStartGas == 0 {
		a.defaultStartGas = DefaultStartGas
	}
	if a.defaultGasPrice == nil {
		a.defaultGasPrice = DefaultGasPrice()
	}
	return a
}

// DefaultStartGas is the gas limit the skeleton builder fills in when
// a client omits one.
func (a *Adapter) DefaultStartGas() uint64 {
	return a.defaultStartGas
}

// DefaultGasPrice is the gas price the skeleton builder fills in when
// a client omits one.
func (a *Adapter) DefaultGasPrice() *big.Int {
	return new(big.Int).Set(a.defaultGasPrice)
}

// Decode parses an RLP-encoded transaction. It mirrors
// go-ethereum's wire format: raw must be the RLP encoding of a
// *types.Transaction, not a 0x-prefixed hex string.
func (a *Adapter) Decode(raw []byte) (*types.Transaction, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return tx, nil
}

// Encode produces the RLP encoding of tx.
func (a *Adapter) Encode(tx *types.Transaction) ([]byte, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	return raw, nil
}

// IsSigned reports whether tx carries a non-zero signature.
func (a *Adapter) IsSigned(tx *types.Transaction) bool {
	v, r, s := tx.RawSignatureValues()
	return v.Sign() != 0 || r.Sign() != 0 || s.Sign() != 0
}

// SignatureOf extracts the 65-byte detached signature (R || S || V,
// V normalized to a 0/1 recovery id) embedded in tx. It is only
// meaningful when IsSigned(tx) is true.
func (a *Adapter) SignatureOf(tx *types.Transaction) ([]byte, error) {
	if !a.IsSigned(tx) {
		return nil, errors.New("transaction is not signed")
	}
	v, r, s := tx.RawSignatureValues()

	recID := new(big.Int).Set(v)
	if tx.Protected() {
		chainID := tx.ChainId()
		recID.Sub(recID, new(big.Int).Mul(chainID, big.NewInt(2)))
		recID.Sub(recID, big.NewInt(35))
	} else {
		recID.Sub(recID, big.NewInt(27))
	}
	if recID.Sign() < 0 || recID.Cmp(big.NewInt(1)) > 0 {
		return nil, fmt.Errorf("unexpected recovery id %s", recID)
	}

	sig := make([]byte, 65)
	r.FillBytes(sig[0:32])
	s.FillBytes(sig[32:64])
	sig[64] = byte(recID.Uint64())
	return sig, nil
}

// AttachSignature returns a copy of tx with sig (a 65-byte R || S || V
// detached signature, V a 0/1 recovery id) attached under this
// adapter's signer. Attaching a signature to an already-signed
// transaction overwrites the previous one; callers must not rely on
// this per spec §4.2.
func (a *Adapter) AttachSignature(tx *types.Transaction, sig []byte) (*types.Transaction, error) {
	if len(sig) != 65 {
		return nil, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	signed, err := tx.WithSignature(a.signer, sig)
	if err != nil {
		return nil, fmt.Errorf("attach signature: %w", err)
	}
	return signed, nil
}

// SenderOf recovers the sender address from tx's signature. It is
// only meaningful when the transaction is signed.
func (a *Adapter) SenderOf(tx *types.Transaction) (common.Address, error) {
	addr, err := types.Sender(a.signer, tx)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover sender: %w", err)
	}
	return addr, nil
}

// NewUnsigned assembles an unsigned legacy transaction from the
// skeleton builder's inputs.
func NewUnsigned(nonce uint64, to common.Address, value *big.Int, startGas uint64, gasPrice *big.Int) *types.Transaction {
	return types.NewTransaction(nonce, to, value, startGas, gasPrice, nil)
}
