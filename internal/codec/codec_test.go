package codec

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestRoundTripSignAndRecover(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)
	to := common.HexToAddress("0x0000000000000000000000000000000000000002")

	a := New(nil, 0, nil) // unprotected Homestead signer
	unsigned := NewUnsigned(3, to, big.NewInt(100), DefaultStartGas, DefaultGasPrice())

	signer := types.HomesteadSigner{}
	sighash := signer.Hash(unsigned)
	sig, err := crypto.Sign(sighash[:], key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	signed, err := a.AttachSignature(unsigned, sig)
	if err != nil {
		t.Fatalf("attach signature: %v", err)
	}

	if !a.IsSigned(signed) {
		t.Fatalf("expected signed transaction to report IsSigned")
	}

	recovered, err := a.SenderOf(signed)
	if err != nil {
		t.Fatalf("sender of: %v", err)
	}
	if recovered != from {
		t.Fatalf("recovered sender %s, want %s", recovered.Hex(), from.Hex())
	}

	extracted, err := a.SignatureOf(signed)
	if err != nil {
		t.Fatalf("signature of: %v", err)
	}
	if !bytes.Equal(extracted, sig) {
		t.Fatalf("extracted signature %x != original %x", extracted, sig)
	}

	raw, err := a.Encode(signed)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := a.Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	decodedSender, err := a.SenderOf(decoded)
	if err != nil {
		t.Fatalf("sender of decoded: %v", err)
	}
	if decodedSender != from {
		t.Fatalf("decoded sender %s != %s", decodedSender.Hex(), from.Hex())
	}
}

func TestIsSignedFalseForUnsigned(t *testing.T) {
	a := New(nil, 0, nil)
	to := common.HexToAddress("0x0000000000000000000000000000000000000002")
	tx := NewUnsigned(0, to, big.NewInt(1), DefaultStartGas, DefaultGasPrice())
	if a.IsSigned(tx) {
		t.Fatalf("expected unsigned transaction to report not signed")
	}
	if _, err := a.SignatureOf(tx); err == nil {
		t.Fatalf("expected SignatureOf to fail on unsigned transaction")
	}
}

func TestAttachSignatureOverwrites(t *testing.T) {
	key1, _ := crypto.GenerateKey()
	key2, _ := crypto.GenerateKey()
	from2 := crypto.PubkeyToAddress(key2.PublicKey)

	to := common.HexToAddress("0x0000000000000000000000000000000000000002")
	a := New(nil, 0, nil)
	unsigned := NewUnsigned(0, to, big.NewInt(1), DefaultStartGas, DefaultGasPrice())
	signer := types.HomesteadSigner{}
	sighash := signer.Hash(unsigned)

	sig1, _ := crypto.Sign(sighash[:], key1)
	signedOnce, err := a.AttachSignature(unsigned, sig1)
	if err != nil {
		t.Fatalf("attach 1: %v", err)
	}

	sig2, _ := crypto.Sign(sighash[:], key2)
	signedTwice, err := a.AttachSignature(signedOnce, sig2)
	if err != nil {
		t.Fatalf("attach 2: %v", err)
	}

	sender, err := a.SenderOf(signedTwice)
	if err != nil {
		t.Fatalf("sender of: %v", err)
	}
	if sender != from2 {
		t.Fatalf("expected overwritten signature to recover second signer")
	}
}
