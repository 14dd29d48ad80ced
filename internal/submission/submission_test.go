package submission

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/tokeneth/eth-gateway/internal/codec"
	"github.com/tokeneth/eth-gateway/internal/ledger"
)

type fakeBalances struct {
	effective *big.Int
}

func (f *fakeBalances) Balances(ctx context.Context, addr common.Address, ignorePendingIn bool) (*big.Int, *big.Int, error) {
	return f.effective, f.effective, nil
}

type fakeNonces struct {
	err error
}

func (f *fakeNonces) ValidateNonce(ctx context.Context, addr common.Address, submitted uint64) error {
	return f.err
}

type fakeBroadcaster struct {
	hash common.Hash
	err  error
	got  []byte
}

func (f *fakeBroadcaster) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	f.got = raw
	return f.hash, f.err
}

type fakeCache struct {
	sets map[string]uint64
}

func (f *fakeCache) Set(key string, nonce uint64) {
	if f.sets == nil {
		f.sets = map[string]uint64{}
	}
	f.sets[key] = nonce
}

type fakeLedger struct {
	rows []ledger.PendingRow
	err  error
}

func (f *fakeLedger) InsertPending(ctx context.Context, row ledger.PendingRow) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

func signedTx(t *testing.T, key *ecdsa.PrivateKey, nonce uint64, to common.Address, value *big.Int, gas uint64, gasPrice *big.Int) *types.Transaction {
	t.Helper()
	unsigned := codec.NewUnsigned(nonce, to, value, gas, gasPrice)
	signed, err := types.SignTx(unsigned, new(homesteadSignerAlias), key)
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}
	return signed
}

// homesteadSignerAlias avoids importing types.HomesteadSigner twice
// under a different name; it is the same signer codec.New(nil, 0, nil) uses.
type homesteadSignerAlias = types.HomesteadSigner

func newPipeline(balances *fakeBalances, nonces *fakeNonces, broadcaster *fakeBroadcaster, cache *fakeCache, led *fakeLedger) *Pipeline {
	return New(codec.New(nil, 0, nil), balances, nonces, broadcaster, cache, led, nil, nil)
}

func TestSubmitSignedTransactionSucceeds(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)
	to := common.HexToAddress("0x00000000000000000000000000000000000bbb")

	tx := signedTx(t, key, 0, to, big.NewInt(100), 21000, big.NewInt(1))
	raw, err := codec.New(nil, 0, nil).Encode(tx)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	broadcaster := &fakeBroadcaster{hash: common.HexToHash("0xdeadbeef")}
	cache := &fakeCache{}
	led := &fakeLedger{}
	p := newPipeline(&fakeBalances{effective: big.NewInt(1_000_000)}, &fakeNonces{}, broadcaster, cache, led)

	res, err := p.Submit(context.Background(), Input{Tx: raw})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.TxHash != broadcaster.hash {
		t.Fatalf("returned hash = %s, want %s", res.TxHash, broadcaster.hash)
	}
	if cache.sets[from.Hex()] != 1 {
		t.Fatalf("cache nonce hint = %d, want 1", cache.sets[from.Hex()])
	}
	if len(led.rows) != 1 {
		t.Fatalf("expected one ledger row, got %d", len(led.rows))
	}
	if led.rows[0].FromAddress != from.Hex() {
		t.Fatalf("ledger row from = %s, want %s", led.rows[0].FromAddress, from.Hex())
	}
}

func TestSubmitInsufficientFunds(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	to := common.HexToAddress("0x00000000000000000000000000000000000bbb")
	tx := signedTx(t, key, 0, to, big.NewInt(1_000_000), 21000, big.NewInt(1))
	raw, err := codec.New(nil, 0, nil).Encode(tx)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	p := newPipeline(&fakeBalances{effective: big.NewInt(0)}, &fakeNonces{}, &fakeBroadcaster{}, &fakeCache{}, &fakeLedger{})

	_, err = p.Submit(context.Background(), Input{Tx: raw})
	if err == nil {
		t.Fatalf("expected insufficient_funds error")
	}
}

func TestSubmitInvalidNonceRejectedBeforeBroadcast(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	to := common.HexToAddress("0x00000000000000000000000000000000000bbb")
	tx := signedTx(t, key, 0, to, big.NewInt(1), 21000, big.NewInt(1))
	raw, err := codec.New(nil, 0, nil).Encode(tx)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	broadcaster := &fakeBroadcaster{}
	p := newPipeline(&fakeBalances{effective: big.NewInt(1_000_000)}, &fakeNonces{err: errNonceTooLow}, broadcaster, &fakeCache{}, &fakeLedger{})

	_, err = p.Submit(context.Background(), Input{Tx: raw})
	if err == nil {
		t.Fatalf("expected invalid_nonce error")
	}
	if broadcaster.got != nil {
		t.Fatalf("broadcast must not happen when nonce validation fails")
	}
}

func TestSubmitUnsignedRequiresSignature(t *testing.T) {
	to := common.HexToAddress("0x00000000000000000000000000000000000bbb")
	unsigned := codec.NewUnsigned(0, to, big.NewInt(1), 21000, big.NewInt(1))
	raw, err := codec.New(nil, 0, nil).Encode(unsigned)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	p := newPipeline(&fakeBalances{effective: big.NewInt(1_000_000)}, &fakeNonces{}, &fakeBroadcaster{}, &fakeCache{}, &fakeLedger{})

	_, err = p.Submit(context.Background(), Input{Tx: raw})
	if err == nil {
		t.Fatalf("expected missing_signature error")
	}
}

func TestSubmitAttachesDetachedSignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	to := common.HexToAddress("0x00000000000000000000000000000000000bbb")

	adapter := codec.New(nil, 0, nil)
	unsigned := codec.NewUnsigned(0, to, big.NewInt(1), 21000, big.NewInt(1))
	signed, err := types.SignTx(unsigned, new(homesteadSignerAlias), key)
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}
	sig, err := adapter.SignatureOf(signed)
	if err != nil {
		t.Fatalf("SignatureOf: %v", err)
	}
	raw, err := adapter.Encode(unsigned)
	if err != nil {
		t.Fatalf("encode unsigned: %v", err)
	}

	broadcaster := &fakeBroadcaster{hash: common.HexToHash("0x01")}
	p := newPipeline(&fakeBalances{effective: big.NewInt(1_000_000)}, &fakeNonces{}, broadcaster, &fakeCache{}, &fakeLedger{})

	res, err := p.Submit(context.Background(), Input{Tx: raw, Signature: sig, HasSignature: true})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.TxHash != broadcaster.hash {
		t.Fatalf("hash mismatch")
	}
}

// TestSubmitPresignedMatchingSignatureAccepted covers spec §8 property
// 5's accept branch: a transaction that already carries a signature,
// resubmitted with a detached signature identical to the embedded one,
// is accepted rather than rejected as a conflict.
func TestSubmitPresignedMatchingSignatureAccepted(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	to := common.HexToAddress("0x00000000000000000000000000000000000bbb")

	adapter := codec.New(nil, 0, nil)
	signed := signedTx(t, key, 0, to, big.NewInt(1), 21000, big.NewInt(1))
	sig, err := adapter.SignatureOf(signed)
	if err != nil {
		t.Fatalf("SignatureOf: %v", err)
	}
	raw, err := adapter.Encode(signed)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	broadcaster := &fakeBroadcaster{hash: common.HexToHash("0x02")}
	p := newPipeline(&fakeBalances{effective: big.NewInt(1_000_000)}, &fakeNonces{}, broadcaster, &fakeCache{}, &fakeLedger{})

	res, err := p.Submit(context.Background(), Input{Tx: raw, Signature: sig, HasSignature: true})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.TxHash != broadcaster.hash {
		t.Fatalf("hash mismatch")
	}
}

// TestSubmitPresignedConflictingSignatureRejected covers spec §8
// property 5's reject branch: a transaction that already carries a
// signature, resubmitted with a detached signature from a *different*
// key, must be rejected rather than silently trusting either one.
func TestSubmitPresignedConflictingSignatureRejected(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	otherKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate other key: %v", err)
	}
	to := common.HexToAddress("0x00000000000000000000000000000000000bbb")

	adapter := codec.New(nil, 0, nil)
	signed := signedTx(t, key, 0, to, big.NewInt(1), 21000, big.NewInt(1))
	conflicting := signedTx(t, otherKey, 0, to, big.NewInt(1), 21000, big.NewInt(1))
	conflictingSig, err := adapter.SignatureOf(conflicting)
	if err != nil {
		t.Fatalf("SignatureOf: %v", err)
	}
	raw, err := adapter.Encode(signed)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	broadcaster := &fakeBroadcaster{}
	p := newPipeline(&fakeBalances{effective: big.NewInt(1_000_000)}, &fakeNonces{}, broadcaster, &fakeCache{}, &fakeLedger{})

	_, err = p.Submit(context.Background(), Input{Tx: raw, Signature: conflictingSig, HasSignature: true})
	if err == nil {
		t.Fatalf("expected invalid_signature error for a conflicting companion signature")
	}
	if broadcaster.got != nil {
		t.Fatalf("broadcast must not happen when the companion signature conflicts")
	}
}

// errNonceTooLow stands in for the plain error the nonce oracle returns
// for a nonce below the floor; the pipeline only checks for a non-nil
// error here.
var errNonceTooLow = &stubErr{"submitted nonce below floor"}

type stubErr struct{ msg string }

func (e *stubErr) Error() string { return e.msg }
