package balance

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

type fakeChain struct {
	balances map[common.Address]*big.Int
}

func (f *fakeChain) GetBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return f.balances[addr], nil
}

type fakeLedger struct {
	out map[string]*big.Int
	in  map[string]*big.Int
}

func (f *fakeLedger) PendingOutSum(ctx context.Context, addr string) (*big.Int, error) {
	if v, ok := f.out[addr]; ok {
		return v, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeLedger) PendingInSum(ctx context.Context, addr string) (*big.Int, error) {
	if v, ok := f.in[addr]; ok {
		return v, nil
	}
	return big.NewInt(0), nil
}

// TestBalanceIdentity covers spec §8 property 1 and scenario S6: the
// balance endpoint's rendering (chain 1000 + pending-in 50 - pending-out
// (20 value + 10 gas) = 1020).
func TestBalanceIdentity(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000aaa")

	chain := &fakeChain{balances: map[common.Address]*big.Int{addr: big.NewInt(1000)}}
	ledger := &fakeLedger{
		out: map[string]*big.Int{addr.Hex(): big.NewInt(30)}, // 20 value + 10 gas
		in:  map[string]*big.Int{addr.Hex(): big.NewInt(50)},
	}
	o := New(chain, ledger)

	confirmed, effective, err := o.Balances(context.Background(), addr, false)
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if confirmed.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("confirmed = %s, want 1000", confirmed)
	}
	if effective.Cmp(big.NewInt(1020)) != 0 {
		t.Fatalf("effective = %s, want 1020", effective)
	}
}

// TestIgnorePendingIn covers scenario S2: a sender must not spend
// funds only promised by an unconfirmed incoming transaction.
func TestIgnorePendingIn(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000aaa")

	chain := &fakeChain{balances: map[common.Address]*big.Int{addr: big.NewInt(0x100)}}
	ledger := &fakeLedger{
		out: map[string]*big.Int{addr.Hex(): big.NewInt(0xC0)}, // 0x80 value + 0x40 gas
		in:  map[string]*big.Int{addr.Hex(): big.NewInt(9999)}, // must be ignored
	}
	o := New(chain, ledger)

	_, effective, err := o.Balances(context.Background(), addr, true)
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if effective.Cmp(big.NewInt(0x40)) != 0 {
		t.Fatalf("effective (ignore pending in) = %s, want 0x40", effective)
	}
}

func TestBalancesNoPendingRows(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000bbb")
	chain := &fakeChain{balances: map[common.Address]*big.Int{addr: big.NewInt(42)}}
	ledger := &fakeLedger{out: map[string]*big.Int{}, in: map[string]*big.Int{}}
	o := New(chain, ledger)

	confirmed, effective, err := o.Balances(context.Background(), addr, false)
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if confirmed.Cmp(effective) != 0 {
		t.Fatalf("with no pending rows, confirmed (%s) should equal effective (%s)", confirmed, effective)
	}
}
