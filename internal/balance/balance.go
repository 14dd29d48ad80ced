// Package balance implements the Balance Oracle, spec §4.3: confirmed
// and effective balance, reconciling chain state with the pending
// ledger.
package balance

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChainReader is the subset of the chain client the oracle needs.
type ChainReader interface {
	GetBalance(ctx context.Context, addr common.Address) (*big.Int, error)
}

// Ledger is the subset of the pending ledger the oracle needs. Each
// sum is a single query, read-consistent on its own; the oracle does
// not open a transaction spanning both sums and does not lock rows,
// per spec §4.3's "does not lock rows" note.
type Ledger interface {
	PendingOutSum(ctx context.Context, addr string) (*big.Int, error)
	PendingInSum(ctx context.Context, addr string) (*big.Int, error)
}

// Oracle computes confirmed and effective balances.
type Oracle struct {
	chain  ChainReader
	ledger Ledger
}

// New builds an Oracle.
func New(chain ChainReader, ledger Ledger) *Oracle {
	return &Oracle{chain: chain, ledger: ledger}
}

// Balances returns (confirmed, effective) for addr, per spec §4.3:
//
//	confirmed = chain.getBalance(addr)
//	effective = confirmed + pendingIn - pendingOut
//
// where pendingIn is omitted (treated as zero) when ignorePendingIn is
// true. Callers must pass ignorePendingIn = true when using the
// result as an admissibility check for a new outgoing transaction —
// a sender must not be able to spend funds only promised to them by
// an unconfirmed incoming transaction.
func (o *Oracle) Balances(ctx context.Context, addr common.Address, ignorePendingIn bool) (confirmed, effective *big.Int, err error) {
	addrHex := addr.Hex()

	confirmed, err = o.chain.GetBalance(ctx, addr)
	if err != nil {
		return nil, nil, fmt.Errorf("confirmed balance for %s: %w", addrHex, err)
	}

	pendingOut, err := o.ledger.PendingOutSum(ctx, addrHex)
	if err != nil {
		return nil, nil, fmt.Errorf("pending out for %s: %w", addrHex, err)
	}

	pendingIn := new(big.Int)
	if !ignorePendingIn {
		pendingIn, err = o.ledger.PendingInSum(ctx, addrHex)
		if err != nil {
			return nil, nil, fmt.Errorf("pending in for %s: %w", addrHex, err)
		}
	}

	effective = new(big.Int).Set(confirmed)
	effective.Add(effective, pendingIn)
	effective.Sub(effective, pendingOut)

	return confirmed, effective, nil
}
