// Package nonce implements the Nonce Oracle, spec §4.4: the floor
// computation shared by the skeleton builder's suggestion path and
// the submission pipeline's validation path.
package nonce

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ChainReader is the subset of the chain client the oracle needs.
type ChainReader interface {
	GetTransactionCount(ctx context.Context, addr common.Address) (uint64, error)
}

// Cache is the advisory nonce hint cache. It is updated only by the
// submission pipeline on successful broadcast (spec §4.6 step 8a);
// the oracle itself only ever reads it.
type Cache interface {
	Get(key string) (uint64, bool)
}

// Oracle computes the nonce floor: the smallest nonce the gateway will
// accept or suggest for a given sender.
type Oracle struct {
	chain ChainReader
	cache Cache
}

// New builds an Oracle.
func New(chain ChainReader, cache Cache) *Oracle {
	return &Oracle{chain: chain, cache: cache}
}

// floor computes max(cached, chainN), treating an absent cache entry
// as -infinity, per spec §4.4 steps 1-3.
func (o *Oracle) floor(ctx context.Context, addr common.Address) (uint64, error) {
	chainN, err := o.chain.GetTransactionCount(ctx, addr)
	if err != nil {
		return 0, fmt.Errorf("chain transaction count for %s: %w", addr.Hex(), err)
	}

	cached, ok := o.cache.Get(addr.Hex())
	if !ok {
		return chainN, nil
	}
	if cached > chainN {
		return cached, nil
	}
	return chainN, nil
}

// SuggestedNonce is the skeleton-builder path: the nonce a new,
// unsigned skeleton should carry if the caller didn't supply one.
func (o *Oracle) SuggestedNonce(ctx context.Context, addr common.Address) (uint64, error) {
	return o.floor(ctx, addr)
}

// ValidateNonce is the submission-pipeline path: it fails if submitted
// is below the floor, and otherwise accepts — including values far in
// the future, since chains legitimately accept gapped nonces and
// backfill (spec §4.4 step 3).
func (o *Oracle) ValidateNonce(ctx context.Context, addr common.Address, submitted uint64) error {
	floor, err := o.floor(ctx, addr)
	if err != nil {
		return err
	}
	if submitted < floor {
		return fmt.Errorf("submitted nonce %d is below floor %d", submitted, floor)
	}
	return nil
}
