// Package chainclient is the façade over the upstream Ethereum
// JSON-RPC node described in spec §2 ("Chain Client"): exactly the
// four operations the orchestration layer needs, and nothing else.
// It is deliberately narrower than ethclient.Client so that every
// other package in this repo can depend on the small Client interface
// below instead of go-ethereum's full client.
package chainclient

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client is the narrow contract spec §4 names as the "Chain Client".
// GetTransactionCount returns the pending-inclusive nonce view, per
// spec §4.4. GetTransactionByHash returns the node's raw JSON
// representation (nil when not found) so the gateway can forward it
// verbatim, matching the upstream wire format without maintaining its
// own transaction-receipt schema.
type Client interface {
	GetBalance(ctx context.Context, addr common.Address) (*big.Int, error)
	GetTransactionCount(ctx context.Context, addr common.Address) (uint64, error)
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)
	GetTransactionByHash(ctx context.Context, hash common.Hash) (json.RawMessage, error)
}

// Metrics is the subset of the gateway's instrumentation the chain
// client reports upstream call latency to.
type Metrics interface {
	ObserveRPCDuration(method string, seconds float64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveRPCDuration(string, float64) {}

// RPCClient wraps an *ethclient.Client and its underlying *rpc.Client.
// Idempotent reads (GetBalance, GetTransactionCount,
// GetTransactionByHash) are retried with bounded backoff;
// SendRawTransaction is never retried, per spec §5 — a duplicate
// broadcast at a different nonce could double-spend.
type RPCClient struct {
	eth *ethclient.Client
	rpc *rpc.Client

	retries    int
	retryDelay time.Duration
	metrics    Metrics
}

// Dial connects to the chain node at rawURL (http://, https://,
// ws://, wss://, or a unix socket path — whatever rpc.DialContext
// accepts). A ws:// URL exercises go-ethereum's websocket transport
// (github.com/gorilla/websocket) transparently; this package never
// imports gorilla/websocket directly. m records gateway_chain_rpc_duration_seconds
// per call; pass nil to skip instrumentation.
func Dial(ctx context.Context, rawURL string, m Metrics) (*RPCClient, error) {
	rc, err := rpc.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc %s: %w", rawURL, err)
	}
	if m == nil {
		m = noopMetrics{}
	}
	return &RPCClient{
		eth:        ethclient.NewClient(rc),
		rpc:        rc,
		retries:    3,
		retryDelay: 200 * time.Millisecond,
		metrics:    m,
	}, nil
}

// Close releases the underlying connection.
func (c *RPCClient) Close() {
	c.rpc.Close()
}

func (c *RPCClient) GetBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	defer c.observe("eth_getBalance", time.Now())
	var bal *big.Int
	err := c.withRetry(ctx, func(ctx context.Context) error {
		var err error
		bal, err = c.eth.BalanceAt(ctx, addr, nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get balance %s: %w", addr.Hex(), err)
	}
	return bal, nil
}

func (c *RPCClient) GetTransactionCount(ctx context.Context, addr common.Address) (uint64, error) {
	defer c.observe("eth_getTransactionCount", time.Now())
	var n uint64
	err := c.withRetry(ctx, func(ctx context.Context) error {
		var err error
		n, err = c.eth.PendingNonceAt(ctx, addr)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("get transaction count %s: %w", addr.Hex(), err)
	}
	return n, nil
}

// SendRawTransaction broadcasts raw (an RLP-encoded signed
// transaction) via eth_sendRawTransaction and is never retried.
func (c *RPCClient) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	defer c.observe("eth_sendRawTransaction", time.Now())
	var hash common.Hash
	err := c.rpc.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(raw))
	if err != nil {
		return common.Hash{}, fmt.Errorf("send raw transaction: %w", err)
	}
	return hash, nil
}

func (c *RPCClient) GetTransactionByHash(ctx context.Context, hash common.Hash) (json.RawMessage, error) {
	defer c.observe("eth_getTransactionByHash", time.Now())
	var raw json.RawMessage
	err := c.withRetry(ctx, func(ctx context.Context) error {
		return c.rpc.CallContext(ctx, &raw, "eth_getTransactionByHash", hash)
	})
	if err != nil {
		return nil, fmt.Errorf("get transaction by hash %s: %w", hash.Hex(), err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return raw, nil
}

// observe records the elapsed time since start against method.
func (c *RPCClient) observe(method string, start time.Time) {
	c.metrics.ObserveRPCDuration(method, time.Since(start).Seconds())
}

// withRetry runs op up to c.retries+1 times with a fixed delay
// between attempts, for idempotent read calls only. It gives up
// immediately on context cancellation.
func (c *RPCClient) withRetry(ctx context.Context, op func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt < c.retries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}
	return lastErr
}
