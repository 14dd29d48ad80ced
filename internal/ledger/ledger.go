// Package ledger is the relational store spec §3 describes: the
// pending-transaction ledger, the address notification-registration
// set, and the push-notification-registration mapping. It is backed
// by database/sql over modernc.org/sqlite (the teacher's pure-Go
// driver choice in geth/go.mod), so the gateway ships without cgo.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	transaction_hash   TEXT PRIMARY KEY,
	from_address       TEXT NOT NULL,
	to_address         TEXT NOT NULL,
	value              TEXT NOT NULL,
	estimated_gas_cost TEXT NOT NULL,
	sender_token_id    TEXT,
	confirmed          TIMESTAMP,
	created_at         TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_from_pending
	ON transactions(from_address) WHERE confirmed IS NULL;
CREATE INDEX IF NOT EXISTS idx_transactions_to_pending
	ON transactions(to_address) WHERE confirmed IS NULL;

CREATE TABLE IF NOT EXISTS notification_registrations (
	token_id    TEXT NOT NULL,
	eth_address TEXT NOT NULL,
	UNIQUE(token_id, eth_address)
);

CREATE TABLE IF NOT EXISTS push_notification_registrations (
	service         TEXT NOT NULL,
	registration_id TEXT NOT NULL,
	token_id        TEXT NOT NULL,
	UNIQUE(service, registration_id)
);
`

// Ledger owns the pooled *sql.DB connection and every SQL statement
// the orchestration layer needs.
type Ledger struct {
	db *sql.DB

	now func() time.Time
}

// Open opens (creating if necessary) the SQLite database at path and
// applies the schema. path may be ":memory:" for tests.
func Open(path string, maxOpenConns int) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}
	return &Ledger{db: db, now: time.Now}, nil
}

// Close releases the pool.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Ping verifies the connection is alive, for readiness checks.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

// PendingRow is a row of the unconfirmed-transaction ledger (spec §3,
// "Pending Ledger Row"), with value/gas kept as *big.Int to preserve
// full 256-bit range across the decimal-string storage format.
type PendingRow struct {
	TransactionHash  string
	FromAddress      string
	ToAddress        string
	Value            *big.Int
	EstimatedGasCost *big.Int
	SenderTokenID    *string
}

// InsertPending inserts a new unconfirmed ledger row. Per spec §4.6
// step 8b, this is called exactly once per accepted submission, after
// a successful broadcast.
func (l *Ledger) InsertPending(ctx context.Context, row PendingRow) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO transactions
			(transaction_hash, from_address, to_address, value, estimated_gas_cost, sender_token_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.TransactionHash, row.FromAddress, row.ToAddress,
		row.Value.String(), row.EstimatedGasCost.String(), row.SenderTokenID, l.now().UTC())
	if err != nil {
		return fmt.Errorf("insert pending transaction %s: %w", row.TransactionHash, err)
	}
	return nil
}

// PendingOutSum sums (value + estimated_gas_cost) over unconfirmed
// rows sent from addr, for the balance oracle's "pendingOut" term.
func (l *Ledger) PendingOutSum(ctx context.Context, addr string) (*big.Int, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT value, estimated_gas_cost FROM transactions WHERE confirmed IS NULL AND from_address = ?`,
		addr)
	if err != nil {
		return nil, fmt.Errorf("query pending out for %s: %w", addr, err)
	}
	defer rows.Close()

	sum := new(big.Int)
	for rows.Next() {
		var valueStr, gasStr string
		if err := rows.Scan(&valueStr, &gasStr); err != nil {
			return nil, fmt.Errorf("scan pending out row: %w", err)
		}
		value, ok := new(big.Int).SetString(valueStr, 10)
		if !ok {
			return nil, fmt.Errorf("corrupt ledger value %q", valueStr)
		}
		gas, ok := new(big.Int).SetString(gasStr, 10)
		if !ok {
			return nil, fmt.Errorf("corrupt ledger gas cost %q", gasStr)
		}
		sum.Add(sum, value)
		sum.Add(sum, gas)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending out for %s: %w", addr, err)
	}
	return sum, nil
}

// PendingInSum sums value over unconfirmed rows sent to addr, for the
// balance oracle's "pendingIn" term.
func (l *Ledger) PendingInSum(ctx context.Context, addr string) (*big.Int, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT value FROM transactions WHERE confirmed IS NULL AND to_address = ?`,
		addr)
	if err != nil {
		return nil, fmt.Errorf("query pending in for %s: %w", addr, err)
	}
	defer rows.Close()

	sum := new(big.Int)
	for rows.Next() {
		var valueStr string
		if err := rows.Scan(&valueStr); err != nil {
			return nil, fmt.Errorf("scan pending in row: %w", err)
		}
		value, ok := new(big.Int).SetString(valueStr, 10)
		if !ok {
			return nil, fmt.Errorf("corrupt ledger value %q", valueStr)
		}
		sum.Add(sum, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending in for %s: %w", addr, err)
	}
	return sum, nil
}

// RegisterAddresses upserts (token_id, eth_address) pairs with
// conflict-ignore semantics, per spec §4.7.
func (l *Ledger) RegisterAddresses(ctx context.Context, tokenID string, addresses []string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin register addresses: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO notification_registrations (token_id, eth_address) VALUES (?, ?)
		 ON CONFLICT(token_id, eth_address) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare register addresses: %w", err)
	}
	defer stmt.Close()

	for _, addr := range addresses {
		if _, err := stmt.ExecContext(ctx, tokenID, addr); err != nil {
			return fmt.Errorf("register address %s: %w", addr, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit register addresses: %w", err)
	}
	return nil
}

// DeregisterAddresses deletes the rows matching tokenID AND an
// address in addresses, per spec §4.7.
func (l *Ledger) DeregisterAddresses(ctx context.Context, tokenID string, addresses []string) error {
	placeholders := make([]string, len(addresses))
	args := make([]any, 0, len(addresses)+1)
	args = append(args, tokenID)
	for i, addr := range addresses {
		placeholders[i] = "?"
		args = append(args, addr)
	}
	query := fmt.Sprintf(
		`DELETE FROM notification_registrations WHERE token_id = ? AND eth_address IN (%s)`,
		strings.Join(placeholders, ", "))

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deregister addresses: %w", err)
	}
	return nil
}

// RegisterPushNotification upserts a (service, registration_id) ->
// token_id mapping, last-writer-wins on token_id, per spec §3/§4.7.
func (l *Ledger) RegisterPushNotification(ctx context.Context, service, registrationID, tokenID string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO push_notification_registrations (service, registration_id, token_id)
		 VALUES (?, ?, ?)
		 ON CONFLICT(service, registration_id) DO UPDATE SET token_id = excluded.token_id`,
		service, registrationID, tokenID)
	if err != nil {
		return fmt.Errorf("register push notification: %w", err)
	}
	return nil
}

// DeregisterPushNotification deletes the row matching all three of
// service, registration ID, and token ID.
func (l *Ledger) DeregisterPushNotification(ctx context.Context, service, registrationID, tokenID string) error {
	_, err := l.db.ExecContext(ctx,
		`DELETE FROM push_notification_registrations WHERE service = ? AND registration_id = ? AND token_id = ?`,
		service, registrationID, tokenID)
	if err != nil {
		return fmt.Errorf("deregister push notification: %w", err)
	}
	return nil
}
