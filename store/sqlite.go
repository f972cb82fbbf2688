package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/paperstock/market"
)

// Sentinel errors for callers to match with errors.Is.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrSessionNotFound = errors.New("session not found")
)

// Account is a user's cash state. Holdings and trades hang off it by id.
type Account struct {
	ID   string
	Cash market.Money
}

// Holding is a (account, symbol) position. A row exists iff qty > 0.
type Holding struct {
	AccountID string
	Symbol    string
	Qty       int64
	AvgCost   market.Money
}

// TradeLogEntry is one immutable fill record. Never updated or deleted
// outside of an explicit account reset.
type TradeLogEntry struct {
	ID        string
	AccountID string
	Symbol    string
	Side      market.Side
	Qty       int64
	Price     market.Money
	CreatedAt time.Time
}

// Store is the durable backing for accounts, holdings, the trade log, the
// watchlist and session tokens.
type Store struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and applies the schema.
// WAL mode and a busy timeout keep concurrent readers off the writers' backs;
// _txlock=immediate makes write transactions take their lock at BEGIN, which
// is what the ledger's read-modify-write discipline relies on.
func NewSQLite(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureAccount creates the account with the given starting cash if it does
// not exist yet. Existing accounts are left untouched.
func (s *Store) EnsureAccount(ctx context.Context, id string, cash market.Money) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (account_id, cash) VALUES (?, ?)
		 ON CONFLICT (account_id) DO NOTHING`, id, cash)
	return err
}

// GetAccount loads one account row.
func (s *Store) GetAccount(ctx context.Context, id string) (Account, error) {
	var a Account
	err := s.db.QueryRowContext(ctx,
		`SELECT account_id, cash FROM accounts WHERE account_id = ?`, id).
		Scan(&a.ID, &a.Cash)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return a, err
}

// Holdings lists an account's positions ordered by symbol.
func (s *Store) Holdings(ctx context.Context, accountID string) ([]Holding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id, symbol, qty, avg_cost FROM holdings
		 WHERE account_id = ? ORDER BY symbol`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Holding
	for rows.Next() {
		var h Holding
		if err := rows.Scan(&h.AccountID, &h.Symbol, &h.Qty, &h.AvgCost); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ListTrades returns an account's trade log, newest first. ULID trade IDs
// sort by creation time, so ordering by primary key is ordering by time.
func (s *Store) ListTrades(ctx context.Context, accountID string, limit int) ([]TradeLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT trade_id, account_id, symbol, side, qty, price, created_at
		 FROM trades WHERE account_id = ?
		 ORDER BY trade_id DESC LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeLogEntry
	for rows.Next() {
		var t TradeLogEntry
		var side string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Symbol, &side, &t.Qty, &t.Price, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Side = market.Side(side)
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddWatch adds a symbol to an account's watchlist. Idempotent.
func (s *Store) AddWatch(ctx context.Context, accountID, symbol string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watchlist (account_id, symbol) VALUES (?, ?)
		 ON CONFLICT (account_id, symbol) DO NOTHING`, accountID, symbol)
	return err
}

// RemoveWatch removes a symbol from an account's watchlist. Removing an
// absent entry is not an error.
func (s *Store) RemoveWatch(ctx context.Context, accountID, symbol string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM watchlist WHERE account_id = ? AND symbol = ?`, accountID, symbol)
	return err
}

// ListWatch returns an account's watched symbols ordered for display.
func (s *Store) ListWatch(ctx context.Context, accountID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol FROM watchlist WHERE account_id = ? ORDER BY symbol`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// ActiveSymbols returns the union of every watchlist entry and every symbol
// with a non-zero holding, across all accounts. This is the set the polling
// coordinator keeps warm.
func (s *Store) ActiveSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol FROM watchlist
		 UNION
		 SELECT symbol FROM holdings
		 ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// ResetAccount reinitializes cash to the given default and deletes holdings
// and watchlist entries. The trade log is purged only when keepLog is false;
// retaining it preserves the audit trail across resets.
func (s *Store) ResetAccount(ctx context.Context, id string, cash market.Money, keepLog bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET cash = ? WHERE account_id = ?`, cash, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAccountNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM holdings WHERE account_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM watchlist WHERE account_id = ?`, id); err != nil {
		return err
	}
	if !keepLog {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM trades WHERE account_id = ?`, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// PutSession stores a session token for an account.
func (s *Store) PutSession(ctx context.Context, token, accountID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, account_id) VALUES (?, ?)
		 ON CONFLICT (token) DO UPDATE SET account_id = excluded.account_id`,
		token, accountID)
	return err
}

// LookupSession resolves a session token to an account id.
func (s *Store) LookupSession(ctx context.Context, token string) (string, error) {
	var accountID string
	err := s.db.QueryRowContext(ctx,
		`SELECT account_id FROM sessions WHERE token = ?`, token).Scan(&accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSessionNotFound
	}
	return accountID, err
}
