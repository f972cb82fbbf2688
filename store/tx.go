package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rustyeddy/paperstock/market"
)

// Tx is one write transaction over the account tables. Because the
// connection opens transactions with BEGIN IMMEDIATE, the write lock is held
// from the first read, which makes a read-modify-write sequence on an
// account row safe against lost updates.
type Tx struct {
	ctx context.Context
	tx  *sql.Tx
}

// WithTx runs fn inside a transaction. fn returning an error rolls
// everything back; otherwise the transaction commits. Nothing partial is
// ever visible to other connections.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&Tx{ctx: ctx, tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// Account loads the account row inside the transaction.
func (t *Tx) Account(id string) (Account, error) {
	var a Account
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT account_id, cash FROM accounts WHERE account_id = ?`, id).
		Scan(&a.ID, &a.Cash)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return a, err
}

// Holding loads one position row; ok is false when the account holds none of
// the symbol.
func (t *Tx) Holding(accountID, symbol string) (Holding, bool, error) {
	var h Holding
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT account_id, symbol, qty, avg_cost FROM holdings
		 WHERE account_id = ? AND symbol = ?`, accountID, symbol).
		Scan(&h.AccountID, &h.Symbol, &h.Qty, &h.AvgCost)
	if errors.Is(err, sql.ErrNoRows) {
		return Holding{}, false, nil
	}
	if err != nil {
		return Holding{}, false, err
	}
	return h, true, nil
}

// SetCash updates the account's cash balance.
func (t *Tx) SetCash(accountID string, cash market.Money) error {
	_, err := t.tx.ExecContext(t.ctx,
		`UPDATE accounts SET cash = ? WHERE account_id = ?`, cash, accountID)
	return err
}

// UpsertHolding writes a position row, replacing any previous one.
func (t *Tx) UpsertHolding(h Holding) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO holdings (account_id, symbol, qty, avg_cost)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (account_id, symbol)
		 DO UPDATE SET qty = excluded.qty, avg_cost = excluded.avg_cost`,
		h.AccountID, h.Symbol, h.Qty, h.AvgCost)
	return err
}

// DeleteHolding removes a position row. Called when a sell takes the
// quantity to exactly zero.
func (t *Tx) DeleteHolding(accountID, symbol string) error {
	_, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM holdings WHERE account_id = ? AND symbol = ?`,
		accountID, symbol)
	return err
}

// AppendTrade inserts one immutable trade log entry.
func (t *Tx) AppendTrade(e TradeLogEntry) error {
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO trades (trade_id, account_id, symbol, side, qty, price, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AccountID, e.Symbol, string(e.Side), e.Qty, e.Price, e.CreatedAt)
	return err
}
