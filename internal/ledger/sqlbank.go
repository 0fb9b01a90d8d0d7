package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"example/marketplace/internal/logger"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

var bankSchema = []string{
	`CREATE TABLE IF NOT EXISTS ledger_accounts (
		name VARCHAR(32) NOT NULL PRIMARY KEY,
		balance DECIMAL(14,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		entry_id CHAR(26) NOT NULL PRIMARY KEY,
		account VARCHAR(32) NOT NULL,
		amount DECIMAL(14,2) NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}

// SQLBank is a reference ledger kept in a relational database. Every
// balance change is journaled in ledger_entries.
type SQLBank struct {
	db *sql.DB
}

func NewSQLBank(db *sql.DB) *SQLBank {
	return &SQLBank{db: db}
}

// CreateSchema creates the bank tables if they are missing.
func (b *SQLBank) CreateSchema(ctx context.Context) error {
	for _, stmt := range bankSchema {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			logger.Log.Errorw("Failed to create ledger table", "error", err)
			return fmt.Errorf("ledger schema: %w", err)
		}
	}
	return nil
}

// CreateAccount opens an account holding initial.
func (b *SQLBank) CreateAccount(ctx context.Context, account string, initial decimal.Decimal) error {
	if initial.IsNegative() {
		return ErrInvalidAmount
	}
	if _, err := b.db.ExecContext(ctx, "INSERT INTO ledger_accounts (name, balance) VALUES (?, ?)", account, initial); err != nil {
		return fmt.Errorf("createAccount %q: %w", account, err)
	}
	logger.Log.Infow("Ledger account created", "account", account, "balance", initial)
	return nil
}

// Balance returns the current balance of account.
func (b *SQLBank) Balance(ctx context.Context, account string) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := b.db.QueryRowContext(ctx, "SELECT balance FROM ledger_accounts WHERE name = ?", account).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return bal, fmt.Errorf("balance %q: %w", account, ErrUnknownAccount)
	}
	if err != nil {
		return bal, fmt.Errorf("balance %q: %w: %v", account, ErrUnavailable, err)
	}
	return bal.Round(2), nil
}

func (b *SQLBank) Deposit(ctx context.Context, account string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return b.apply(ctx, account, amount)
}

func (b *SQLBank) Withdraw(ctx context.Context, account string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return b.apply(ctx, account, amount.Neg())
}

// apply adds delta to the balance in one transaction, refusing to go below zero.
func (b *SQLBank) apply(ctx context.Context, account string, delta decimal.Decimal) (err error) {

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger begin tx: %w: %v", ErrUnavailable, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"UPDATE ledger_accounts SET balance = balance + ? WHERE name = ? AND balance + ? >= 0",
		delta, account, delta)
	if err != nil {
		return fmt.Errorf("ledger update %q: %w: %v", account, ErrUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		row := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM ledger_accounts WHERE name = ?", account)
		if err = row.Scan(&exists); err != nil {
			return fmt.Errorf("ledger lookup %q: %w: %v", account, ErrUnavailable, err)
		}
		if exists == 0 {
			err = ErrUnknownAccount
		} else {
			err = ErrInsufficientFunds
		}
		logger.Log.Warnw("Ledger refused change", "account", account, "delta", delta, "error", err)
		return err
	}

	id := ulid.MustNew(ulid.Now(), ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)).String()
	if _, err = tx.ExecContext(ctx, "INSERT INTO ledger_entries (entry_id, account, amount, created_at) VALUES (?, ?, ?, ?)",
		id, account, delta, time.Now().UTC()); err != nil {
		return fmt.Errorf("ledger journal %q: %w: %v", account, ErrUnavailable, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ledger commit: %w: %v", ErrUnavailable, err)
	}
	logger.Log.Debugw("Ledger entry posted", "entry", id, "account", account, "delta", delta)
	return nil
}
