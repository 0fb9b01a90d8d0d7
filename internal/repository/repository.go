// Package repository executes the marketplace's parameterized statements
// against the users, items and wishes tables. It holds no business rules.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"example/marketplace/internal/logger"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("repository: not found")

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var schemas = map[string][]string{
	"mysql": {
		`CREATE TABLE IF NOT EXISTS users (
			name VARCHAR(32) NOT NULL PRIMARY KEY,
			password VARCHAR(72) NOT NULL,
			ledger_account VARCHAR(32) NOT NULL,
			bought INT NOT NULL DEFAULT 0,
			sold INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			item_id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(32) NOT NULL,
			price DECIMAL(12,2) NOT NULL,
			seller VARCHAR(32) NOT NULL,
			UNIQUE KEY items_name_price (name, price),
			FOREIGN KEY (seller) REFERENCES users (name)
		)`,
		`CREATE TABLE IF NOT EXISTS wishes (
			wish_id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(32) NOT NULL,
			price DECIMAL(12,2) NOT NULL,
			wisher VARCHAR(32) NOT NULL,
			FOREIGN KEY (wisher) REFERENCES users (name)
		)`,
	},
	"sqlite3": {
		`CREATE TABLE IF NOT EXISTS users (
			name VARCHAR(32) NOT NULL PRIMARY KEY,
			password VARCHAR(72) NOT NULL,
			ledger_account VARCHAR(32) NOT NULL,
			bought INTEGER NOT NULL DEFAULT 0,
			sold INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			item_id INTEGER PRIMARY KEY AUTOINCREMENT,
			name VARCHAR(32) NOT NULL,
			price DECIMAL(12,2) NOT NULL,
			seller VARCHAR(32) NOT NULL,
			UNIQUE (name, price),
			FOREIGN KEY (seller) REFERENCES users (name)
		)`,
		`CREATE TABLE IF NOT EXISTS wishes (
			wish_id INTEGER PRIMARY KEY AUTOINCREMENT,
			name VARCHAR(32) NOT NULL,
			price DECIMAL(12,2) NOT NULL,
			wisher VARCHAR(32) NOT NULL,
			FOREIGN KEY (wisher) REFERENCES users (name)
		)`,
	},
}

// CreateSchema creates the three tables if they do not exist yet.
func CreateSchema(ctx context.Context, db Querier, driver string) error {
	stmts, ok := schemas[driver]
	if !ok {
		return fmt.Errorf("createSchema: unsupported driver %q", driver)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.Log.Errorw("Failed to create table", "driver", driver, "error", err)
			return fmt.Errorf("createSchema: %w", err)
		}
	}
	logger.Log.Debugw("Schema ready", "driver", driver)
	return nil
}

// WithTx runs fn inside a transaction, committing only if fn succeeds.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		logger.Log.Errorw("Failed to begin transaction", "error", err)
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			logger.Log.Warnw("Rolling back transaction", "error", err)
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		logger.Log.Errorw("Failed to commit transaction", "error", err)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// IsDuplicate reports whether err is a unique or primary key violation
// from either supported driver.
func IsDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
