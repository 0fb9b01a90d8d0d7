package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"example/marketplace/internal/logger"
	"example/marketplace/internal/models"
)

// User database operations

// GetUser queries for the user with the specified name
func GetUser(ctx context.Context, q Querier, name string) (models.User, error) {
	var u models.User

	row := q.QueryRowContext(ctx, "SELECT name, password, ledger_account, bought, sold FROM users WHERE name = ?", name)
	if err := row.Scan(&u.Name, &u.PasswordHash, &u.LedgerAccount, &u.Bought, &u.Sold); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return u, fmt.Errorf("getUser %q: %w", name, ErrNotFound)
		}
		logger.Log.Errorw("Failed to query user", "name", name, "error", err)
		return u, fmt.Errorf("getUser %q: %w", name, err)
	}

	return u, nil
}

// InsertUser adds a fresh user row with zeroed counters
func InsertUser(ctx context.Context, q Querier, u models.User) error {
	_, err := q.ExecContext(ctx, "INSERT INTO users (name, password, ledger_account, bought, sold) VALUES (?, ?, ?, 0, 0)",
		u.Name, u.PasswordHash, u.LedgerAccount)
	if err != nil {
		if !IsDuplicate(err) {
			logger.Log.Errorw("Failed to insert user", "name", u.Name, "error", err)
		}
		return fmt.Errorf("insertUser %q: %w", u.Name, err)
	}

	logger.Log.Infow("User created", "name", u.Name)
	return nil
}

// DeleteUser removes the user row, returning how many rows went away
func DeleteUser(ctx context.Context, q Querier, name string) (int64, error) {
	res, err := q.ExecContext(ctx, "DELETE FROM users WHERE name = ?", name)
	if err != nil {
		logger.Log.Errorw("Failed to delete user", "name", name, "error", err)
		return 0, fmt.Errorf("deleteUser %q: %w", name, err)
	}
	return res.RowsAffected()
}

// IncrementBought bumps the lifetime purchase counter
func IncrementBought(ctx context.Context, q Querier, name string) error {
	return bump(ctx, q, "UPDATE users SET bought = bought + 1 WHERE name = ?", name)
}

// IncrementSold bumps the lifetime sales counter
func IncrementSold(ctx context.Context, q Querier, name string) error {
	return bump(ctx, q, "UPDATE users SET sold = sold + 1 WHERE name = ?", name)
}

func bump(ctx context.Context, q Querier, stmt, name string) error {
	res, err := q.ExecContext(ctx, stmt, name)
	if err != nil {
		logger.Log.Errorw("Failed to update counter", "name", name, "error", err)
		return fmt.Errorf("bump %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bump %q: %w", name, ErrNotFound)
	}
	return nil
}
