package repository

import (
	"context"
	"fmt"

	"example/marketplace/internal/logger"
	"example/marketplace/internal/models"

	"github.com/shopspring/decimal"
)

// Wish database operations

// AllWishes loads every outstanding wish in insertion order
func AllWishes(ctx context.Context, q Querier) ([]models.Wish, error) {
	var wishes []models.Wish

	rows, err := q.QueryContext(ctx, "SELECT name, price, wisher FROM wishes ORDER BY wish_id")
	if err != nil {
		logger.Log.Errorw("Failed to query wishes", "error", err)
		return nil, fmt.Errorf("allWishes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w models.Wish
		if err := rows.Scan(&w.Name, &w.Price, &w.Wisher); err != nil {
			logger.Log.Errorw("Failed to scan wish", "error", err)
			return nil, fmt.Errorf("allWishes: %w", err)
		}
		w.Price = models.NormalizePrice(w.Price)
		wishes = append(wishes, w)
	}

	if err := rows.Err(); err != nil {
		logger.Log.Errorw("Error iterating wishes", "error", err)
		return nil, fmt.Errorf("allWishes: %w", err)
	}

	return wishes, nil
}

// InsertWish persists a wish
func InsertWish(ctx context.Context, q Querier, w models.Wish) error {
	_, err := q.ExecContext(ctx, "INSERT INTO wishes (name, price, wisher) VALUES (?, ?, ?)", w.Name, w.Price, w.Wisher)
	if err != nil {
		logger.Log.Errorw("Failed to insert wish", "item", w.Name, "price", w.Price, "wisher", w.Wisher, "error", err)
		return fmt.Errorf("insertWish %q: %w", w.Name, err)
	}
	return nil
}

// DeleteWish removes the wisher's wishes for the given key
func DeleteWish(ctx context.Context, q Querier, name string, price decimal.Decimal, wisher string) (int64, error) {
	res, err := q.ExecContext(ctx, "DELETE FROM wishes WHERE name = ? AND price = ? AND wisher = ?", name, price, wisher)
	if err != nil {
		logger.Log.Errorw("Failed to delete wish", "item", name, "price", price, "wisher", wisher, "error", err)
		return 0, fmt.Errorf("deleteWish %q: %w", name, err)
	}
	return res.RowsAffected()
}

// DeleteWishesByWisher removes every wish registered by wisher
func DeleteWishesByWisher(ctx context.Context, q Querier, wisher string) (int64, error) {
	res, err := q.ExecContext(ctx, "DELETE FROM wishes WHERE wisher = ?", wisher)
	if err != nil {
		logger.Log.Errorw("Failed to delete wishes", "wisher", wisher, "error", err)
		return 0, fmt.Errorf("deleteWishesByWisher %q: %w", wisher, err)
	}
	return res.RowsAffected()
}
