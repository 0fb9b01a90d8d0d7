package repository

import (
	"context"
	"fmt"

	"example/marketplace/internal/logger"
	"example/marketplace/internal/models"

	"github.com/shopspring/decimal"
)

// Item database operations

// AllItems loads every listing in insertion order
func AllItems(ctx context.Context, q Querier) ([]models.Listing, error) {
	var items []models.Listing

	rows, err := q.QueryContext(ctx, "SELECT name, price, seller FROM items ORDER BY item_id")
	if err != nil {
		logger.Log.Errorw("Failed to query items", "error", err)
		return nil, fmt.Errorf("allItems: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l models.Listing
		if err := rows.Scan(&l.Name, &l.Price, &l.Seller); err != nil {
			logger.Log.Errorw("Failed to scan item", "error", err)
			return nil, fmt.Errorf("allItems: %w", err)
		}
		l.Price = models.NormalizePrice(l.Price)
		items = append(items, l)
	}

	if err := rows.Err(); err != nil {
		logger.Log.Errorw("Error iterating items", "error", err)
		return nil, fmt.Errorf("allItems: %w", err)
	}

	return items, nil
}

// InsertItem persists a new listing
func InsertItem(ctx context.Context, q Querier, l models.Listing) error {
	_, err := q.ExecContext(ctx, "INSERT INTO items (name, price, seller) VALUES (?, ?, ?)", l.Name, l.Price, l.Seller)
	if err != nil {
		if !IsDuplicate(err) {
			logger.Log.Errorw("Failed to insert item", "item", l.Name, "price", l.Price, "seller", l.Seller, "error", err)
		}
		return fmt.Errorf("insertItem %q: %w", l.Name, err)
	}
	return nil
}

// DeleteItem removes the listing with the given key
func DeleteItem(ctx context.Context, q Querier, name string, price decimal.Decimal) (int64, error) {
	res, err := q.ExecContext(ctx, "DELETE FROM items WHERE name = ? AND price = ?", name, price)
	if err != nil {
		logger.Log.Errorw("Failed to delete item", "item", name, "price", price, "error", err)
		return 0, fmt.Errorf("deleteItem %q: %w", name, err)
	}
	return res.RowsAffected()
}

// DeleteItemsBySeller removes every listing owned by seller
func DeleteItemsBySeller(ctx context.Context, q Querier, seller string) (int64, error) {
	res, err := q.ExecContext(ctx, "DELETE FROM items WHERE seller = ?", seller)
	if err != nil {
		logger.Log.Errorw("Failed to delete seller items", "seller", seller, "error", err)
		return 0, fmt.Errorf("deleteItemsBySeller %q: %w", seller, err)
	}
	return res.RowsAffected()
}
