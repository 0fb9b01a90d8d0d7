package market

import (
	"context"
	"fmt"

	"example/marketplace/internal/logger"
	"example/marketplace/internal/models"
	"example/marketplace/internal/repository"

	"github.com/shopspring/decimal"
)

// Wish records that wisher wants item at exactly price. If the item is
// already listed the wisher is told immediately.
func (s *Service) Wish(ctx context.Context, wisher, item string, price decimal.Decimal) error {
	if !validItem(item, price) {
		return fmt.Errorf("wish: %w", ErrInvalidArgument)
	}
	price = models.NormalizePrice(price)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[wisher]; !ok {
		return ErrNotLoggedIn
	}

	w := models.Wish{Name: item, Price: price, Wisher: wisher}
	if err := repository.InsertWish(ctx, s.db, w); err != nil {
		return storeError("wish", err)
	}
	s.wishes = append(s.wishes, w)
	logger.Log.Infow("Wish added", "item", item, "price", price, "wisher", wisher)

	if _, found := s.find(item, price); found {
		s.notify(ctx, wisher, models.KindWish, item, price)
	}
	return nil
}

// Wishes returns a copy of the outstanding wishes.
func (s *Service) Wishes() []models.Wish {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Wish, len(s.wishes))
	copy(out, s.wishes)
	return out
}
