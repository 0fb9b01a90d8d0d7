package market

import (
	"context"
	"database/sql"
	"fmt"

	"example/marketplace/internal/logger"
	"example/marketplace/internal/models"
	"example/marketplace/internal/repository"

	"github.com/shopspring/decimal"
)

func validItem(item string, price decimal.Decimal) bool {
	return validName(item) && !price.IsNegative()
}

// ListItems returns a copy of the catalog in price, then name order.
func (s *Service) ListItems() []models.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Listing, len(s.catalog))
	copy(out, s.catalog)
	return out
}

// Offer lists item at price for seller and tells every matching wisher.
func (s *Service) Offer(ctx context.Context, seller, item string, price decimal.Decimal) error {
	if !validItem(item, price) {
		return fmt.Errorf("offer: %w", ErrInvalidArgument)
	}
	price = models.NormalizePrice(price)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[seller]; !ok {
		return ErrNotLoggedIn
	}
	i, found := s.find(item, price)
	if found {
		logger.Log.Infow("Offer refused, duplicate item", "item", item, "price", price, "seller", seller)
		return ErrDuplicateItem
	}

	l := models.Listing{Name: item, Price: price, Seller: seller}
	if err := repository.InsertItem(ctx, s.db, l); err != nil {
		if repository.IsDuplicate(err) {
			return ErrDuplicateItem
		}
		return storeError("offer", err)
	}

	s.catalog = append(s.catalog, models.Listing{})
	copy(s.catalog[i+1:], s.catalog[i:])
	s.catalog[i] = l
	logger.Log.Infow("Product added", "item", item, "price", price, "seller", seller)

	for _, w := range s.wishes {
		if w.Matches(l) {
			s.notify(ctx, w.Wisher, models.KindWish, item, price)
		}
	}
	return nil
}

// Purchase buys the listing (item, price) for buyer. It reports false, with
// no error, when no such listing exists.
//
// The ledger is settled first: the buyer is charged and the seller paid.
// Only then are the listing and the buyer's matching wishes removed and the
// counters bumped, in one transaction. If that transaction fails the ledger
// movement is reversed.
func (s *Service) Purchase(ctx context.Context, item string, price decimal.Decimal, buyer string) (bool, error) {
	if !validItem(item, price) {
		return false, fmt.Errorf("purchase: %w", ErrInvalidArgument)
	}
	price = models.NormalizePrice(price)

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.accounts[buyer]
	if !ok {
		return false, ErrNotLoggedIn
	}
	i, found := s.find(item, price)
	if !found {
		logger.Log.Infow("Purchase ignored, no such item", "item", item, "price", price, "buyer", buyer)
		return false, nil
	}
	l := s.catalog[i]

	sellerLedger, err := s.ledgerAccountOf(ctx, l.Seller)
	if err != nil {
		return false, storeError("purchase", err)
	}
	if err := s.settle(ctx, b.user.LedgerAccount, sellerLedger, price); err != nil {
		logger.Log.Warnw("Purchase aborted by ledger", "item", item, "price", price, "buyer", buyer, "seller", l.Seller, "error", err)
		return false, err
	}

	err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := repository.DeleteItem(ctx, tx, item, price); err != nil {
			return err
		}
		if _, err := repository.DeleteWish(ctx, tx, item, price, buyer); err != nil {
			return err
		}
		if err := repository.IncrementSold(ctx, tx, l.Seller); err != nil {
			return err
		}
		return repository.IncrementBought(ctx, tx, buyer)
	})
	if err != nil {
		s.reverse(ctx, b.user.LedgerAccount, sellerLedger, price)
		return false, storeError("purchase", err)
	}

	s.catalog = append(s.catalog[:i], s.catalog[i+1:]...)
	wishes := s.wishes[:0]
	for _, w := range s.wishes {
		if w.Wisher == buyer && w.Matches(l) {
			continue
		}
		wishes = append(wishes, w)
	}
	s.wishes = wishes
	b.user.Bought++
	if sa, ok := s.accounts[l.Seller]; ok {
		sa.user.Sold++
	}
	logger.Log.Infow("Product sold", "item", item, "price", price, "buyer", buyer, "seller", l.Seller)

	s.notify(ctx, l.Seller, models.KindSale, item, price)
	return true, nil
}

func (s *Service) ledgerAccountOf(ctx context.Context, name string) (string, error) {
	if a, ok := s.accounts[name]; ok {
		return a.user.LedgerAccount, nil
	}
	u, err := repository.GetUser(ctx, s.db, name)
	if err != nil {
		return "", err
	}
	return u.LedgerAccount, nil
}

// settle charges from and pays to. A failed payment refunds from.
func (s *Service) settle(ctx context.Context, from, to string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	if err := s.ledger.Withdraw(ctx, from, amount); err != nil {
		return ledgerError("withdraw", err)
	}
	if err := s.ledger.Deposit(ctx, to, amount); err != nil {
		if rerr := s.ledger.Deposit(ctx, from, amount); rerr != nil {
			logger.Log.Errorw("Refund failed, ledger needs manual repair", "account", from, "amount", amount, "error", rerr)
		}
		return ledgerError("deposit", err)
	}
	return nil
}

// reverse undoes a settle after a store failure. Errors are only logged.
func (s *Service) reverse(ctx context.Context, from, to string, amount decimal.Decimal) {
	if amount.IsZero() {
		return
	}
	if err := s.ledger.Withdraw(ctx, to, amount); err != nil {
		logger.Log.Errorw("Reversal failed, ledger needs manual repair", "account", to, "amount", amount, "error", err)
		return
	}
	if err := s.ledger.Deposit(ctx, from, amount); err != nil {
		logger.Log.Errorw("Reversal failed, ledger needs manual repair", "account", from, "amount", amount, "error", err)
	}
}
