// Package market is the marketplace coordination service. It owns the live
// view of accounts, listings and wishes, keeps it in step with the store and
// pushes notifications to connected customers.
//
// Every operation runs under one mutex. Store writes happen before the
// in-memory view changes, so a failed write leaves the view untouched.
// Ledger calls are made while the mutex is held; they are bounded by the
// ledger timeout, and a slow ledger still stalls the whole service for that long.
package market

import (
	"context"
	"database/sql"
	"io"
	"math/rand"
	"sort"
	"sync"
	"time"

	"example/marketplace/internal/events"
	"example/marketplace/internal/ledger"
	"example/marketplace/internal/logger"
	"example/marketplace/internal/models"
	"example/marketplace/internal/repository"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Sink delivers notifications to one connected customer. Notify must not block.
type Sink interface {
	Notify(n models.Notification) error
}

type account struct {
	user models.User
	sink Sink
}

// Service is the single exclusion domain guarding registry, catalog and wishes.
type Service struct {
	mu sync.Mutex

	db       *sql.DB
	ledger   ledger.Client
	events   events.Publisher
	hashCost int
	now      func() time.Time
	entropy  io.Reader

	accounts map[string]*account
	catalog  []models.Listing // sorted by models.Listing.Less
	wishes   []models.Wish
}

type Option func(*Service)

// WithEvents publishes every notification to p as well.
func WithEvents(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithLedgerTimeout bounds each ledger call.
func WithLedgerTimeout(d time.Duration) Option {
	return func(s *Service) { s.ledger = ledger.WithTimeout(s.ledger, d) }
}

// WithHashCost sets the bcrypt cost used for new passwords.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// New rehydrates the catalog and wish list from db.
func New(ctx context.Context, db *sql.DB, lc ledger.Client, opts ...Option) (*Service, error) {
	s := &Service{
		db:       db,
		ledger:   lc,
		events:   events.Nop{},
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		accounts: make(map[string]*account),
	}
	for _, opt := range opts {
		opt(s)
	}

	items, err := repository.AllItems(ctx, db)
	if err != nil {
		return nil, storeError("load items", err)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Less(items[j]) })
	s.catalog = items

	wishes, err := repository.AllWishes(ctx, db)
	if err != nil {
		return nil, storeError("load wishes", err)
	}
	s.wishes = wishes

	logger.Log.Infow("Marketplace loaded", "items", len(items), "wishes", len(wishes))
	return s, nil
}

// find returns the catalog position of (name, price) and whether it is present.
func (s *Service) find(name string, price decimal.Decimal) (int, bool) {
	probe := models.Listing{Name: name, Price: price}
	i := sort.Search(len(s.catalog), func(i int) bool { return !s.catalog[i].Less(probe) })
	return i, i < len(s.catalog) && s.catalog[i].Same(name, price)
}

func (s *Service) snapshot(a *account) models.Account {
	out := models.Account{
		Name:          a.user.Name,
		LedgerAccount: a.user.LedgerAccount,
		Bought:        a.user.Bought,
		Sold:          a.user.Sold,
	}
	for _, l := range s.catalog {
		if l.Seller == a.user.Name {
			out.Listings = append(out.Listings, l)
		}
	}
	return out
}

// notify pushes a notification to recipient if they are online. Delivery
// failures are logged and the broken sink is detached.
func (s *Service) notify(ctx context.Context, recipient string, kind models.NotificationKind, item string, price decimal.Decimal) {
	now := s.now()
	n := models.Notification{
		ID:        ulid.MustNew(ulid.Timestamp(now), s.entropy).String(),
		Kind:      kind,
		Recipient: recipient,
		Item:      item,
		Price:     price,
		At:        now,
	}

	if err := s.events.Publish(ctx, n); err != nil {
		logger.Log.Warnw("Failed to publish market event", "id", n.ID, "error", err)
	}

	a, ok := s.accounts[recipient]
	if !ok || a.sink == nil {
		logger.Log.Debugw("Notification dropped, recipient offline", "name", recipient, "kind", kind, "item", item)
		return
	}
	if err := a.sink.Notify(n); err != nil {
		logger.Log.Warnw("Notification delivery failed, detaching sink", "name", recipient, "kind", kind, "error", err)
		a.sink = nil
		return
	}
	logger.Log.Debugw("Notification delivered", "name", recipient, "kind", kind, "item", item, "price", price)
}
