package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"example/marketplace/internal/logger"
	"example/marketplace/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func init() {
	logger.InitNop()
}

// setupTestDB creates an in-memory SQLite database with the marketplace schema
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// every pooled connection would otherwise get its own empty database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := CreateSchema(context.Background(), db, "sqlite3"); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func addUser(t *testing.T, db *sql.DB, name string) {
	t.Helper()
	if err := InsertUser(context.Background(), db, models.User{Name: name, PasswordHash: "x", LedgerAccount: name + "-bank"}); err != nil {
		t.Fatalf("InsertUser(%s): %v", name, err)
	}
}

func TestCreateSchemaIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := CreateSchema(context.Background(), db, "sqlite3"); err != nil {
		t.Fatalf("second CreateSchema failed: %v", err)
	}
	if err := CreateSchema(context.Background(), db, "oracle"); err == nil {
		t.Error("expected unsupported driver error")
	}
}

func TestUserLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	addUser(t, db, "alice")

	u, err := GetUser(ctx, db, "alice")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.LedgerAccount != "alice-bank" || u.Bought != 0 || u.Sold != 0 {
		t.Errorf("unexpected user %+v", u)
	}

	if err := IncrementSold(ctx, db, "alice"); err != nil {
		t.Fatalf("IncrementSold: %v", err)
	}
	if err := IncrementBought(ctx, db, "alice"); err != nil {
		t.Fatalf("IncrementBought: %v", err)
	}
	u, _ = GetUser(ctx, db, "alice")
	if u.Bought != 1 || u.Sold != 1 {
		t.Errorf("counters not bumped: %+v", u)
	}

	if err := IncrementSold(ctx, db, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound bumping unknown user, got %v", err)
	}

	n, err := DeleteUser(ctx, db, "alice")
	if err != nil || n != 1 {
		t.Fatalf("DeleteUser = %d, %v", n, err)
	}
	if _, err := GetUser(ctx, db, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDuplicateUserIsDetected(t *testing.T) {
	db := setupTestDB(t)
	addUser(t, db, "alice")

	err := InsertUser(context.Background(), db, models.User{Name: "alice", PasswordHash: "y", LedgerAccount: "z"})
	if err == nil {
		t.Fatal("expected duplicate insert to fail")
	}
	if !IsDuplicate(err) {
		t.Errorf("IsDuplicate(%v) = false", err)
	}
	if IsDuplicate(errors.New("boom")) {
		t.Error("plain error reported as duplicate")
	}
}

func TestItemsRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	addUser(t, db, "alice")

	for _, l := range []models.Listing{
		{Name: "widget", Price: price("10.50"), Seller: "alice"},
		{Name: "gadget", Price: price("3"), Seller: "alice"},
	} {
		if err := InsertItem(ctx, db, l); err != nil {
			t.Fatalf("InsertItem: %v", err)
		}
	}

	err := InsertItem(ctx, db, models.Listing{Name: "widget", Price: price("10.5"), Seller: "alice"})
	if !IsDuplicate(err) {
		t.Errorf("expected unique (name, price) violation, got %v", err)
	}

	items, err := AllItems(ctx, db)
	if err != nil {
		t.Fatalf("AllItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if !items[0].Same("widget", price("10.5")) {
		t.Errorf("first item = %+v", items[0])
	}

	n, err := DeleteItem(ctx, db, "widget", price("10.50"))
	if err != nil || n != 1 {
		t.Fatalf("DeleteItem = %d, %v", n, err)
	}
	n, _ = DeleteItem(ctx, db, "widget", price("10.50"))
	if n != 0 {
		t.Errorf("second DeleteItem removed %d rows", n)
	}

	n, err = DeleteItemsBySeller(ctx, db, "alice")
	if err != nil || n != 1 {
		t.Errorf("DeleteItemsBySeller = %d, %v", n, err)
	}
}

func TestWishesRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	addUser(t, db, "bob")

	for i := 0; i < 2; i++ {
		if err := InsertWish(ctx, db, models.Wish{Name: "widget", Price: price("10"), Wisher: "bob"}); err != nil {
			t.Fatalf("InsertWish: %v", err)
		}
	}
	if err := InsertWish(ctx, db, models.Wish{Name: "gizmo", Price: price("1.25"), Wisher: "bob"}); err != nil {
		t.Fatalf("InsertWish: %v", err)
	}

	wishes, err := AllWishes(ctx, db)
	if err != nil || len(wishes) != 3 {
		t.Fatalf("AllWishes = %d, %v", len(wishes), err)
	}
	if !wishes[2].Price.Equal(price("1.25")) {
		t.Errorf("price lost precision: %s", wishes[2].Price)
	}

	n, err := DeleteWish(ctx, db, "widget", price("10.00"), "bob")
	if err != nil || n != 2 {
		t.Errorf("DeleteWish = %d, %v", n, err)
	}
	n, err = DeleteWishesByWisher(ctx, db, "bob")
	if err != nil || n != 1 {
		t.Errorf("DeleteWishesByWisher = %d, %v", n, err)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := InsertUser(ctx, tx, models.User{Name: "carol", PasswordHash: "x", LedgerAccount: "c"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := GetUser(ctx, db, "carol"); !errors.Is(err, ErrNotFound) {
		t.Errorf("insert survived rollback: %v", err)
	}
}

// TestConcurrentDuplicateUsers checks the unique key is the final backstop
func TestConcurrentDuplicateUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = InsertUser(ctx, db, models.User{Name: "dave", PasswordHash: "x", LedgerAccount: "d"})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !IsDuplicate(err):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("expected exactly 1 successful insert, got %d", ok)
	}
}
