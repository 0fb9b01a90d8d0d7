package market

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"example/marketplace/internal/logger"
	"example/marketplace/internal/models"
	"example/marketplace/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const maxNameLen = 32

func validName(s string) bool {
	return s != "" && utf8.RuneCountInString(s) <= maxNameLen
}

// Register creates a durable account for name and logs it in with sink.
func (s *Service) Register(ctx context.Context, name, password, ledgerAccount string, sink Sink) (models.Account, error) {
	if !validName(name) || !validName(ledgerAccount) || password == "" {
		return models.Account{}, fmt.Errorf("register: %w", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[name]; ok {
		logger.Log.Infow("Registration refused, name is online", "name", name)
		return models.Account{}, ErrDuplicateAccount
	}
	switch _, err := repository.GetUser(ctx, s.db, name); {
	case err == nil:
		logger.Log.Infow("Registration refused, name is taken", "name", name)
		return models.Account{}, ErrDuplicateAccount
	case !errors.Is(err, repository.ErrNotFound):
		return models.Account{}, storeError("register", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return models.Account{}, fmt.Errorf("register: %w: %v", ErrInvalidArgument, err)
	}

	u := models.User{Name: name, PasswordHash: string(hash), LedgerAccount: ledgerAccount}
	if err := repository.InsertUser(ctx, s.db, u); err != nil {
		if repository.IsDuplicate(err) {
			return models.Account{}, ErrDuplicateAccount
		}
		return models.Account{}, storeError("register", err)
	}

	a := &account{user: u, sink: sink}
	s.accounts[name] = a
	logger.Log.Infow("New account registered", "name", name)
	return s.snapshot(a), nil
}

// Login checks the credentials against the store and binds sink to the account.
// A session already bound to the account loses its sink.
func (s *Service) Login(ctx context.Context, name, password string, sink Sink) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := repository.GetUser(ctx, s.db, name)
	if errors.Is(err, repository.ErrNotFound) {
		logger.Log.Infow("Login refused, unknown name", "name", name)
		return models.Account{}, ErrBadCredentials
	}
	if err != nil {
		return models.Account{}, storeError("login", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		logger.Log.Infow("Login refused, wrong password", "name", name)
		return models.Account{}, ErrBadCredentials
	}

	a, ok := s.accounts[name]
	if !ok {
		a = &account{}
		s.accounts[name] = a
	}
	a.user = u
	a.sink = sink
	logger.Log.Infow("Customer logged in", "name", name)
	return s.snapshot(a), nil
}

// Logout evicts name from the live registry. Unknown names are ignored.
func (s *Service) Logout(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[name]; ok {
		delete(s.accounts, name)
		logger.Log.Infow("Customer logged out", "name", name)
	}
}

// Disconnect logs name out if sink is still the one bound to it, or if the
// account lost its sink to a failed delivery. A stale session closing cannot
// evict a newer login.
func (s *Service) Disconnect(name string, sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.accounts[name]; ok && (a.sink == sink || a.sink == nil) {
		delete(s.accounts, name)
		logger.Log.Infow("Customer disconnected", "name", name)
	}
}

// Unregister deletes the account with its listings and wishes. It reports
// false when no such account exists.
func (s *Service) Unregister(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := repository.GetUser(ctx, s.db, name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Log.Infow("Unregister ignored, unknown name", "name", name)
			return false, nil
		}
		return false, storeError("unregister", err)
	}

	err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := repository.DeleteItemsBySeller(ctx, tx, name); err != nil {
			return err
		}
		if _, err := repository.DeleteWishesByWisher(ctx, tx, name); err != nil {
			return err
		}
		_, err := repository.DeleteUser(ctx, tx, name)
		return err
	})
	if err != nil {
		return false, storeError("unregister", err)
	}

	items := s.catalog[:0]
	for _, l := range s.catalog {
		if l.Seller != name {
			items = append(items, l)
		}
	}
	s.catalog = items

	wishes := s.wishes[:0]
	for _, w := range s.wishes {
		if w.Wisher != name {
			wishes = append(wishes, w)
		}
	}
	s.wishes = wishes

	delete(s.accounts, name)
	logger.Log.Infow("Account removed", "name", name)
	return true, nil
}

// Account returns a snapshot of a logged-in customer.
func (s *Service) Account(name string) (models.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[name]
	if !ok {
		return models.Account{}, false
	}
	return s.snapshot(a), true
}

// online reports whether name currently has a bound sink.
func (s *Service) online(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[name]
	return ok && a.sink != nil
}

// Bound reports whether sink is the one currently bound to name.
func (s *Service) Bound(name string, sink Sink) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[name]
	return ok && a.sink != nil && a.sink == sink
}
