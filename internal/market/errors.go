package market

import (
	"errors"
	"fmt"

	"example/marketplace/internal/ledger"
)

var (
	ErrDuplicateAccount = errors.New("account already exists")
	ErrDuplicateItem    = errors.New("item already listed at that price")
	ErrBadCredentials   = errors.New("wrong user name and/or password")
	ErrNotLoggedIn      = errors.New("customer is not logged in")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrLedgerRejected   = errors.New("ledger rejected the payment")
	ErrTransportFailure = errors.New("ledger unreachable")
	ErrStore            = errors.New("store failure")
)

// ledgerError maps a ledger failure onto the marketplace taxonomy.
func ledgerError(op string, err error) error {
	if errors.Is(err, ledger.ErrRejected) {
		return fmt.Errorf("%s: %w: %v", op, ErrLedgerRejected, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrTransportFailure, err)
}

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStore, err)
}
