// Package ledger is the marketplace's narrow view of the external account
// service that holds monetary balances.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrRejected is the parent of every business refusal from the ledger.
	ErrRejected          = errors.New("ledger: rejected")
	ErrUnknownAccount    = fmt.Errorf("%w: unknown account", ErrRejected)
	ErrInsufficientFunds = fmt.Errorf("%w: insufficient funds", ErrRejected)
	ErrInvalidAmount     = fmt.Errorf("%w: amount must be positive", ErrRejected)

	// ErrUnavailable marks transport failures and timeouts.
	ErrUnavailable = errors.New("ledger: unavailable")
)

// Client moves money in and out of ledger accounts.
type Client interface {
	Deposit(ctx context.Context, account string, amount decimal.Decimal) error
	Withdraw(ctx context.Context, account string, amount decimal.Decimal) error
}
