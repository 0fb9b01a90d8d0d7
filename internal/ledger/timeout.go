package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type timeoutClient struct {
	next Client
	d    time.Duration
}

// WithTimeout bounds every call on c by d. A call still running when the
// deadline passes is abandoned and reported as ErrUnavailable.
func WithTimeout(c Client, d time.Duration) Client {
	if d <= 0 {
		return c
	}
	return &timeoutClient{next: c, d: d}
}

func (t *timeoutClient) Deposit(ctx context.Context, account string, amount decimal.Decimal) error {
	return t.call(ctx, "deposit", func(ctx context.Context) error { return t.next.Deposit(ctx, account, amount) })
}

func (t *timeoutClient) Withdraw(ctx context.Context, account string, amount decimal.Decimal) error {
	return t.call(ctx, "withdraw", func(ctx context.Context) error { return t.next.Withdraw(ctx, account, amount) })
}

func (t *timeoutClient) call(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return classify(op, err)
	case <-ctx.Done():
		return outcome(op, done, ctx.Err())
	}
}

// outcome decides a call whose deadline has passed. A result already
// delivered on done wins over the timeout.
func outcome(op string, done <-chan error, cause error) error {
	select {
	case err := <-done:
		return classify(op, err)
	default:
	}
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, cause)
}

func classify(op string, err error) error {
	if err != nil && !errors.Is(err, ErrRejected) && !errors.Is(err, ErrUnavailable) {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	return err
}
