// Package notify delivers borrower notifications. Delivery is best effort:
// callers log failures and carry on.
package notify

import (
	"context"
	"errors"
)

// Notifier sends a message to a borrower.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}

// Fanout delivers every notification through each of its notifiers.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, recipient, subject, body string) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, recipient, subject, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
