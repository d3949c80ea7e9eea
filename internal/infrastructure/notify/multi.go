package notify

import (
	"context"
	"errors"

	"github.com/Glx28/billigst-mat/internal/domain"
)

// Multi fans results out to several notifiers. Every notifier is tried; errors are joined.
type Multi []domain.Notifier

// Notify implements domain.Notifier
func (m Multi) Notify(ctx context.Context, results []domain.RankedResult) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, results); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
