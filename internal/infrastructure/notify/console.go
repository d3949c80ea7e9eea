package notify

import (
	"context"
	"fmt"
	"io"

	"github.com/Glx28/billigst-mat/internal/domain"
)

// ConsoleNotifier prints triggered results as a leaderboard
type ConsoleNotifier struct {
	w io.Writer
}

// NewConsoleNotifier creates a notifier writing to w
func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

// Notify implements domain.Notifier
func (n *ConsoleNotifier) Notify(ctx context.Context, results []domain.RankedResult) error {
	if len(results) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(n.w, "%s\n\n", Subject(results)); err != nil {
		return err
	}
	return RenderLeaderboard(n.w, results)
}
