// Package notify delivers emitted-signal alerts to operators over Telegram
// and Discord. Delivery is asynchronous; a slow or dead channel never
// delays the emission path.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/infouniverseforloop/binary/internal/domain"
)

const sendTimeout = 10 * time.Second

// Sender is one delivery channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier fans signal alerts out to every configured sender.
type Notifier struct {
	senders []Sender
	logger  *slog.Logger
}

// NewNotifier creates a Notifier over the given senders. An empty sender
// list is valid; every call becomes a no-op.
func NewNotifier(senders []Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// SignalEmitted formats and delivers an alert for a freshly emitted signal.
// It returns immediately; delivery happens in the background with its own
// timeout.
func (n *Notifier) SignalEmitted(ctx context.Context, sig domain.Signal) {
	if len(n.senders) == 0 {
		return
	}

	title := fmt.Sprintf("Signal #%d %s %s", sig.ID, sig.Direction, sig.Symbol)
	message := formatSignal(sig)

	go func() {
		sctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		n.dispatch(sctx, title, message)
	}()
}

// Announce delivers an operational message (startup, shutdown, feed loss)
// to every sender, synchronously.
func (n *Notifier) Announce(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

// dispatch sends to every sender and combines the failures, so one dead
// channel does not silence the others.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.Warn("sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.Debug("notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

func formatSignal(sig domain.Signal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Confidence: %d%%\n", sig.Confidence)
	fmt.Fprintf(&b, "Entry: %g at %s\n", sig.Entry, sig.EntryTimeISO)
	fmt.Fprintf(&b, "Mode: %s\n", sig.Mode)
	if sig.Martingale.Decision == domain.MartingaleSuggest {
		fmt.Fprintf(&b, "Martingale: x%g\n", sig.Martingale.Factor)
	}
	if len(sig.Notes) > 0 {
		tags := make([]string, len(sig.Notes))
		for i, tag := range sig.Notes {
			tags[i] = string(tag)
		}
		fmt.Fprintf(&b, "Notes: %s", strings.Join(tags, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
