// Package events wraps the signal bus with the typed envelopes the
// connection layer pushes to clients.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/infouniverseforloop/binary/internal/domain"
)

// Publisher serializes domain values into Event envelopes and fans them out
// over the bus. Emitted signals are additionally appended to the durable
// signal stream.
type Publisher struct {
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewPublisher creates a publisher over the given bus.
func NewPublisher(bus domain.SignalBus, logger *slog.Logger) *Publisher {
	return &Publisher{
		bus:    bus,
		logger: logger.With(slog.String("component", "events")),
	}
}

// Signal publishes an emitted signal and appends it to the durable stream.
// A stream failure is logged but does not fail the publish.
func (p *Publisher) Signal(ctx context.Context, sig domain.Signal) error {
	payload, err := p.publish(ctx, domain.ChannelSignal, sig)
	if err != nil {
		return err
	}
	if err := p.bus.StreamAppend(ctx, domain.StreamSignals, payload); err != nil {
		p.logger.Warn("stream append failed",
			slog.Int64("signal_id", sig.ID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// PreSignal publishes an advisory pre-signal for a candidate still under
// review.
func (p *Publisher) PreSignal(ctx context.Context, cand domain.Candidate, score float64) error {
	_, err := p.publish(ctx, domain.ChannelPreSignal, map[string]any{
		"symbol":     cand.Symbol,
		"direction":  cand.Direction,
		"confidence": cand.Confidence,
		"score":      score,
		"notes":      cand.Notes,
	})
	return err
}

// Log publishes a human-readable log line to connected clients.
func (p *Publisher) Log(ctx context.Context, message string) error {
	_, err := p.publish(ctx, domain.ChannelLog, map[string]string{"message": message})
	return err
}

// OrderConfirm relays a broker order confirmation.
func (p *Publisher) OrderConfirm(ctx context.Context, payload json.RawMessage) error {
	_, err := p.publish(ctx, domain.ChannelOrderConfirm, payload)
	return err
}

func (p *Publisher) publish(ctx context.Context, channel string, data any) ([]byte, error) {
	payload, err := json.Marshal(domain.Event{Type: channel, Data: data})
	if err != nil {
		return nil, fmt.Errorf("events: marshal %s: %w", channel, err)
	}
	if err := p.bus.Publish(ctx, channel, payload); err != nil {
		return nil, fmt.Errorf("events: publish %s: %w", channel, err)
	}
	return payload, nil
}
