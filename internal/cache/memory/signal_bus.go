// Package memory provides an in-process SignalBus for single-node runs and
// tests, mirroring the redis-backed bus semantics.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/infouniverseforloop/binary/internal/domain"
)

const (
	subscriberBuffer = 64
	maxStreamLen     = 10_000
)

// SignalBus fans messages out to in-process subscribers and keeps a bounded
// stream per stream name. Slow subscribers drop messages rather than block
// publishers.
type SignalBus struct {
	mu      sync.RWMutex
	subs    map[string][]chan []byte
	streams map[string][]domain.StreamMessage
	nextID  int64
}

// NewSignalBus creates an empty bus.
func NewSignalBus() *SignalBus {
	return &SignalBus{
		subs:    make(map[string][]chan []byte),
		streams: make(map[string][]domain.StreamMessage),
	}
}

// Publish delivers payload to every current subscriber of channel.
func (b *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
			// Subscriber is not keeping up; drop for it.
		}
	}
	return nil
}

// Subscribe returns a channel of payloads published to channel. The
// subscription ends when ctx is canceled.
func (b *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, subscriberBuffer)

	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		chans := b.subs[channel]
		for i, c := range chans {
			if c == ch {
				b.subs[channel] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		close(ch)
	}()

	return ch, nil
}

// StreamAppend appends payload to the named stream, trimming the oldest
// entries past the cap.
func (b *SignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	entries := append(b.streams[stream], domain.StreamMessage{
		ID:      strconv.FormatInt(b.nextID, 10),
		Payload: payload,
	})
	if overflow := len(entries) - maxStreamLen; overflow > 0 {
		entries = append([]domain.StreamMessage(nil), entries[overflow:]...)
	}
	b.streams[stream] = entries
	return nil
}

// StreamLen reports the number of retained entries in stream.
func (b *SignalBus) StreamLen(stream string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.streams[stream])
}

var _ domain.SignalBus = (*SignalBus)(nil)
