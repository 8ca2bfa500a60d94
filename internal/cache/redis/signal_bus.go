package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/infouniverseforloop/binary/internal/domain"
)

// streamMaxLen bounds the durable signal stream, enforced with XADD
// MAXLEN ~.
const streamMaxLen int64 = 10_000

// SignalBus implements domain.SignalBus on Redis Pub/Sub for the push
// channels and a Redis Stream for the durable signal feed, so scan-only and
// server-only processes can run on separate nodes.
type SignalBus struct {
	rdb *redis.Client
}

// NewSignalBus creates a SignalBus backed by the given Client.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying()}
}

// Publish fans payload out to the channel's current subscribers.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns a channel of payloads published to channel. Glob-style
// channels use PSUBSCRIBE. The subscription ends and the returned channel
// closes when ctx is canceled.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	var pubsub *redis.PubSub
	if strings.ContainsAny(channel, "*?[") {
		pubsub = sb.rdb.PSubscribe(ctx, channel)
	} else {
		pubsub = sb.rdb.Subscribe(ctx, channel)
	}

	// Wait for the subscription confirmation before handing the channel out.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// StreamAppend appends payload to the stream with approximate trimming at
// the retention cap.
func (sb *SignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"payload": payload},
	}
	if err := sb.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return nil
}

// StreamRange reads the newest count entries of a stream, oldest first.
func (sb *SignalBus) StreamRange(ctx context.Context, stream string, count int) ([]domain.StreamMessage, error) {
	raw, err := sb.rdb.XRevRangeN(ctx, stream, "+", "-", int64(count)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: stream range %s: %w", stream, err)
	}

	// XREVRANGE returns newest first; flip to chronological order.
	messages := make([]domain.StreamMessage, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		payload, ok := raw[i].Values["payload"]
		if !ok {
			continue
		}
		var data []byte
		switch v := payload.(type) {
		case string:
			data = []byte(v)
		case []byte:
			data = v
		default:
			continue
		}
		messages = append(messages, domain.StreamMessage{ID: raw[i].ID, Payload: data})
	}
	return messages, nil
}

// SignalHistory serves recent emitted signals from the durable stream, for
// server-only processes that have no local ledger.
type SignalHistory struct {
	bus *SignalBus
}

// NewSignalHistory creates a history reader over the bus.
func NewSignalHistory(bus *SignalBus) *SignalHistory {
	return &SignalHistory{bus: bus}
}

// RecentSignals decodes up to limit signals from the stream, oldest first.
// Entries that fail to decode are skipped.
func (h *SignalHistory) RecentSignals(ctx context.Context, limit int) ([]domain.Signal, error) {
	msgs, err := h.bus.StreamRange(ctx, domain.StreamSignals, limit)
	if err != nil {
		return nil, err
	}

	signals := make([]domain.Signal, 0, len(msgs))
	for _, msg := range msgs {
		var env struct {
			Type string        `json:"type"`
			Data domain.Signal `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			continue
		}
		signals = append(signals, env.Data)
	}
	return signals, nil
}

var _ domain.SignalBus = (*SignalBus)(nil)
