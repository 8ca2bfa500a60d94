package domain

import "context"

// StreamMessage is a single entry read from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus is the pub/sub fabric between the emission path and the
// connection layer. Publish is ephemeral fan-out; StreamAppend keeps a
// bounded durable feed of emitted signals.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// Event is the JSON envelope for every server→client push and every
// request/response message on the wire.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Push channels carried over the SignalBus.
const (
	ChannelSignal       = "signal"
	ChannelPreSignal    = "pre_signal"
	ChannelLog          = "log"
	ChannelOrderConfirm = "order_confirm"

	// StreamSignals is the durable stream of emitted signals.
	StreamSignals = "stream:signals"
)
