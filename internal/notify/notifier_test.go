package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infouniverseforloop/binary/internal/domain"
)

type recordingSender struct {
	mu       sync.Mutex
	name     string
	fail     bool
	titles   []string
	messages []string
}

func (s *recordingSender) Send(ctx context.Context, title, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("delivery refused")
	}
	s.titles = append(s.titles, title)
	s.messages = append(s.messages, message)
	return nil
}

func (s *recordingSender) Name() string { return s.name }

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.titles)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSignalEmittedReachesAllSenders(t *testing.T) {
	a := &recordingSender{name: "a"}
	b := &recordingSender{name: "b"}
	n := NewNotifier([]Sender{a, b}, testLogger())

	n.SignalEmitted(context.Background(), domain.Signal{
		ID:         7,
		Symbol:     "EUR/USD",
		Direction:  domain.DirectionCall,
		Confidence: 80,
		Martingale: domain.MartingaleAdvice{Decision: domain.MartingaleSuggest, Factor: 2},
		Notes:      domain.TagSet{domain.TagOrderBlock},
	})

	require.Eventually(t, func() bool {
		return a.count() == 1 && b.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Contains(t, a.titles[0], "Signal #7 CALL EUR/USD")
	assert.Contains(t, a.messages[0], "Confidence: 80%")
	assert.Contains(t, a.messages[0], "Martingale: x2")
	assert.Contains(t, a.messages[0], "order_block")
}

func TestAnnounceCombinesFailures(t *testing.T) {
	dead := &recordingSender{name: "dead", fail: true}
	live := &recordingSender{name: "live"}
	n := NewNotifier([]Sender{dead, live}, testLogger())

	err := n.Announce(context.Background(), "Startup", "scanning 9 pairs")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "dead"))
	assert.Equal(t, 1, live.count(), "healthy sender still delivered")
}

func TestNoSendersIsNoop(t *testing.T) {
	n := NewNotifier(nil, testLogger())
	n.SignalEmitted(context.Background(), domain.Signal{ID: 1})
	assert.NoError(t, n.Announce(context.Background(), "t", "m"))
}
