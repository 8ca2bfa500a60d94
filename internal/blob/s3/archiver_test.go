package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infouniverseforloop/binary/internal/domain"
)

type capturingWriter struct {
	fail    bool
	objects map[string][]byte
}

func (w *capturingWriter) Put(ctx context.Context, path string, data []byte, contentType string) error {
	if w.fail {
		return errors.New("upload refused")
	}
	if w.objects == nil {
		w.objects = make(map[string][]byte)
	}
	w.objects[path] = data
	return nil
}

type staticSource struct {
	signals []domain.Signal
}

func (s *staticSource) Recent(n int) []domain.Signal {
	return s.signals
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestArchiveUploadsNewSignalsOnce(t *testing.T) {
	source := &staticSource{signals: []domain.Signal{
		{ID: 1, Symbol: "EUR/USD", Result: domain.ResultWin},
		{ID: 2, Symbol: "GBP/USD"},
	}}
	writer := &capturingWriter{}
	a := NewArchiver(writer, source, 0, testLogger())

	a.Archive(context.Background())
	require.Len(t, writer.objects, 1)

	var payload []byte
	for _, data := range writer.objects {
		payload = data
	}

	var lines []domain.Signal
	scanner := bufio.NewScanner(bytes.NewReader(payload))
	for scanner.Scan() {
		var sig domain.Signal
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &sig))
		lines = append(lines, sig)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, int64(1), lines[0].ID)
	assert.Equal(t, int64(2), lines[1].ID)

	// Same batch again: high-water mark prevents a duplicate upload.
	a.Archive(context.Background())
	assert.Len(t, writer.objects, 1)

	source.signals = append(source.signals, domain.Signal{ID: 3, Symbol: "USD/JPY"})
	a.Archive(context.Background())
	assert.Len(t, writer.objects, 2)
}

func TestArchiveFailureKeepsHighWater(t *testing.T) {
	source := &staticSource{signals: []domain.Signal{{ID: 1, Symbol: "EUR/USD"}}}
	writer := &capturingWriter{fail: true}
	a := NewArchiver(writer, source, 0, testLogger())

	a.Archive(context.Background())
	assert.Empty(t, writer.objects)

	writer.fail = false
	a.Archive(context.Background())
	assert.Len(t, writer.objects, 1, "failed batch retried on the next pass")
}

func TestArchiveEmptyLedgerUploadsNothing(t *testing.T) {
	writer := &capturingWriter{}
	a := NewArchiver(writer, &staticSource{}, 0, testLogger())
	a.Archive(context.Background())
	assert.Empty(t, writer.objects)
}
