package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/infouniverseforloop/binary/internal/domain"
)

const defaultArchiveInterval = 15 * time.Minute

// SignalSource exposes the signal record the archiver reads from. The
// ledger satisfies it directly.
type SignalSource interface {
	Recent(n int) []domain.Signal
}

// Archiver periodically uploads newly ledgered signals as JSONL batches
// under signals/YYYY/MM/DD/. Uploads are best effort; a failed batch is
// retried on the next pass because the high-water mark only advances on
// success.
type Archiver struct {
	writer   domain.BlobWriter
	source   SignalSource
	interval time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	lastSynced int64
}

// NewArchiver creates an archiver. interval <= 0 selects the default.
func NewArchiver(writer domain.BlobWriter, source SignalSource, interval time.Duration, logger *slog.Logger) *Archiver {
	if interval <= 0 {
		interval = defaultArchiveInterval
	}
	return &Archiver{
		writer:   writer,
		source:   source,
		interval: interval,
		logger:   logger.With(slog.String("component", "archiver")),
	}
}

// Run archives on the configured interval until ctx is canceled, with a
// final flush on the way out.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			a.Archive(flushCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			a.Archive(ctx)
		}
	}
}

// Archive uploads every signal newer than the high-water mark as one JSONL
// object.
func (a *Archiver) Archive(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var batch []domain.Signal
	for _, sig := range a.source.Recent(0) {
		if sig.ID > a.lastSynced {
			batch = append(batch, sig)
		}
	}
	if len(batch) == 0 {
		return
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, sig := range batch {
		if err := enc.Encode(sig); err != nil {
			a.logger.Warn("encode signal for archive failed",
				slog.Int64("signal_id", sig.ID),
				slog.String("error", err.Error()),
			)
			return
		}
	}

	now := time.Now().UTC()
	path := fmt.Sprintf("signals/%s/batch-%d-%d.jsonl",
		now.Format("2006/01/02"), batch[0].ID, batch[len(batch)-1].ID)

	if err := a.writer.Put(ctx, path, buf.Bytes(), "application/x-ndjson"); err != nil {
		a.logger.Warn("archive upload failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return
	}

	a.lastSynced = batch[len(batch)-1].ID
	a.logger.Info("signals archived",
		slog.String("path", path),
		slog.Int("count", len(batch)),
	)
}
