package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/infouniverseforloop/binary/internal/domain"
)

// SignalStore implements domain.SignalStore. Signal IDs come from the
// in-process ledger; the table mirrors the ledger for durability and
// offline analysis.
type SignalStore struct {
	pool *pgxpool.Pool
}

// NewSignalStore creates a SignalStore backed by the given pool.
func NewSignalStore(pool *pgxpool.Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Insert persists an emitted signal. Re-inserting an ID updates the row, so
// retries after a partial failure are safe.
func (s *SignalStore) Insert(ctx context.Context, sig domain.Signal) error {
	notes, err := json.Marshal(sig.Notes)
	if err != nil {
		return fmt.Errorf("postgres: marshal notes for signal %d: %w", sig.ID, err)
	}
	martingale, err := json.Marshal(sig.Martingale)
	if err != nil {
		return fmt.Errorf("postgres: marshal martingale for signal %d: %w", sig.ID, err)
	}

	const query = `
		INSERT INTO signals (
			id, symbol, market, direction, confidence,
			entry, entry_ts, expiry_ts, mode,
			notes, martingale, candle_size, result
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13
		) ON CONFLICT (id) DO UPDATE SET
			result = EXCLUDED.result`

	_, err = s.pool.Exec(ctx, query,
		sig.ID, sig.Symbol, sig.Market, string(sig.Direction), sig.Confidence,
		sig.Entry, sig.EntryTS, sig.ExpiryTS, string(sig.Mode),
		notes, martingale, sig.CandleSize, string(sig.Result),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert signal %d: %w", sig.ID, err)
	}
	return nil
}

// UpdateResult records the resolved outcome of a signal.
func (s *SignalStore) UpdateResult(ctx context.Context, id int64, result domain.Result) error {
	const query = `
		UPDATE signals
		SET result = $2, resolved_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, string(result))
	if err != nil {
		return fmt.Errorf("postgres: update result for signal %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update result for signal %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListRecent returns the newest limit signals in emission order, oldest
// first.
func (s *SignalStore) ListRecent(ctx context.Context, limit int) ([]domain.Signal, error) {
	const query = `
		SELECT id, symbol, market, direction, confidence,
			entry, entry_ts, expiry_ts, mode,
			notes, martingale, candle_size, result
		FROM (
			SELECT * FROM signals ORDER BY id DESC LIMIT $1
		) newest
		ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent signals: %w", err)
	}
	defer rows.Close()

	return scanSignalRows(rows)
}

func scanSignalRows(rows pgx.Rows) ([]domain.Signal, error) {
	var signals []domain.Signal
	for rows.Next() {
		var (
			sig                  domain.Signal
			direction            string
			mode                 string
			result               string
			notesRaw, martingRaw []byte
		)
		if err := rows.Scan(
			&sig.ID, &sig.Symbol, &sig.Market, &direction, &sig.Confidence,
			&sig.Entry, &sig.EntryTS, &sig.ExpiryTS, &mode,
			&notesRaw, &martingRaw, &sig.CandleSize, &result,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan signal row: %w", err)
		}

		sig.Direction = domain.Direction(direction)
		sig.Mode = domain.RegimeMode(mode)
		sig.Result = domain.Result(result)
		if len(notesRaw) > 0 {
			if err := json.Unmarshal(notesRaw, &sig.Notes); err != nil {
				return nil, fmt.Errorf("postgres: decode notes for signal %d: %w", sig.ID, err)
			}
		}
		if len(martingRaw) > 0 {
			if err := json.Unmarshal(martingRaw, &sig.Martingale); err != nil {
				return nil, fmt.Errorf("postgres: decode martingale for signal %d: %w", sig.ID, err)
			}
		}
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate signal rows: %w", err)
	}
	return signals, nil
}

var _ domain.SignalStore = (*SignalStore)(nil)
