// Package clock maintains a server clock disciplined against an external
// time source, so signal timestamps stay honest even when the host clock
// drifts.
package clock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	defaultResyncInterval = 60 * time.Second
	syncRequestTimeout    = 10 * time.Second
)

// Clock is a wall clock plus a learned offset. The zero offset is a valid
// state; a failed resync keeps the last good offset.
type Clock struct {
	offsetMillis atomic.Int64
	url          string
	interval     time.Duration
	client       *http.Client
	logger       *slog.Logger
}

// New creates a clock. url may be empty, in which case Run is a no-op and
// the clock tracks the host time directly. interval <= 0 selects the
// default resync cadence.
func New(url string, interval time.Duration, logger *slog.Logger) *Clock {
	if interval <= 0 {
		interval = defaultResyncInterval
	}
	return &Clock{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: syncRequestTimeout},
		logger:   logger.With(slog.String("component", "clock")),
	}
}

// Now returns the disciplined time.
func (c *Clock) Now() time.Time {
	return time.Now().Add(time.Duration(c.offsetMillis.Load()) * time.Millisecond)
}

// NowISO returns the disciplined time formatted as RFC 3339 in UTC.
func (c *Clock) NowISO() string {
	return c.Now().UTC().Format(time.RFC3339)
}

// OffsetMillis returns the current learned offset.
func (c *Clock) OffsetMillis() int64 {
	return c.offsetMillis.Load()
}

// Run resyncs once immediately and then on the configured interval until
// ctx is canceled. Without a source URL it returns when ctx is canceled.
func (c *Clock) Run(ctx context.Context) error {
	if c.url == "" {
		<-ctx.Done()
		return ctx.Err()
	}

	if err := c.Resync(ctx); err != nil {
		c.logger.Warn("initial time sync failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.Resync(ctx); err != nil {
				c.logger.Warn("time sync failed", slog.String("error", err.Error()))
			}
		}
	}
}

type timeSourceResponse struct {
	UnixTime int64  `json:"unixtime"`
	DateTime string `json:"datetime"`
}

// Resync fetches the reference time and updates the offset. On any failure
// the previous offset is kept.
func (c *Clock) Resync(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("clock: build request: %w", err)
	}

	sent := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("clock: fetch %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clock: fetch %s: status %d", c.url, resp.StatusCode)
	}

	var body timeSourceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("clock: decode response: %w", err)
	}

	reference, err := referenceTime(body)
	if err != nil {
		return err
	}

	// Split the round trip evenly between request and response legs.
	rtt := time.Since(sent)
	estimated := reference.Add(rtt / 2)
	offset := estimated.Sub(time.Now())
	c.offsetMillis.Store(offset.Milliseconds())

	c.logger.Debug("time synced",
		slog.Int64("offset_ms", offset.Milliseconds()),
		slog.Duration("rtt", rtt),
	)
	return nil
}

func referenceTime(body timeSourceResponse) (time.Time, error) {
	if body.UnixTime > 0 {
		return time.Unix(body.UnixTime, 0), nil
	}
	if body.DateTime != "" {
		t, err := time.Parse(time.RFC3339, body.DateTime)
		if err != nil {
			return time.Time{}, fmt.Errorf("clock: parse datetime %q: %w", body.DateTime, err)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("clock: response carries no usable timestamp")
}
