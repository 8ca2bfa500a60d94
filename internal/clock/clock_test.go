package clock

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResyncLearnsOffset(t *testing.T) {
	// Reference source running one minute ahead of the host.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"unixtime": %d}`, time.Now().Add(time.Minute).Unix())
	}))
	defer srv.Close()

	c := New(srv.URL, time.Minute, testLogger())
	require.NoError(t, c.Resync(context.Background()))

	offset := c.OffsetMillis()
	assert.Greater(t, offset, int64(55_000))
	assert.Less(t, offset, int64(65_000))
	assert.WithinDuration(t, time.Now().Add(time.Minute), c.Now(), 5*time.Second)
}

func TestResyncParsesDatetimeFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"datetime": %q}`, time.Now().UTC().Format(time.RFC3339))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Minute, testLogger())
	require.NoError(t, c.Resync(context.Background()))
	assert.WithinDuration(t, time.Now(), c.Now(), 5*time.Second)
}

func TestResyncFailureKeepsOffset(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls > 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, `{"unixtime": %d}`, time.Now().Add(time.Minute).Unix())
	}))
	defer srv.Close()

	c := New(srv.URL, time.Minute, testLogger())
	require.NoError(t, c.Resync(context.Background()))
	learned := c.OffsetMillis()

	err := c.Resync(context.Background())
	require.Error(t, err)
	assert.Equal(t, learned, c.OffsetMillis())
}

func TestResyncRejectsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Minute, testLogger())
	assert.Error(t, c.Resync(context.Background()))
	assert.Zero(t, c.OffsetMillis())
}

func TestNowISOFormat(t *testing.T) {
	c := New("", 0, testLogger())
	_, err := time.Parse(time.RFC3339, c.NowISO())
	assert.NoError(t, err)
}
