package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockAnalysis/internal/collector"
)

func TestTelegramNotifier_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		if calls.Add(1) < 3 {
			http.Error(w, `{"ok":false}`, http.StatusBadGateway)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "", nil)
	n.APIURL = srv.URL
	n.Backoff = time.Millisecond

	require.NoError(t, n.Notify(context.Background(), "hello"))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestTelegramNotifier_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "", nil)
	n.APIURL = srv.URL
	n.Backoff = time.Millisecond

	err := n.SendWithRetry(context.Background(), "hello", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 retries exhausted")
	assert.Contains(t, err.Error(), "status 401")
}

func TestTelegramNotifier_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "", nil)
	n.APIURL = srv.URL
	n.Backoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := n.Notify(ctx, "hello")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNoopNotifier(t *testing.T) {
	var n Notifier = NoopNotifier{}
	assert.NoError(t, n.Notify(context.Background(), "ignored"))
}

func TestFormatIngestReport(t *testing.T) {
	r := &collector.Report{
		Start:    time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 7, 13, 0, 0, 0, 0, time.UTC),
		Tickers:  3,
		Fetched:  4,
		Inserted: 2,
		Failures: []collector.Failure{{Ticker: "BRK.B", Err: errors.New("status <500>")}},
	}
	msg := FormatIngestReport(r, 2)

	assert.True(t, strings.HasPrefix(msg, "⚠️"))
	assert.Contains(t, msg, "2024-07-05 → 2024-07-13")
	assert.Contains(t, msg, "New bars stored: 2")
	assert.Contains(t, msg, "Attempts: 2")
	assert.Contains(t, msg, "BRK.B: status &lt;500&gt;")
}

func TestFormatIngestReport_TruncatesFailures(t *testing.T) {
	r := &collector.Report{Tickers: 30}
	for i := 0; i < 30; i++ {
		r.Failures = append(r.Failures, collector.Failure{Ticker: fmt.Sprintf("T%02d", i), Err: errors.New("x")})
	}
	msg := FormatIngestReport(r, 1)
	assert.True(t, strings.HasPrefix(msg, "❌"))
	assert.Contains(t, msg, "T19: x")
	assert.NotContains(t, msg, "T20: x")
	assert.Contains(t, msg, "and 10 more")
	assert.NotContains(t, msg, "Attempts")
}

func TestFormatIngestFailure(t *testing.T) {
	msg := FormatIngestFailure(errors.New("provider <down>"), 6)
	assert.Contains(t, msg, "failed after 6 attempt(s)")
	assert.Contains(t, msg, "provider &lt;down&gt;")
}
