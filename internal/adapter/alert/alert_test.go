package alert

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sedimentwatch/river-turbidity-etl/internal/domain"
	"github.com/sedimentwatch/river-turbidity-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2023, time.May, 14, 10, 32, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAlert() domain.Alert {
	return domain.Alert{
		River:         "pra-twifo-praso",
		AcquiredAt:    testDate,
		MeanTurbidity: 0.21,
		Status:        domain.StatusCritical,
	}
}

func TestClient_Send(t *testing.T) {
	var received domain.Alert
	var contentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second, observability.NewMetricsForTesting(), discardLogger())
	err := c.Send(context.Background(), testAlert())
	require.NoError(t, err)

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "pra-twifo-praso", received.River)
	assert.InDelta(t, 0.21, received.MeanTurbidity, 1e-12)
	assert.Equal(t, domain.StatusCritical, received.Status)
}

func TestClient_Send_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "channel archived", http.StatusGone)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second, observability.NewMetricsForTesting(), discardLogger())
	err := c.Send(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "410")
	assert.Contains(t, err.Error(), "channel archived")
}

func TestClient_Send_RespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 10*time.Second, observability.NewMetricsForTesting(), discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Send(ctx, testAlert())
	assert.Error(t, err)
}

type countingAlerter struct {
	calls atomic.Int64
	err   error
}

func (c *countingAlerter) Send(_ context.Context, _ domain.Alert) error {
	c.calls.Add(1)
	return c.err
}

func TestDedupeAlerter_SuppressesRepeatDelivery(t *testing.T) {
	inner := &countingAlerter{}
	d := NewDedupeAlerter(inner, 10, observability.NewMetricsForTesting())

	require.NoError(t, d.Send(context.Background(), testAlert()))
	require.NoError(t, d.Send(context.Background(), testAlert()))

	assert.Equal(t, int64(1), inner.calls.Load(), "second alert for the same river and date must be suppressed")
}

func TestDedupeAlerter_SameDayDifferentHourIsDuplicate(t *testing.T) {
	inner := &countingAlerter{}
	d := NewDedupeAlerter(inner, 10, observability.NewMetricsForTesting())

	a := testAlert()
	require.NoError(t, d.Send(context.Background(), a))

	a.AcquiredAt = a.AcquiredAt.Add(3 * time.Hour)
	require.NoError(t, d.Send(context.Background(), a))

	assert.Equal(t, int64(1), inner.calls.Load())
}

func TestDedupeAlerter_DistinctRiversAndDatesDeliver(t *testing.T) {
	inner := &countingAlerter{}
	d := NewDedupeAlerter(inner, 10, observability.NewMetricsForTesting())

	a := testAlert()
	require.NoError(t, d.Send(context.Background(), a))

	b := testAlert()
	b.River = "ankobra-prestea"
	require.NoError(t, d.Send(context.Background(), b))

	c := testAlert()
	c.AcquiredAt = c.AcquiredAt.AddDate(0, 0, 1)
	require.NoError(t, d.Send(context.Background(), c))

	assert.Equal(t, int64(3), inner.calls.Load())
}

func TestDedupeAlerter_FailedDeliveryIsNotCached(t *testing.T) {
	inner := &countingAlerter{err: errors.New("webhook down")}
	d := NewDedupeAlerter(inner, 10, observability.NewMetricsForTesting())

	assert.Error(t, d.Send(context.Background(), testAlert()))

	// Recovered webhook: the retry for the same observation must go through.
	inner.err = nil
	assert.NoError(t, d.Send(context.Background(), testAlert()))
	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newLRUCache(2)
	now := time.Now()

	c.put("a", now)
	c.put("b", now)

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.get("a")
	require.True(t, ok)

	c.put("c", now)

	_, ok = c.get("a")
	assert.True(t, ok)
	_, ok = c.get("b")
	assert.False(t, ok, "least recently used entry must be evicted")
	_, ok = c.get("c")
	assert.True(t, ok)
}

func TestLRUCache_PutExistingUpdatesTimestamp(t *testing.T) {
	c := newLRUCache(2)
	first := time.Date(2023, time.May, 14, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	c.put("a", first)
	c.put("a", second)

	got, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, second, got)
	assert.Len(t, c.entries, 1)
}
