package logger

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchRecorder struct {
	mu      sync.Mutex
	topics  []string
	batches [][]AggregatedEntry
	err     error
}

func (r *batchRecorder) Publish(_ context.Context, topic string, _ []byte, value interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.topics = append(r.topics, topic)
	r.batches = append(r.batches, value.([]AggregatedEntry))
	return nil
}

func (r *batchRecorder) entries() []AggregatedEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AggregatedEntry
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func TestCollectorFoldsRepeatedWarnings(t *testing.T) {
	rec := &batchRecorder{}
	c := NewLogCollector(rec, CollectorConfig{Topic: "coinpulse.logs", FlushInterval: time.Hour})
	root := Nop()
	root.AttachCollector(c)
	child := root.With(String("component", "collector"))

	for i := 1; i <= 3; i++ {
		child.Warn("source unavailable, using default",
			String("source", "global"),
			Duration("duration_ms", time.Duration(i)*time.Millisecond),
		)
	}
	child.Warn("source unavailable, using default", String("source", "prices"))
	root.Info("snapshot stored")
	root.Debug("tick")
	require.NoError(t, c.Close())

	entries := rec.entries()
	require.Len(t, entries, 2)
	byCount := map[int]AggregatedEntry{}
	for _, e := range entries {
		byCount[e.Count] = e
	}
	global := byCount[3]
	assert.Equal(t, "warn", global.Level)
	assert.Equal(t, "global", global.Fields["source"])
	assert.Equal(t, 3, global.Fields["duration_ms"])
	assert.False(t, global.LastSeen.Before(global.FirstSeen))
	assert.Equal(t, "prices", byCount[1].Fields["source"])
	assert.Equal(t, []string{"coinpulse.logs"}, rec.topics)
}

func TestCollectorFlushesAtMaxEntries(t *testing.T) {
	rec := &batchRecorder{}
	c := NewLogCollector(rec, CollectorConfig{Topic: "logs", FlushInterval: time.Hour, MaxEntries: 2})
	defer c.Close()

	l := Nop()
	l.AttachCollector(c)
	l.Error("store append failed", Error(errors.New("connection refused")))
	l.Error("store append failed", Error(errors.New("i/o timeout")))

	assert.Eventually(t, func() bool { return len(rec.entries()) == 2 }, time.Second, 10*time.Millisecond)
}

func TestCollectorPublishFailureIsCounted(t *testing.T) {
	rec := &batchRecorder{err: errors.New("broker down")}
	c := NewLogCollector(rec, CollectorConfig{Topic: "logs", FlushInterval: time.Hour})
	var stderr bytes.Buffer
	c.errOut = &stderr

	c.Add("warn", "upstream request failed", []Field{String("provider", "coingecko")})
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	published, dropped := c.Stats()
	assert.Zero(t, published)
	assert.Equal(t, int64(1), dropped)
	assert.Contains(t, stderr.String(), "broker down")
}
