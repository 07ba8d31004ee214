package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error { return nil }

func TestPublishEncodesJSON(t *testing.T) {
	w := &memWriter{}
	reg := prometheus.NewRegistry()
	p := newProducer(w, "gzip", reg)

	require.NoError(t, p.Publish(context.Background(), "snapshots", []byte("k"), map[string]float64{"btc_price": 1}))
	require.NoError(t, p.Publish(context.Background(), "snapshots", nil, "raw"))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "snapshots", w.msgs[0].Topic)
	assert.JSONEq(t, `{"btc_price":1}`, string(w.msgs[0].Value))
	assert.Equal(t, "raw", string(w.msgs[1].Value))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.metrics.msgs.WithLabelValues("snapshots", "gzip", "ok")))
}

func TestPublishError(t *testing.T) {
	w := &memWriter{err: errors.New("leader not available")}
	p := newProducer(w, "gzip", prometheus.NewRegistry())

	err := p.Publish(context.Background(), "snapshots", nil, []byte("x"))
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.errs.WithLabelValues("snapshots")))
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Snappy, parseCompression("snappy"))
	assert.Equal(t, kafka.Gzip, parseCompression("unknown"))
}
