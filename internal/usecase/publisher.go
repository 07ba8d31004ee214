package usecase

import (
	"context"
	"errors"
	"sync/atomic"

	"CoinPulse/internal/domain/models"
	domrepo "CoinPulse/internal/domain/repository"
	xlogger "CoinPulse/pkg/logger"
)

// Publisher serves the latest snapshot to pull requests (from the store) and to
// push subscribers (from a shared in-memory reference updated after each write).
type Publisher struct {
	store   domrepo.SnapshotStore
	metrics domrepo.Metrics
	logger  *xlogger.Logger

	latest      atomic.Pointer[models.Snapshot]
	subscribers atomic.Int64
}

func NewPublisher(store domrepo.SnapshotStore, metrics domrepo.Metrics, logger *xlogger.Logger) *Publisher {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &Publisher{store: store, metrics: metrics, logger: logger}
}

var _ domrepo.SnapshotSink = (*Publisher)(nil)

func (p *Publisher) Name() string { return "publisher" }

// OnSnapshot replaces the shared reference read by push subscribers.
func (p *Publisher) OnSnapshot(_ context.Context, s *models.Snapshot) error {
	p.latest.Store(s.Clone())
	return nil
}

// Prime loads the newest stored snapshot so subscribers have data before the first tick.
func (p *Publisher) Prime(ctx context.Context) error {
	s, ok, err := p.Latest(ctx)
	if err != nil {
		return err
	}
	if ok {
		p.latest.CompareAndSwap(nil, s)
		p.logger.Info("publisher primed from store", xlogger.Time("timestamp", s.Timestamp))
	}
	return nil
}

// Latest reads the store. ok is false when nothing has been written yet.
func (p *Publisher) Latest(ctx context.Context) (s *models.Snapshot, ok bool, err error) {
	s, err = p.store.Latest(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// Current is the shared reference for push subscribers, nil before the first
// snapshot. Callers must not modify it.
func (p *Publisher) Current() *models.Snapshot {
	return p.latest.Load()
}

// Subscribe registers a push subscriber and returns its release function.
func (p *Publisher) Subscribe() func() {
	n := p.subscribers.Add(1)
	p.metrics.SetSubscribers(int(n))
	var released atomic.Bool
	return func() {
		if released.CompareAndSwap(false, true) {
			p.metrics.SetSubscribers(int(p.subscribers.Add(-1)))
		}
	}
}

func (p *Publisher) Subscribers() int {
	return int(p.subscribers.Load())
}

// Health reports store reachability.
func (p *Publisher) Health(ctx context.Context) error {
	return p.store.Health(ctx)
}
