package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/domain/repository"
	xutil "CoinPulse/pkg/util"
)

var snapshotColumns = []string{
	"timestamp",
	colMarketCap,
	"btc_price", "btc_market_cap",
	"eth_price", "eth_market_cap",
	"doge_price", "doge_market_cap",
	colDominance,
	colLiquidation,
	colAvgRSI,
	colSources,
}

// SQLSnapshotStore implements SnapshotStore over database/sql.
type SQLSnapshotStore struct {
	db      *sql.DB
	dialect Dialect
	table   string
	closer  io.Closer
	clock   *monotonicClock
	// bootstrap runs before the table DDL, e.g. CREATE DATABASE.
	bootstrap func(ctx context.Context) error
}

// SQLStoreOption configures SQLSnapshotStore.
type SQLStoreOption func(*SQLSnapshotStore)

// WithCloser hands ownership of the connection to the store.
func WithCloser(c io.Closer) SQLStoreOption {
	return func(s *SQLSnapshotStore) { s.closer = c }
}

// WithBootstrap runs fn at the start of every Init.
func WithBootstrap(fn func(ctx context.Context) error) SQLStoreOption {
	return func(s *SQLSnapshotStore) { s.bootstrap = fn }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) SQLStoreOption {
	return func(s *SQLSnapshotStore) { s.clock = newMonotonicClock(now) }
}

// NewSQLSnapshotStore creates a store on table using dialect d.
func NewSQLSnapshotStore(db *sql.DB, d Dialect, table string, opts ...SQLStoreOption) *SQLSnapshotStore {
	s := &SQLSnapshotStore{db: db, dialect: d, table: table, clock: newMonotonicClock(time.Now)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repository.SnapshotStore = (*SQLSnapshotStore)(nil)

// Init creates the table and applies column migrations. Safe to run on every start.
func (s *SQLSnapshotStore) Init(ctx context.Context) error {
	if s.bootstrap != nil {
		if err := s.bootstrap(ctx); err != nil {
			return err
		}
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(s.dialect.CreateTable, s.table)); err != nil {
		return fmt.Errorf("%s create table %s: %w", s.dialect.Name, s.table, err)
	}
	for _, m := range s.dialect.Migrations {
		if _, err := s.db.ExecContext(ctx, s.dialect.addColumn(s.table, m)); err != nil {
			if s.dialect.IgnoreMigrationErr(err) {
				continue
			}
			return fmt.Errorf("%s add column %s: %w", s.dialect.Name, m.Column, err)
		}
	}
	return nil
}

func (s *SQLSnapshotStore) Append(ctx context.Context, snap *models.Snapshot) (*models.Snapshot, error) {
	if snap == nil {
		return nil, fmt.Errorf("append: nil snapshot")
	}
	row := snap.Clone()
	row.Timestamp = s.clock.Next()

	sources := ""
	if len(row.Sources) > 0 {
		b, err := json.Marshal(row.Sources)
		if err != nil {
			return nil, fmt.Errorf("append: encode sources: %w", err)
		}
		sources = string(b)
	}

	marks := make([]string, len(snapshotColumns))
	for i := range marks {
		marks[i] = s.dialect.Placeholder(i + 1)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, strings.Join(snapshotColumns, ", "), strings.Join(marks, ", "))

	_, err := s.db.ExecContext(ctx, q,
		s.dialect.EncodeTime(row.Timestamp),
		row.MarketCapTotal,
		row.BTCPrice, row.BTCMarketCap,
		row.ETHPrice, row.ETHMarketCap,
		row.DOGEPrice, row.DOGEMarketCap,
		nullable(row.BTCDominance),
		row.LiquidationTotal,
		nullable(row.AvgRSI),
		sources,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: insert: %v", models.ErrStoreUnavailable, err)
	}
	return row, nil
}

func (s *SQLSnapshotStore) Latest(ctx context.Context) (*models.Snapshot, error) {
	order := "timestamp DESC"
	if s.dialect.TieBreak != "" {
		order += ", " + s.dialect.TieBreak
	}
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT 1",
		strings.Join(snapshotColumns, ", "), s.table, order)

	var (
		snap      models.Snapshot
		ts        timeScanner
		dominance sql.NullFloat64
		avgRSI    sql.NullFloat64
		liq       sql.NullFloat64
		sources   sql.NullString
	)
	err := s.db.QueryRowContext(ctx, q).Scan(
		&ts,
		&snap.MarketCapTotal,
		&snap.BTCPrice, &snap.BTCMarketCap,
		&snap.ETHPrice, &snap.ETHMarketCap,
		&snap.DOGEPrice, &snap.DOGEMarketCap,
		&dominance,
		&liq,
		&avgRSI,
		&sources,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: latest: %v", models.ErrStoreUnavailable, err)
	}

	snap.Timestamp = ts.t
	snap.BTCDominance = fromNull(dominance)
	snap.AvgRSI = fromNull(avgRSI)
	snap.LiquidationTotal = liq.Float64
	if sources.Valid && sources.String != "" {
		if err := json.Unmarshal([]byte(sources.String), &snap.Sources); err != nil {
			snap.Sources = nil
		}
	}
	return &snap, nil
}

func (s *SQLSnapshotStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLSnapshotStore) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func nullable(v models.Value) any {
	if f, ok := v.Get(); ok {
		return f
	}
	return nil
}

func fromNull(n sql.NullFloat64) models.Value {
	if !n.Valid {
		return models.None()
	}
	return models.Some(n.Float64)
}

// timeScanner accepts the timestamp representations of every dialect.
type timeScanner struct {
	t time.Time
}

func (ts *timeScanner) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		ts.t = v.UTC()
	case int64:
		ts.t = time.UnixMilli(v).UTC()
	case []byte:
		return ts.parse(string(v))
	case string:
		return ts.parse(v)
	case nil:
		ts.t = time.Time{}
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
	return nil
}

func (ts *timeScanner) parse(s string) error {
	t, ok := xutil.ParseTime(s)
	if !ok {
		return fmt.Errorf("unparseable timestamp %q", s)
	}
	ts.t = t
	return nil
}

// monotonicClock hands out strictly increasing millisecond timestamps so the
// latest row is unambiguous even when two writes land in the same millisecond.
type monotonicClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newMonotonicClock(now func() time.Time) *monotonicClock {
	return &monotonicClock{now: now}
}

func (c *monotonicClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Millisecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	return t
}
