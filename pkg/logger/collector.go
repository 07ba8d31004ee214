package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Publisher ships a batch of aggregated entries. pkg/kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

type CollectorConfig struct {
	Topic          string
	FlushInterval  time.Duration // default 30s
	MaxEntries     int           // distinct entries that force an early flush, default 100
	PublishTimeout time.Duration // default 10s
}

// AggregatedEntry is one distinct warn/error event and how often it fired
// between two flushes.
type AggregatedEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector folds repeated warn and error events into counted entries and
// publishes them in batches. A source that stays down for hours produces one
// entry per flush instead of one line per tick.
type LogCollector struct {
	cfg CollectorConfig
	pub Publisher
	now func() time.Time
	// errOut receives publish failures; they cannot go through the logger.
	errOut io.Writer

	mu      sync.Mutex
	entries map[string]*AggregatedEntry

	batches   chan []AggregatedEntry
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	published atomic.Int64
	dropped   atomic.Int64
}

func NewLogCollector(pub Publisher, cfg CollectorConfig) *LogCollector {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 30 * time.Second
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 100
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 10 * time.Second
	}
	c := &LogCollector{
		cfg:     cfg,
		pub:     pub,
		now:     time.Now,
		errOut:  os.Stderr,
		entries: make(map[string]*AggregatedEntry),
		batches: make(chan []AggregatedEntry, 4),
		done:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.loop()
	return c
}

// Add records one event. Only string and bool fields identify an entry;
// numeric fields such as durations keep the value of the latest occurrence.
func (c *LogCollector) Add(level, msg string, fields []Field) {
	values := make(map[string]interface{}, len(fields))
	identity := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		k, v := f.GetKeyValue()
		values[k] = v
		switch v.(type) {
		case string, bool, nil:
			identity[k] = v
		}
	}
	key := entryKey(level, msg, identity)
	now := c.now()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
		e.Fields = values
	} else {
		c.entries[key] = &AggregatedEntry{
			Level:     level,
			Message:   msg,
			Fields:    values,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	var batch []AggregatedEntry
	if len(c.entries) >= c.cfg.MaxEntries {
		batch = c.takeLocked()
	}
	c.mu.Unlock()

	if batch != nil {
		select {
		case c.batches <- batch:
		default:
			c.dropped.Add(int64(len(batch)))
		}
	}
}

func entryKey(level, msg string, identity map[string]interface{}) string {
	// json sorts map keys, so equal identities hash equally
	b, _ := json.Marshal(struct {
		Level   string                 `json:"l"`
		Message string                 `json:"m"`
		Fields  map[string]interface{} `json:"f"`
	}{level, msg, identity})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (c *LogCollector) takeLocked() []AggregatedEntry {
	if len(c.entries) == 0 {
		return nil
	}
	batch := make([]AggregatedEntry, 0, len(c.entries))
	for _, e := range c.entries {
		batch = append(batch, *e)
	}
	c.entries = make(map[string]*AggregatedEntry)
	return batch
}

func (c *LogCollector) take() []AggregatedEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.takeLocked()
}

func (c *LogCollector) loop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.publish(c.take())
		case batch := <-c.batches:
			c.publish(batch)
		case <-c.done:
			for {
				select {
				case batch := <-c.batches:
					c.publish(batch)
				default:
					c.publish(c.take())
					return
				}
			}
		}
	}
}

func (c *LogCollector) publish(batch []AggregatedEntry) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PublishTimeout)
	defer cancel()
	if err := c.pub.Publish(ctx, c.cfg.Topic, nil, batch); err != nil {
		c.dropped.Add(int64(len(batch)))
		fmt.Fprintf(c.errOut, "log collector: publish %d entries: %v\n", len(batch), err)
		return
	}
	c.published.Add(int64(len(batch)))
}

// Stats returns how many entries were published and dropped so far.
func (c *LogCollector) Stats() (published, dropped int64) {
	return c.published.Load(), c.dropped.Load()
}

// Close flushes what is pending and stops the background loop. It must run
// before the publisher is closed.
func (c *LogCollector) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
	})
	return nil
}
