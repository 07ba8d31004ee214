package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"CoinPulse/internal/domain/repository"
	"CoinPulse/internal/handler/api"
	"CoinPulse/internal/handler/ws"
	internalrepo "CoinPulse/internal/repository"
	icache "CoinPulse/internal/service/cache"
	"CoinPulse/internal/service/coingecko"
	"CoinPulse/internal/service/coinglass"
	"CoinPulse/internal/service/cryptocompare"
	"CoinPulse/internal/service/ratelimit"
	"CoinPulse/internal/usecase"
	pkgch "CoinPulse/pkg/clickhouse"
	"CoinPulse/pkg/config"
	xhttp "CoinPulse/pkg/http"
	pkgkafka "CoinPulse/pkg/kafka"
	applogger "CoinPulse/pkg/logger"
	"CoinPulse/pkg/metrics"
	"CoinPulse/pkg/server"
	"CoinPulse/pkg/sqldb"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideRegistry returns the Prometheus registry shared by every collector.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideSnapshotStore opens the configured backend and tries to apply the schema.
// Only configuration errors are fatal: an unreachable database is retried on
// first use, so the process starts and each tick reports the outage on its own.
func ProvideSnapshotStore(cfg *config.Config, l *applogger.Logger) (repository.SnapshotStore, error) {
	var inner repository.SnapshotStore
	switch cfg.Storage.Driver {
	case "memory":
		inner = internalrepo.NewMemorySnapshotStore()
	case internalrepo.ClickHouse.Name:
		chStore, err := provideClickHouseStore(cfg)
		if err != nil {
			return nil, err
		}
		inner = chStore
	default:
		dialect, err := internalrepo.DialectFor(cfg.Storage.Driver)
		if err != nil {
			return nil, err
		}
		client, err := sqldb.NewClient(cfg.Storage.Driver, cfg.Storage.DSN, sqldb.WithPingTimeout(0))
		if err != nil {
			return nil, fmt.Errorf("%s client: %w", cfg.Storage.Driver, err)
		}
		inner = internalrepo.NewSQLSnapshotStore(client.DB(), dialect, cfg.Storage.Table, internalrepo.WithCloser(client))
	}

	store := internalrepo.NewLazySnapshotStore(inner)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		l.Warn("snapshot store unavailable at startup, retrying on first use",
			applogger.String("driver", cfg.Storage.Driver),
			applogger.Error(err),
		)
		return store, nil
	}
	l.Info("snapshot store ready",
		applogger.String("driver", cfg.Storage.Driver),
		applogger.String("table", cfg.Storage.Table),
	)
	return store, nil
}

func provideClickHouseStore(cfg *config.Config) (*internalrepo.SQLSnapshotStore, error) {
	opts := []pkgch.ClientOption{
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		// connect to default first, the target database may not exist yet
		pkgch.WithDatabase("default"),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		pkgch.WithSkipPing(true),
	}
	if cfg.Storage.DSN != "" {
		opts = append(opts, pkgch.WithDSN(cfg.Storage.DSN))
	}
	client, err := pkgch.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	database := cfg.ClickHouse.Database
	table := database + "." + cfg.Storage.Table
	return internalrepo.NewSQLSnapshotStore(client.DB(), internalrepo.ClickHouse, table,
		internalrepo.WithCloser(client),
		internalrepo.WithBootstrap(func(ctx context.Context) error {
			return client.EnsureDatabase(ctx, database)
		}),
	), nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when the feed is disabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogCollector attaches the Kafka log collector to the logger. It returns
// nil when the Kafka feed is off.
func ProvideLogCollector(cfg *config.Config, l *applogger.Logger, producer *pkgkafka.Producer) *applogger.LogCollector {
	if producer == nil || !cfg.Log.Collect.Enabled {
		return nil
	}
	c := applogger.NewLogCollector(producer, applogger.CollectorConfig{
		Topic:         cfg.Log.Collect.Topic,
		FlushInterval: cfg.Log.Collect.FlushInterval,
		MaxEntries:    cfg.Log.Collect.MaxEntries,
	})
	l.AttachCollector(c)
	l.Info("log collector enabled", applogger.String("topic", cfg.Log.Collect.Topic))
	return c
}

// GeckoClients splits CoinGecko traffic: the scheduled collector has its own
// limiter so on-demand requests can never queue ahead of a tick.
type GeckoClients struct {
	Collector *coingecko.Client
	Proxy     *coingecko.Client
}

// ProvideCoinGecko creates the market data clients.
func ProvideCoinGecko(cfg *config.Config) GeckoClients {
	opts := coingecko.Options{
		BaseURL: cfg.CoinGecko.BaseURL,
		APIKey:  cfg.CoinGecko.APIKey,
		Timeout: cfg.CoinGecko.Timeout,
	}
	collector, proxy := opts, opts
	collector.RPS = cfg.CoinGecko.CollectorRPS
	proxy.RPS = cfg.CoinGecko.RPS
	return GeckoClients{
		Collector: coingecko.New(collector),
		Proxy:     coingecko.New(proxy),
	}
}

// ProvideCoinGlass creates the liquidation client; without a key it reports itself disabled.
func ProvideCoinGlass(cfg *config.Config, l *applogger.Logger) *coinglass.Client {
	c := coinglass.New(coinglass.Options{
		BaseURL: cfg.CoinGlass.BaseURL,
		APIKey:  cfg.CoinGlass.APIKey,
		RPS:     cfg.CoinGlass.RPS,
		Timeout: cfg.CoinGlass.Timeout,
	})
	if !c.Enabled() {
		l.Info("coinglass api key not set, liquidation totals default to 0")
	}
	return c
}

// ProvideCryptoCompare creates the news client.
func ProvideCryptoCompare(cfg *config.Config) *cryptocompare.Client {
	return cryptocompare.New(cryptocompare.Options{
		BaseURL: cfg.CryptoCompare.BaseURL,
		APIKey:  cfg.CryptoCompare.APIKey,
		RPS:     cfg.CryptoCompare.RPS,
		Timeout: cfg.CryptoCompare.Timeout,
	})
}

// ProvidePublisher creates the pull/push publisher.
func ProvidePublisher(store repository.SnapshotStore, m repository.Metrics, l *applogger.Logger) *usecase.Publisher {
	return usecase.NewPublisher(store, m, l)
}

// ProvideSnapshotSinks lists the receivers of each stored snapshot.
func ProvideSnapshotSinks(cfg *config.Config, pub *usecase.Publisher, producer *pkgkafka.Producer) []repository.SnapshotSink {
	sinks := []repository.SnapshotSink{pub}
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaSnapshotSink(producer, cfg.Kafka.Topic))
	}
	return sinks
}

// ProvideSnapshotCollector creates the aggregator run on every tick.
func ProvideSnapshotCollector(
	cfg *config.Config,
	gecko GeckoClients,
	glass *coinglass.Client,
	store repository.SnapshotStore,
	m repository.Metrics,
	sinks []repository.SnapshotSink,
	l *applogger.Logger,
) *usecase.SnapshotCollector {
	var liq repository.LiquidationSource
	if glass.Enabled() {
		liq = glass
	}
	return usecase.NewSnapshotCollector(gecko.Collector, gecko.Collector, liq, gecko.Collector, store, m,
		usecase.WithCollectTimeout(cfg.Collector.Timeout),
		usecase.WithRSIWindow(cfg.Collector.RSICoin, cfg.Collector.RSIDays, cfg.Collector.RSIPeriod),
		usecase.WithSinks(sinks...),
		usecase.WithCollectorLogger(l),
	)
}

// ProvideScheduler creates the fixed-interval scheduler.
func ProvideScheduler(cfg *config.Config, c *usecase.SnapshotCollector, m repository.Metrics, l *applogger.Logger) *usecase.Scheduler {
	return usecase.NewScheduler(c, cfg.Scheduler.Interval, m,
		usecase.WithRunOnStart(cfg.Scheduler.RunOnStart),
		usecase.WithSchedulerLogger(l),
	)
}

// ProvideCache returns Redis when enabled, otherwise an in-process TTL cache.
func ProvideCache(cfg *config.Config, l *applogger.Logger) icache.BytesCache {
	if !cfg.Cache.Redis.Enabled {
		return icache.NewTTLCache()
	}
	rc := icache.NewRedisCache(icache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		// Cache failures are bypassed per request, so an unreachable Redis is not fatal.
		l.Warn("redis unreachable at startup", applogger.String("addr", cfg.Cache.Redis.Addr), applogger.Error(err))
	}
	return rc
}

// ProvideMarketData creates the on-demand market data use case.
func ProvideMarketData(
	cfg *config.Config,
	gecko GeckoClients,
	news *cryptocompare.Client,
	cache icache.BytesCache,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.MarketDataUseCase {
	return usecase.NewMarketDataUseCase(gecko.Proxy, news, gecko.Proxy, m,
		usecase.WithCache(cache, cfg.Cache.TTL),
		usecase.WithMarketDataLogger(l),
	)
}

// ProvideLimiter creates the per-client limiter for upstream-proxy routes.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideHandlers collects every route group.
func ProvideHandlers(
	cfg *config.Config,
	l *applogger.Logger,
	pub *usecase.Publisher,
	market *usecase.MarketDataUseCase,
	limiter *ratelimit.Limiter,
) xhttp.Handler {
	return xhttp.Handlers{
		api.NewCryptoHandler(l, pub),
		api.NewMarketHandler(l, market, limiter, api.RateLimit{
			Capacity:     cfg.Server.RateLimit.Capacity,
			RefillPerSec: cfg.Server.RateLimit.RefillPerSec,
		}),
		ws.NewPushHandler(l, pub, cfg.Publisher.PushInterval),
	}
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h xhttp.Handler, reg *prometheus.Registry) *xhttp.Server {
	path := ""
	if cfg.Metrics.Enabled {
		path = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithTrustedProxies(cfg.Server.TrustedProxies),
		xhttp.WithMetrics(path, reg, reg),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	scheduler *usecase.Scheduler,
	pub *usecase.Publisher,
	store repository.SnapshotStore,
	srv *xhttp.Server,
	producer *pkgkafka.Producer,
	collector *applogger.LogCollector,
	cache icache.BytesCache,
	limiter *ratelimit.Limiter,
) *server.App {
	app := server.New(cfg, l, scheduler, pub, store, srv)
	// the collector flushes through the producer, so it closes first
	if collector != nil {
		app.AddCloser(collector)
	}
	if producer != nil {
		app.AddCloser(producer)
	}
	if rc, ok := cache.(*icache.RedisCache); ok {
		app.AddCloser(rc)
	}
	if ttl, ok := cache.(*icache.TTLCache); ok {
		app.AddJanitor(func() { ttl.Purge() })
	}
	app.AddJanitor(func() { limiter.Sweep(10 * time.Minute) })
	return app
}
