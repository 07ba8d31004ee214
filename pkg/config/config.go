package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	xutil "CoinPulse/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8000" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"2s"`
		// TrustedProxies are CIDRs allowed to set X-Forwarded-For. Empty trusts no header.
		TrustedProxies []string `yaml:"trusted_proxies" validate:"dive,cidr"`
		RateLimit       struct {
			Capacity     float64 `yaml:"capacity" default:"20"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"2"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
		// Collect ships deduplicated warn/error events to Kafka; it needs kafka.enabled.
		Collect struct {
			Enabled       bool          `yaml:"enabled" default:"true"`
			Topic         string        `yaml:"topic" default:"coinpulse.logs"`
			FlushInterval time.Duration `yaml:"flush_interval" default:"30s"`
			MaxEntries    int           `yaml:"max_entries" default:"100" validate:"gt=0"`
		} `yaml:"collect"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Storage struct {
		Driver string `yaml:"driver" default:"clickhouse" validate:"oneof=clickhouse postgres sqlite memory"`
		// DSN is used by postgres and sqlite.
		DSN   string `yaml:"dsn"`
		Table string `yaml:"table" default:"crypto_data"`
	} `yaml:"storage"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"coinpulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Scheduler struct {
		Interval   time.Duration `yaml:"interval" default:"10m"`
		RunOnStart bool          `yaml:"run_on_start"`
	} `yaml:"scheduler"`
	Collector struct {
		Timeout   time.Duration `yaml:"timeout" default:"60s"`
		RSIDays   int           `yaml:"rsi_days" default:"14" validate:"gt=0"`
		RSICoin   string        `yaml:"rsi_coin" default:"bitcoin"`
		RSIPeriod int           `yaml:"rsi_period" default:"14" validate:"gt=0"`
	} `yaml:"collector"`
	Publisher struct {
		PushInterval time.Duration `yaml:"push_interval" default:"10s"`
	} `yaml:"publisher"`
	CoinGecko struct {
		BaseURL string `yaml:"base_url" default:"https://api.coingecko.com/api/v3" validate:"url"`
		APIKey  string `yaml:"api_key"`
		// RPS is the budget of the on-demand routes, CollectorRPS the separate
		// budget of the scheduled collector. Their sum should stay under the plan limit.
		RPS          float64       `yaml:"rps" default:"0.4"`
		CollectorRPS float64       `yaml:"collector_rps" default:"0.1" validate:"gt=0"`
		Timeout      time.Duration `yaml:"timeout" default:"15s"`
	} `yaml:"coingecko"`
	CoinGlass struct {
		BaseURL string        `yaml:"base_url" default:"https://open-api.coinglass.com" validate:"url"`
		APIKey  string        `yaml:"api_key"`
		RPS     float64       `yaml:"rps" default:"0.5"`
		Timeout time.Duration `yaml:"timeout" default:"15s"`
	} `yaml:"coinglass"`
	CryptoCompare struct {
		BaseURL string        `yaml:"base_url" default:"https://min-api.cryptocompare.com" validate:"url"`
		APIKey  string        `yaml:"api_key"`
		RPS     float64       `yaml:"rps" default:"1"`
		Timeout time.Duration `yaml:"timeout" default:"15s"`
	} `yaml:"cryptocompare"`
	Cache struct {
		TTL   time.Duration `yaml:"ttl" default:"60s"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"coinpulse.snapshots"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the environment. getenv is os.Getenv outside tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("DATABASE_URL"); v != "" {
		c.Storage.DSN = v
		if c.Storage.Driver == "clickhouse" || c.Storage.Driver == "memory" {
			c.Storage.Driver = driverFromDSN(v)
		}
	}
	if v := getenv("STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := getenv("COINGECKO_API_KEY"); v != "" {
		c.CoinGecko.APIKey = v
	}
	if v := getenv("COINGLASS_API_KEY"); v != "" {
		c.CoinGlass.APIKey = v
	}
	if v := getenv("CRYPTOCOMPARE_API_KEY"); v != "" {
		c.CryptoCompare.APIKey = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := getenv("PORT"); v != "" {
		c.Server.Port = xutil.ParseIntDefault(v, c.Server.Port)
	}
}

func driverFromDSN(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(dsn, "file:"), strings.HasSuffix(dsn, ".db"), dsn == ":memory:":
		return "sqlite"
	default:
		return "clickhouse"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	switch c.Storage.Driver {
	case "postgres", "sqlite":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for driver %q", c.Storage.Driver)
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive")
	}
	if c.Publisher.PushInterval <= 0 {
		return fmt.Errorf("publisher.push_interval must be positive")
	}
	return nil
}
