package repository

import (
	"fmt"
	"strings"
	"time"
)

// Dialect captures what differs between the SQL engines that can hold snapshots.
type Dialect struct {
	Name string
	// CreateTable is a format string taking the table name.
	CreateTable string
	// Migrations add the columns introduced after the original table layout.
	Migrations []Migration
	// Placeholder returns the bind marker for the i-th (1-based) argument.
	Placeholder func(i int) string
	// TieBreak is appended to ORDER BY for engines with a surrogate key.
	TieBreak string
	// EncodeTime converts the snapshot timestamp into a bind argument.
	EncodeTime func(t time.Time) any
	// IgnoreMigrationErr reports errors that mean the column already exists.
	IgnoreMigrationErr func(err error) bool
}

// Migration adds one column.
type Migration struct {
	Column string
	Type   string
}

const (
	colMarketCap   = "market_cap_total"
	colDominance   = "btc_dominance"
	colLiquidation = "liquidation_total"
	colAvgRSI      = "avg_rsi"
	colSources     = "sources"
)

func questionMark(int) string { return "?" }

func dollar(i int) string { return fmt.Sprintf("$%d", i) }

func utc(t time.Time) any { return t.UTC() }

func never(error) bool { return false }

// ClickHouse stores snapshots in a MergeTree ordered by timestamp.
var ClickHouse = Dialect{
	Name: "clickhouse",
	CreateTable: `CREATE TABLE IF NOT EXISTS %s (
		timestamp DateTime64(3, 'UTC'),
		market_cap_total Float64,
		btc_price Float64,
		btc_market_cap Float64,
		eth_price Float64,
		eth_market_cap Float64,
		doge_price Float64,
		doge_market_cap Float64
	) ENGINE = MergeTree ORDER BY timestamp`,
	Migrations: []Migration{
		{colDominance, "Nullable(Float64)"},
		{colLiquidation, "Float64 DEFAULT 0"},
		{colAvgRSI, "Nullable(Float64)"},
		{colSources, "String DEFAULT ''"},
	},
	Placeholder:        questionMark,
	EncodeTime:         utc,
	IgnoreMigrationErr: never,
}

// Postgres keeps the original crypto_data layout with a serial id.
var Postgres = Dialect{
	Name: "postgres",
	CreateTable: `CREATE TABLE IF NOT EXISTS %s (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		market_cap_total DOUBLE PRECISION,
		btc_price DOUBLE PRECISION,
		btc_market_cap DOUBLE PRECISION,
		eth_price DOUBLE PRECISION,
		eth_market_cap DOUBLE PRECISION,
		doge_price DOUBLE PRECISION,
		doge_market_cap DOUBLE PRECISION
	)`,
	Migrations: []Migration{
		{colDominance, "DOUBLE PRECISION"},
		{colLiquidation, "DOUBLE PRECISION NOT NULL DEFAULT 0"},
		{colAvgRSI, "DOUBLE PRECISION"},
		{colSources, "TEXT NOT NULL DEFAULT ''"},
	},
	Placeholder:        dollar,
	TieBreak:           "id DESC",
	EncodeTime:         utc,
	IgnoreMigrationErr: never,
}

// SQLite has no ADD COLUMN IF NOT EXISTS; a duplicate column error is treated as applied.
// Timestamps are unix milliseconds.
var SQLite = Dialect{
	Name: "sqlite",
	CreateTable: `CREATE TABLE IF NOT EXISTS %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		market_cap_total REAL,
		btc_price REAL,
		btc_market_cap REAL,
		eth_price REAL,
		eth_market_cap REAL,
		doge_price REAL,
		doge_market_cap REAL
	)`,
	Migrations: []Migration{
		{colDominance, "REAL"},
		{colLiquidation, "REAL NOT NULL DEFAULT 0"},
		{colAvgRSI, "REAL"},
		{colSources, "TEXT NOT NULL DEFAULT ''"},
	},
	Placeholder: questionMark,
	TieBreak:    "id DESC",
	EncodeTime:  func(t time.Time) any { return t.UnixMilli() },
	IgnoreMigrationErr: func(err error) bool {
		return strings.Contains(strings.ToLower(err.Error()), "duplicate column")
	},
}

// addColumn renders the migration statement for d.
func (d Dialect) addColumn(table string, m Migration) string {
	if d.Name == SQLite.Name {
		return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, m.Column, m.Type)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", table, m.Column, m.Type)
}

// DialectFor maps a storage driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case ClickHouse.Name:
		return ClickHouse, nil
	case Postgres.Name:
		return Postgres, nil
	case SQLite.Name:
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("no sql dialect for driver %q", driver)
}
