//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"CoinPulse/pkg/config"
	"CoinPulse/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideSnapshotStore,
		ProvideKafkaProducer,
		ProvideLogCollector,
		ProvideCache,

		// Upstream providers
		ProvideCoinGecko,
		ProvideCoinGlass,
		ProvideCryptoCompare,

		// Use cases
		ProvidePublisher,
		ProvideSnapshotSinks,
		ProvideSnapshotCollector,
		ProvideScheduler,
		ProvideMarketData,

		// HTTP
		ProvideLimiter,
		ProvideHandlers,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
