//go:build wireinject
// +build wireinject

package di

import (
	"SynthFeed/pkg/config"
	"SynthFeed/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideWindowCache,

		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Source and publishers
		ProvideFeed,
		ProvideHub,
		ProvidePublishers,
		ProvidePublishPipeline,

		// Use cases
		ProvideFeedRunner,

		// Application server
		ProvideHandlers,
		ProvideApp,
	)
	return &server.App{}, nil
}
