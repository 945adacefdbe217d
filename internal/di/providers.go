package di

import (
	"fmt"
	"time"

	"SynthFeed/internal/datasource"
	"SynthFeed/internal/domain/repository"
	"SynthFeed/internal/handler/api"
	"SynthFeed/internal/handler/ws"
	mid "SynthFeed/internal/middleware"
	internalrepo "SynthFeed/internal/repository"
	"SynthFeed/internal/usecase"
	"SynthFeed/pkg/cache"
	pkgch "SynthFeed/pkg/clickhouse"
	"SynthFeed/pkg/config"
	xhttp "SynthFeed/pkg/http"
	pkgkafka "SynthFeed/pkg/kafka"
	applogger "SynthFeed/pkg/logger"
	"SynthFeed/pkg/metrics"
	"SynthFeed/pkg/server"
)

// ProvideKafkaProducer creates a Kafka producer when ticks or log digests
// are published; otherwise it returns nil.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Feed.Publish.Kafka && !cfg.Logging.Digest.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithKeyOrdering(true),
		pkgkafka.WithAutoTopicCreate(cfg.Kafka.AutoCreateTopics),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideLogger creates the application logger and attaches the Kafka log
// digest collector when enabled.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cfg.Logging.Output,
		Service: cfg.Feed.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Logging.Digest.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			Service:        cfg.Feed.Name,
			TimeInterval:   cfg.Logging.Digest.Interval,
			CountThreshold: cfg.Logging.Digest.Threshold,
			Topic:          cfg.Logging.Digest.Topic,
			Publisher:      producer,
		})
	}
	return l.With(applogger.String("env", cfg.Environment), applogger.String("feed", cfg.Feed.Name)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client when the source reads
// from ClickHouse; otherwise it returns nil.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.Source.UsesClickHouse() {
		return nil, nil
	}
	client, err := NewClickHouseClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// NewClickHouseClient connects using the clickhouse section of cfg.
func NewClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(cfg.ClickHouse.MaxOpenConns, 0, 0),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithCompression(cfg.ClickHouse.Compress),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ClickHouseTable maps the clickhouse section onto the store's table layout.
func ClickHouseTable(cfg *config.Config) internalrepo.ClickHouseTable {
	return internalrepo.ClickHouseTable{
		Table:        cfg.ClickHouse.Table,
		GroupColumn:  cfg.ClickHouse.GroupColumn,
		QueryTimeout: cfg.ClickHouse.QueryTimeout,
	}
}

// ProvideWindowCache creates the cache shared by file readers, or nil when
// window caching is off.
func ProvideWindowCache(cfg *config.Config) (cache.Service, error) {
	memOpts := []cache.MemoryOption{
		cache.WithMemoryMaxSize(cfg.WindowCache.MemoryMaxSize),
		cache.WithMemoryMaxBytes(cfg.WindowCache.MemoryMaxBytes),
	}
	switch cfg.WindowCache.Backend {
	case "memory":
		return cache.NewMemoryCache(memOpts...), nil
	case "redis", "layered":
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
			cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
			cache.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
			cache.WithRedisDialTimeout(cfg.Redis.DialTimeout),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		if cfg.WindowCache.Backend == "layered" {
			return cache.NewLayeredCache(rc,
				cache.WithLayeredMemory(memOpts...),
				cache.WithLayeredMemoryTTL(cfg.WindowCache.MemoryTTL),
			), nil
		}
		return rc, nil
	default:
		return nil, nil
	}
}

// ProvideFeed builds the configured source tree.
func ProvideFeed(
	cfg *config.Config,
	l *applogger.Logger,
	m repository.Metrics,
	ch *pkgch.Client,
	wc cache.Service,
) (repository.Feed, error) {
	feed, err := datasource.NewFeed(cfg.Source, datasource.Deps{
		Logger:     l,
		Metrics:    m,
		ClickHouse: ch,
		Table:      ClickHouseTable(cfg),
		Cache:      wc,
		CacheTTL:   cfg.WindowCache.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	l.Info("source ready",
		applogger.String("type", cfg.Source.Type),
		applogger.Int("assets", feed.NAssets()),
		applogger.Int("feats", feed.NFeats()),
		applogger.Strings("names", feed.Assets().Names()),
	)
	return feed, nil
}

// ProvideHub creates the websocket hub when websocket publishing is on.
func ProvideHub(cfg *config.Config, l *applogger.Logger, m repository.Metrics) *ws.Hub {
	if !cfg.Feed.Publish.WebSocket {
		return nil
	}
	return ws.NewHub(m, ws.WithLogger(l), ws.WithSendBuffer(cfg.Feed.Publish.BufferSize))
}

// ProvidePublishers collects the enabled sinks.
func ProvidePublishers(cfg *config.Config, producer *pkgkafka.Producer, hub *ws.Hub) []repository.Publisher {
	var pubs []repository.Publisher
	if cfg.Feed.Publish.Kafka && producer != nil {
		pubs = append(pubs, internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic))
	}
	if hub != nil {
		pubs = append(pubs, hub)
	}
	return pubs
}

// ProvidePublishPipeline buffers ticks between the runner and the sinks.
func ProvidePublishPipeline(
	cfg *config.Config,
	l *applogger.Logger,
	m repository.Metrics,
	pubs []repository.Publisher,
) *mid.PublishPipeline {
	return mid.NewPublishPipeline(m, pubs,
		mid.WithBufferSize(cfg.Feed.Publish.BufferSize),
		mid.WithTimeout(cfg.Feed.Publish.Timeout),
		mid.WithLogger(l),
	)
}

// ProvideFeedRunner creates the feed runner use case.
func ProvideFeedRunner(
	cfg *config.Config,
	l *applogger.Logger,
	m repository.Metrics,
	feed repository.Feed,
	pipeline *mid.PublishPipeline,
) *usecase.FeedRunner {
	return usecase.NewFeedRunner(feed, m,
		usecase.WithRate(cfg.Feed.Rate, cfg.Feed.Burst),
		usecase.WithMaxSteps(cfg.Feed.MaxSteps),
		usecase.WithLoop(cfg.Feed.Loop),
		usecase.WithHistory(cfg.Feed.History),
		usecase.WithSink(pipeline),
		usecase.WithSourceType(cfg.Source.Type),
		usecase.WithRunnerLogger(l),
	)
}

// ProvideHandlers lists the HTTP route groups.
func ProvideHandlers(l *applogger.Logger, runner *usecase.FeedRunner, hub *ws.Hub) []xhttp.Handler {
	handlers := []xhttp.Handler{api.NewFeedHandler(l, runner)}
	if hub != nil {
		handlers = append(handlers, hub)
	}
	return handlers
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	producer *pkgkafka.Producer,
	feed repository.Feed,
	runner *usecase.FeedRunner,
	pipeline *mid.PublishPipeline,
	chClient *pkgch.Client,
	wc cache.Service,
	handlers []xhttp.Handler,
) *server.App {
	app := server.New(cfg, l, feed, runner, pipeline, chClient, wc, handlers)
	// KafkaPublisher closes the producer it publishes through; a producer
	// serving only log digests is closed last.
	if producer != nil && !cfg.Feed.Publish.Kafka {
		app.CloseOnShutdown(producer)
	}
	return app
}
