package reader

import (
	"SynthFeed/internal/domain/models"
	"SynthFeed/internal/domain/repository"
	applogger "SynthFeed/pkg/logger"
)

// DefaultCacheSize is the number of rows loaded per window.
const DefaultCacheSize = 100000

// Option configures a reader.
type Option func(*Config)

// Config holds reader settings.
type Config struct {
	Name      string
	Assets    models.Assets
	CacheSize int
	StartTime *int64
	EndTime   *int64
	Logger    *applogger.Logger
	Metrics   repository.Metrics
}

// WithName sets the source name used in logs and metrics.
func WithName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

// WithAssets names the assets read from the store.
func WithAssets(assets models.Assets) Option {
	return func(c *Config) {
		c.Assets = assets
	}
}

// WithCacheSize sets the window size in rows.
func WithCacheSize(n int) Option {
	return func(c *Config) {
		c.CacheSize = n
	}
}

// WithStartTime keeps rows with timestamp >= ts.
func WithStartTime(ts int64) Option {
	return func(c *Config) {
		c.StartTime = &ts
	}
}

// WithEndTime keeps rows with timestamp < ts.
func WithEndTime(ts int64) Option {
	return func(c *Config) {
		c.EndTime = &ts
	}
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m repository.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// fileSource is the state shared by Single and Multi.
type fileSource struct {
	cfg    *Config
	win    *window
	time   int64
	prices models.PriceVector
}

func newFileSource(kind string, store repository.RowStore, opts []Option) (*fileSource, error) {
	cfg := &Config{Name: kind, CacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = applogger.Nop()
	}
	if store == nil {
		return nil, models.NewConfigError(kind, "store", "is required")
	}
	if cfg.CacheSize < 1 {
		return nil, models.NewConfigError(kind, "cache_size", "must be at least 1, got %d", cfg.CacheSize)
	}
	if store.PriceCols() < 1 {
		return nil, models.NewConfigError(kind, "price_key", "dataset has no price columns")
	}
	lo, hi, err := resolveBounds(store, cfg.StartTime, cfg.EndTime)
	if err != nil {
		return nil, models.NewConfigError(kind, "start_time", "cannot resolve bounds").WithError(err)
	}
	if lo >= hi {
		return nil, models.NewConfigError(kind, "end_time", "time range selects no rows (%d rows in dataset)", store.Len())
	}
	s := &fileSource{
		cfg: cfg,
		win: &window{
			name:    cfg.Name,
			store:   store,
			size:    cfg.CacheSize,
			lower:   lo,
			upper:   hi,
			log:     cfg.Logger,
			metrics: cfg.Metrics,
		},
		prices: make(models.PriceVector, store.PriceCols()),
	}
	if err := s.rewind(); err != nil {
		return nil, models.NewConfigError(kind, "filepath", "cannot load first window").WithError(err)
	}
	cfg.Logger.Info("file source opened",
		applogger.String("source", cfg.Name),
		applogger.Int("rows", hi-lo),
		applogger.Int("first_row", lo),
		applogger.Int("cache_size", cfg.CacheSize),
	)
	return s, nil
}

func (s *fileSource) rewind() error {
	if err := s.win.rewind(); err != nil {
		return err
	}
	s.time = s.win.block.Timestamps[0]
	for i := range s.prices {
		s.prices[i] = 0
	}
	return nil
}

func (s *fileSource) Name() string                      { return s.cfg.Name }
func (s *fileSource) CurrentPrices() models.PriceVector { return s.prices }
func (s *fileSource) CurrentTime() int64                { return s.time }
func (s *fileSource) IsDateTime() bool                  { return true }
func (s *fileSource) DataEnd() bool                     { return s.win.done() }

// Rows returns the number of rows inside the configured time range.
func (s *fileSource) Rows() int { return s.win.upper - s.win.lower }

// Close releases the underlying store.
func (s *fileSource) Close() error { return s.win.store.Close() }

func (s *fileSource) resolveAssets(kind string, n int) (models.Assets, error) {
	if s.cfg.Assets == nil {
		return models.NumberedAssets(s.cfg.Name+"_", n), nil
	}
	if len(s.cfg.Assets) != n {
		return nil, models.NewConfigError(kind, "assets", "got %d names for %d assets", len(s.cfg.Assets), n)
	}
	return s.cfg.Assets, nil
}
