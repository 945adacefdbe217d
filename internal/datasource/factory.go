// Package datasource builds sources from configuration.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"SynthFeed/internal/domain/models"
	"SynthFeed/internal/domain/repository"
	"SynthFeed/internal/generator"
	"SynthFeed/internal/reader"
	internalrepo "SynthFeed/internal/repository"
	"SynthFeed/pkg/cache"
	pkgch "SynthFeed/pkg/clickhouse"
	"SynthFeed/pkg/config"
	applogger "SynthFeed/pkg/logger"
	"SynthFeed/pkg/util"
)

// Deps are the shared services a source may need.
type Deps struct {
	Logger     *applogger.Logger
	Metrics    repository.Metrics
	ClickHouse *pkgch.Client
	Table      internalrepo.ClickHouseTable
	Cache      cache.Service
	CacheTTL   time.Duration
}

// ReaderParams configure hdf_single and hdf_multi sources.
type ReaderParams struct {
	Store        string `yaml:"store" default:"hdf5" validate:"oneof=hdf5 clickhouse"`
	Filepath     string `yaml:"filepath" validate:"required_if=Store hdf5"`
	GroupKey     string `yaml:"group_key" validate:"required"`
	PriceKey     string `yaml:"price_key" default:"price" validate:"required"`
	FeatureKey   string `yaml:"feature_key"`
	TimestampKey string `yaml:"timestamp_key" default:"timestamp" validate:"required"`
	CacheSize    int    `yaml:"cache_size" default:"100000" validate:"gte=1"`
	StartTime    string `yaml:"start_time"`
	EndTime      string `yaml:"end_time"`
	TimeUnit     string `yaml:"time_unit" default:"s" validate:"oneof=s ms us ns"`
}

// Keys returns the dataset keys of the reader.
func (p ReaderParams) Keys() internalrepo.DatasetKeys {
	return internalrepo.DatasetKeys{
		Group:     p.GroupKey,
		Price:     p.PriceKey,
		Feature:   p.FeatureKey,
		Timestamp: p.TimestampKey,
	}
}

var validate = config.NewValidator()

// Types lists the source types the factory understands.
func Types() []string {
	out := make([]string, 0, len(generators)+3)
	for t := range generators {
		out = append(out, t)
	}
	return append(out, "composite", "hdf_single", "hdf_multi")
}

// NewFeed builds the configured source and adapts it for the feed runner.
func NewFeed(cfg config.SourceConfig, deps Deps) (repository.Feed, error) {
	if cfg.Type == "hdf_multi" {
		s, err := NewBidAskSource(cfg, deps)
		if err != nil {
			return nil, err
		}
		return NewBidAskFeed(cfg.Name, s), nil
	}
	s, err := NewTickSource(cfg, deps)
	if err != nil {
		return nil, err
	}
	return NewTickFeed(cfg.Name, s), nil
}

// NewTickSource builds any source that yields one vector per step.
func NewTickSource(cfg config.SourceConfig, deps Deps) (repository.TickSource, error) {
	if deps.Logger == nil {
		deps.Logger = applogger.Nop()
	}
	if cfg.Type == "" {
		return nil, models.NewConfigError(cfg.Name, "type", "is required")
	}
	if cfg.Seed == nil {
		return nil, models.NewConfigError(label(cfg), "seed", "is required")
	}
	seed := *cfg.Seed

	switch cfg.Type {
	case "composite":
		return newComposite(cfg, seed, deps)
	case "hdf_single":
		p, store, err := openStore(cfg, deps)
		if err != nil {
			return nil, err
		}
		opts, err := readerOptions(cfg, p, deps)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		if len(cfg.Assets) == 0 {
			opts = append(opts, reader.WithAssets(models.NewAssets(p.GroupKey)))
		}
		r, err := reader.NewSingle(store, opts...)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		return r, nil
	case "hdf_multi":
		return nil, models.NewConfigError(label(cfg), "type", "hdf_multi yields a matrix per step; use it as the top-level source")
	}

	build, ok := generators[cfg.Type]
	if !ok {
		return nil, models.NewConfigError(label(cfg), "type", "unknown source type %q", cfg.Type)
	}
	var opts []generator.Option
	if cfg.Name != "" {
		opts = append(opts, generator.WithName(cfg.Name))
	}
	if len(cfg.Assets) > 0 {
		opts = append(opts, generator.WithAssets(models.NewAssets(cfg.Assets...)))
	}
	s, err := build(&cfg, seed, opts)
	if err != nil {
		return nil, err
	}
	deps.Logger.Debug("source built",
		applogger.String("type", cfg.Type),
		applogger.String("name", label(cfg)),
		applogger.Uint64("seed", seed),
		applogger.Int("assets", s.NAssets()),
	)
	return s, nil
}

// NewBidAskSource builds an hdf_multi reader.
func NewBidAskSource(cfg config.SourceConfig, deps Deps) (repository.BidAskSource, error) {
	if deps.Logger == nil {
		deps.Logger = applogger.Nop()
	}
	if cfg.Type != "hdf_multi" {
		return nil, models.NewConfigError(label(cfg), "type", "%q is not a matrix source", cfg.Type)
	}
	p, store, err := openStore(cfg, deps)
	if err != nil {
		return nil, err
	}
	opts, err := readerOptions(cfg, p, deps)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	r, err := reader.NewMulti(store, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return r, nil
}

func newComposite(cfg config.SourceConfig, seed uint64, deps Deps) (repository.TickSource, error) {
	name := label(cfg)
	if len(cfg.Sources) == 0 {
		return nil, models.NewConfigError(name, "sources", "at least one source is required")
	}
	children := make([]repository.TickSource, 0, len(cfg.Sources))
	fail := func(err error) (repository.TickSource, error) {
		for _, ch := range children {
			_ = closeSource(ch)
		}
		return nil, err
	}
	for i, child := range cfg.Sources {
		if child.Seed == nil {
			derived := seed + uint64(i) + 1
			child.Seed = &derived
		}
		if child.Name == "" {
			child.Name = fmt.Sprintf("%s%d", child.Type, i)
		}
		s, err := NewTickSource(child, deps)
		if err != nil {
			return fail(fmt.Errorf("%s: sources[%d]: %w", name, i, err))
		}
		children = append(children, s)
	}
	c, err := NewComposite(name, children...)
	if err != nil {
		return fail(err)
	}
	return c, nil
}

func label(cfg config.SourceConfig) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	return cfg.Type
}

func decodeReaderParams(cfg config.SourceConfig) (ReaderParams, error) {
	var p ReaderParams
	if err := cfg.DecodeParams(&p); err != nil {
		return p, models.NewConfigError(label(cfg), "params", "cannot decode").WithError(err)
	}
	if err := defaults.Set(&p); err != nil {
		return p, models.NewConfigError(label(cfg), "params", "cannot apply defaults").WithError(err)
	}
	if err := validate.Struct(&p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return p, models.NewConfigError(label(cfg), verrs[0].Field(), "failed %q validation", verrs[0].Tag())
		}
		return p, models.NewConfigError(label(cfg), "params", "invalid").WithError(err)
	}
	return p, nil
}

func openStore(cfg config.SourceConfig, deps Deps) (ReaderParams, repository.RowStore, error) {
	p, err := decodeReaderParams(cfg)
	if err != nil {
		return p, nil, err
	}

	var store repository.RowStore
	var id string
	switch p.Store {
	case "hdf5":
		s, err := internalrepo.OpenHDF5Store(p.Filepath, p.Keys())
		if err != nil {
			return p, nil, models.NewConfigError(label(cfg), "filepath", "cannot open dataset").WithError(err)
		}
		s.SetLogger(deps.Logger)
		store, id = s, s.ID()
	case "clickhouse":
		if deps.ClickHouse == nil {
			return p, nil, models.NewConfigError(label(cfg), "store", "clickhouse is not configured")
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s, err := internalrepo.OpenClickHouseStore(ctx, deps.ClickHouse, deps.Table, p.Keys())
		if err != nil {
			return p, nil, models.NewConfigError(label(cfg), "group_key", "cannot open dataset").WithError(err)
		}
		s.SetLogger(deps.Logger)
		store, id = s, s.ID()
	}

	if deps.Cache != nil {
		cs := internalrepo.NewCachedStore(store, deps.Cache, id, deps.CacheTTL)
		cs.SetLogger(deps.Logger)
		store = cs
	}
	return p, store, nil
}

func readerOptions(cfg config.SourceConfig, p ReaderParams, deps Deps) ([]reader.Option, error) {
	opts := []reader.Option{
		reader.WithName(label(cfg)),
		reader.WithCacheSize(p.CacheSize),
		reader.WithLogger(deps.Logger),
	}
	if deps.Metrics != nil {
		opts = append(opts, reader.WithMetrics(deps.Metrics))
	}
	if len(cfg.Assets) > 0 {
		opts = append(opts, reader.WithAssets(models.NewAssets(cfg.Assets...)))
	}
	if p.StartTime != "" {
		ts, ok := util.ParseTimestamp(p.StartTime, p.TimeUnit)
		if !ok {
			return nil, models.NewConfigError(label(cfg), "start_time", "cannot parse %q", p.StartTime)
		}
		opts = append(opts, reader.WithStartTime(ts))
	}
	if p.EndTime != "" {
		ts, ok := util.ParseTimestamp(p.EndTime, p.TimeUnit)
		if !ok {
			return nil, models.NewConfigError(label(cfg), "end_time", "cannot parse %q", p.EndTime)
		}
		opts = append(opts, reader.WithEndTime(ts))
	}
	return opts, nil
}
