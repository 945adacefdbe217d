package datasource

import (
	"SynthFeed/internal/domain/models"
	"SynthFeed/internal/domain/repository"
	"SynthFeed/internal/generator"
	"SynthFeed/pkg/config"
)

type builder func(cfg *config.SourceConfig, seed uint64, opts []generator.Option) (repository.TickSource, error)

// params decodes cfg.Params over def. Unset keys keep the default values.
func params[T any](cfg *config.SourceConfig, def T) (T, error) {
	if err := cfg.DecodeParams(&def); err != nil {
		return def, models.NewConfigError(label(*cfg), "params", "cannot decode").WithError(err)
	}
	return def, nil
}

func periodic(ctor func(generator.PeriodicParams, ...generator.Option) (*generator.Periodic, error)) builder {
	return func(cfg *config.SourceConfig, seed uint64, opts []generator.Option) (repository.TickSource, error) {
		p, err := params(cfg, generator.DefaultPeriodicParams())
		if err != nil {
			return nil, err
		}
		p.Seed = seed
		g, err := ctor(p, opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
}

var generators = map[string]builder{
	"synth":    periodic(generator.NewSynth),
	"sawtooth": periodic(generator.NewSawTooth),
	"triangle": periodic(generator.NewTriangle),
	"sine_adder": func(cfg *config.SourceConfig, seed uint64, opts []generator.Option) (repository.TickSource, error) {
		p, err := params(cfg, generator.DefaultPeriodicParams())
		if err != nil {
			return nil, err
		}
		p.Seed = seed
		g, err := generator.NewSineAdder(p, opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	},
	"sine_dynamic": func(cfg *config.SourceConfig, seed uint64, opts []generator.Option) (repository.TickSource, error) {
		p, err := params(cfg, generator.DefaultSineDynamicParams())
		if err != nil {
			return nil, err
		}
		p.Seed = seed
		g, err := generator.NewSineDynamic(p, opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	},
	"sine_dynamic_trend": func(cfg *config.SourceConfig, seed uint64, opts []generator.Option) (repository.TickSource, error) {
		p, err := params(cfg, generator.DefaultSineDynamicTrendParams())
		if err != nil {
			return nil, err
		}
		p.Seed = seed
		g, err := generator.NewSineDynamicTrend(p, opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	},
	"gaussian": func(cfg *config.SourceConfig, seed uint64, opts []generator.Option) (repository.TickSource, error) {
		p, err := params(cfg, generator.DefaultGaussianParams())
		if err != nil {
			return nil, err
		}
		p.Seed = seed
		g, err := generator.NewGaussian(p, opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	},
	"ou": func(cfg *config.SourceConfig, seed uint64, opts []generator.Option) (repository.TickSource, error) {
		p, err := params(cfg, generator.DefaultOUParams())
		if err != nil {
			return nil, err
		}
		p.Seed = seed
		g, err := generator.NewOU(p, opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	},
	"ou_dynamic": func(cfg *config.SourceConfig, seed uint64, opts []generator.Option) (repository.TickSource, error) {
		p, err := params(cfg, generator.DefaultOUDynamicParams())
		if err != nil {
			return nil, err
		}
		p.Seed = seed
		g, err := generator.NewOUDynamic(p, opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	},
	"ou_pair": func(cfg *config.SourceConfig, seed uint64, opts []generator.Option) (repository.TickSource, error) {
		p, err := params(cfg, generator.DefaultPairParams())
		if err != nil {
			return nil, err
		}
		p.Seed = seed
		g, err := generator.NewOUPair(p, opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	},
	"coint_pair": func(cfg *config.SourceConfig, seed uint64, opts []generator.Option) (repository.TickSource, error) {
		p, err := params(cfg, generator.DefaultPairParams())
		if err != nil {
			return nil, err
		}
		p.Seed = seed
		g, err := generator.NewCointPair(p, opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	},
	"simple_trend": func(cfg *config.SourceConfig, seed uint64, opts []generator.Option) (repository.TickSource, error) {
		p, err := params(cfg, generator.DefaultSimpleTrendParams())
		if err != nil {
			return nil, err
		}
		p.Seed = seed
		g, err := generator.NewSimpleTrend(p, opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	},
	"trend_ou": func(cfg *config.SourceConfig, seed uint64, opts []generator.Option) (repository.TickSource, error) {
		p, err := params(cfg, generator.DefaultTrendOUParams())
		if err != nil {
			return nil, err
		}
		p.Seed = seed
		g, err := generator.NewTrendOU(p, opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	},
	"trendy_ou": func(cfg *config.SourceConfig, seed uint64, opts []generator.Option) (repository.TickSource, error) {
		p, err := params(cfg, generator.DefaultTrendOUParams())
		if err != nil {
			return nil, err
		}
		p.Seed = seed
		g, err := generator.NewTrendyOU(p, opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	},
}
