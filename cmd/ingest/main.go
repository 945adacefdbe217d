// Command ingest copies one HDF5 dataset group into the ClickHouse table read
// by the clickhouse row store.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"SynthFeed/internal/di"
	internalrepo "SynthFeed/internal/repository"
	"SynthFeed/internal/usecase"
	"SynthFeed/pkg/config"
	applogger "SynthFeed/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path (clickhouse and logging sections)")
	file := flag.String("file", "", "HDF5 file to ingest")
	group := flag.String("group", "", "dataset group, also the value of the table's group column")
	price := flag.String("price", "price", "price dataset key")
	feature := flag.String("feature", "", "feature dataset key (optional)")
	timestamp := flag.String("timestamp", "timestamp", "timestamp dataset key")
	batch := flag.Int("batch", 50000, "rows read per batch")
	flag.Parse()

	if *file == "" || *group == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	l, err := applogger.New(&applogger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	keys := internalrepo.DatasetKeys{Group: *group, Price: *price, Feature: *feature, Timestamp: *timestamp}
	src, err := internalrepo.OpenHDF5Store(*file, keys)
	if err != nil {
		l.Error("open hdf5 source", applogger.Error(err))
		os.Exit(1)
	}
	defer src.Close()
	src.SetLogger(l)

	ch, err := di.NewClickHouseClient(cfg)
	if err != nil {
		l.Error("connect clickhouse", applogger.Error(err))
		os.Exit(1)
	}
	defer ch.Close()

	sink, err := internalrepo.NewClickHouseSink(ch, di.ClickHouseTable(cfg), keys)
	if err != nil {
		l.Error("clickhouse sink", applogger.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := sink.InitSchema(ctx); err != nil {
		l.Error("clickhouse schema", applogger.Error(err))
		os.Exit(1)
	}

	l.Info("ingest started",
		applogger.String("file", *file),
		applogger.String("group", *group),
		applogger.Int("rows", src.Len()),
		applogger.Int("price_cols", src.PriceCols()),
		applogger.Int("feature_cols", src.FeatureCols()),
	)
	if _, err := usecase.Ingest(ctx, src, sink, *batch, l); err != nil {
		l.Error("ingest failed", applogger.Error(err))
		os.Exit(1)
	}
}
