package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"SynthFeed/internal/di"
	"SynthFeed/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	check := flag.Bool("check", false, "validate the config and exit")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *check {
		fmt.Printf("config ok: env=%s source=%s seed=%d\n", cfg.Environment, cfg.Source.Type, *cfg.Source.Seed)
		return
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// blocks until SIGINT or SIGTERM; a finished feed keeps serving its last snapshot
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
