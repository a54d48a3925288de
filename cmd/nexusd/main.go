package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/nexusctl/internal/config"
	"github.com/danmuck/nexusctl/internal/logging"
	"github.com/danmuck/nexusctl/internal/registry"
	"github.com/danmuck/nexusctl/internal/server"
	"github.com/danmuck/nexusctl/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nexusd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		endpoint    = flag.String("endpoint", "", "listen endpoint (':' selects TCP, otherwise a unix socket path)")
		configPath  = flag.String("config", "", "path to a TOML config file")
		metricsAddr = flag.String("metrics", "", "address for the Prometheus scrape endpoint")
	)
	flag.Parse()

	logging.ConfigureRuntime()

	cfg := server.DefaultConfig()
	cfg.Endpoint = config.DefaultEndpoint
	if *configPath != "" {
		loaded, err := config.LoadDaemon(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *endpoint != "" {
		cfg.Endpoint = *endpoint
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	reg := registry.New()
	if err := storage.RegisterAll(reg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.New(cfg, reg).Run(ctx)
}
