package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/danmuck/nexusctl/internal/client"
	"github.com/danmuck/nexusctl/internal/config"
	"github.com/danmuck/nexusctl/internal/logging"
	"github.com/danmuck/nexusctl/internal/shell"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nexusctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		endpoint   = flag.String("endpoint", "", "daemon endpoint (':' selects TCP, otherwise a unix socket path)")
		configPath = flag.String("config", "", "path to a TOML config file")
	)
	flag.Parse()

	logging.ConfigureShell()

	cfg := config.DefaultShellConfig()
	if *configPath != "" {
		loaded, err := config.LoadShell(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *endpoint != "" {
		cfg.Endpoint = *endpoint
	}

	c, err := client.Dial(cfg.Endpoint, cfg.Client)
	if err != nil {
		return err
	}
	defer c.Close()

	services, err := c.ListServices(context.Background())
	if err != nil {
		return err
	}

	return shell.Run(services, c)
}
