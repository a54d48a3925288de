// Package config loads daemon and shell settings from TOML files. File
// values override defaults only for keys actually present in the file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/nexusctl/internal/client"
	"github.com/danmuck/nexusctl/internal/server"
)

// DefaultEndpoint is shared by daemon and shell when neither a flag nor a
// config file says otherwise.
const DefaultEndpoint = "/tmp/nexus.sock"

type daemonFile struct {
	Endpoint        string `toml:"endpoint"`
	MaxPayloadBytes uint32 `toml:"max_payload_bytes"`
	WriteTimeout    string `toml:"write_timeout"`
	MetricsAddr     string `toml:"metrics_addr"`
}

// LoadDaemon reads a daemon config file on top of server defaults.
func LoadDaemon(path string) (server.Config, error) {
	cfg := server.DefaultConfig()
	cfg.Endpoint = DefaultEndpoint

	var raw daemonFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return server.Config{}, fmt.Errorf("load daemon config: %w", err)
	}

	if meta.IsDefined("endpoint") {
		endpoint := strings.TrimSpace(raw.Endpoint)
		if endpoint != "" {
			cfg.Endpoint = endpoint
		}
	}

	if meta.IsDefined("max_payload_bytes") {
		if raw.MaxPayloadBytes == 0 {
			return server.Config{}, fmt.Errorf("max_payload_bytes must be positive")
		}
		cfg.Limits.MaxPayloadBytes = raw.MaxPayloadBytes
	}

	if meta.IsDefined("write_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.WriteTimeout))
		if err != nil {
			return server.Config{}, fmt.Errorf("parse write_timeout: %w", err)
		}
		cfg.WriteTimeout = d
	}

	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}

	return cfg, nil
}

type shellFile struct {
	Endpoint          string `toml:"endpoint"`
	ConnectTimeout    string `toml:"connect_timeout"`
	RequestTimeout    string `toml:"request_timeout"`
	CompletionTimeout string `toml:"completion_timeout"`
}

// ShellConfig is everything the interactive shell needs to reach a daemon.
type ShellConfig struct {
	Endpoint string
	Client   client.Config
}

func DefaultShellConfig() ShellConfig {
	return ShellConfig{
		Endpoint: DefaultEndpoint,
		Client:   client.DefaultConfig(),
	}
}

// LoadShell reads a shell config file on top of shell defaults.
func LoadShell(path string) (ShellConfig, error) {
	cfg := DefaultShellConfig()

	var raw shellFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ShellConfig{}, fmt.Errorf("load shell config: %w", err)
	}

	if meta.IsDefined("endpoint") {
		endpoint := strings.TrimSpace(raw.Endpoint)
		if endpoint != "" {
			cfg.Endpoint = endpoint
		}
	}

	durations := []struct {
		key   string
		value string
		dst   *time.Duration
	}{
		{"connect_timeout", raw.ConnectTimeout, &cfg.Client.ConnectTimeout},
		{"request_timeout", raw.RequestTimeout, &cfg.Client.RequestTimeout},
		{"completion_timeout", raw.CompletionTimeout, &cfg.Client.CompletionTimeout},
	}
	for _, entry := range durations {
		if !meta.IsDefined(entry.key) {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(entry.value))
		if err != nil {
			return ShellConfig{}, fmt.Errorf("parse %s: %w", entry.key, err)
		}
		if d <= 0 {
			return ShellConfig{}, fmt.Errorf("%s must be positive", entry.key)
		}
		*entry.dst = d
	}

	return cfg, nil
}
