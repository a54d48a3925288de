// Package logging owns the process-wide zerolog root. Components take scoped
// loggers at package init; profiles chosen in main adjust the global level,
// which zerolog evaluates per event, so init order does not matter.
package logging

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel     = "NEXUSCTL_LOG_LEVEL"
	EnvLogTimestamp = "NEXUSCTL_LOG_TIMESTAMP"
	EnvLogNoColor   = "NEXUSCTL_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
	ProfileShell
)

// Config controls the process-wide zerolog root logger.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
}

var root zerolog.Logger

func init() {
	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)

	writer := zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: cfg.NoColor,
	}
	if !cfg.Timestamp {
		writer.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	root = zerolog.New(writer).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(cfg.Level)
}

func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

func ConfigureTests() {
	Configure(ProfileTest)
}

// ConfigureShell keeps log noise off the interactive terminal.
func ConfigureShell() {
	Configure(ProfileShell)
}

// Configure applies a profile's level. The env override wins over the
// profile.
func Configure(profile Profile) {
	cfg := defaultConfig(profile)
	applyEnvOverrides(&cfg)
	zerolog.SetGlobalLevel(cfg.Level)
}

// New returns a component-scoped logger off the process root.
func New(component string) zerolog.Logger {
	return root.With().Str("component", component).Logger()
}

func defaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: zerolog.DebugLevel, Timestamp: false}
	case ProfileShell:
		return Config{Level: zerolog.WarnLevel, Timestamp: false}
	default:
		return Config{Level: zerolog.InfoLevel, Timestamp: true}
	}
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error", "err":
		return zerolog.ErrorLevel, true
	case "off", "disabled", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
