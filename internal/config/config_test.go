package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/nexusctl/internal/testutil/testlog"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nexus.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadDaemonOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, `
endpoint = "127.0.0.1:7400"
max_payload_bytes = 65536
write_timeout = "3s"
metrics_addr = "127.0.0.1:9100"
`)
	cfg, err := LoadDaemon(path)
	if err != nil {
		t.Fatalf("LoadDaemon: %v", err)
	}
	if cfg.Endpoint != "127.0.0.1:7400" {
		t.Fatalf("endpoint = %q", cfg.Endpoint)
	}
	if cfg.Limits.MaxPayloadBytes != 65536 {
		t.Fatalf("max payload = %d", cfg.Limits.MaxPayloadBytes)
	}
	if cfg.WriteTimeout != 3*time.Second {
		t.Fatalf("write timeout = %v", cfg.WriteTimeout)
	}
	if cfg.MetricsAddr != "127.0.0.1:9100" {
		t.Fatalf("metrics addr = %q", cfg.MetricsAddr)
	}
}

func TestLoadDaemonKeepsDefaultsForAbsentKeys(t *testing.T) {
	testlog.Start(t)
	cfg, err := LoadDaemon(writeFile(t, `endpoint = "/run/nexus.sock"`))
	if err != nil {
		t.Fatalf("LoadDaemon: %v", err)
	}
	if cfg.Endpoint != "/run/nexus.sock" {
		t.Fatalf("endpoint = %q", cfg.Endpoint)
	}
	if cfg.Limits.MaxPayloadBytes == 0 || cfg.WriteTimeout <= 0 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadDaemonRejectsBadValues(t *testing.T) {
	testlog.Start(t)
	if _, err := LoadDaemon(writeFile(t, `max_payload_bytes = 0`)); err == nil {
		t.Fatalf("expected error for zero payload limit")
	}
	if _, err := LoadDaemon(writeFile(t, `write_timeout = "soon"`)); err == nil {
		t.Fatalf("expected error for unparseable duration")
	}
}

func TestLoadShell(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, `
endpoint = "/run/nexus.sock"
completion_timeout = "150ms"
`)
	cfg, err := LoadShell(path)
	if err != nil {
		t.Fatalf("LoadShell: %v", err)
	}
	if cfg.Endpoint != "/run/nexus.sock" {
		t.Fatalf("endpoint = %q", cfg.Endpoint)
	}
	if cfg.Client.CompletionTimeout != 150*time.Millisecond {
		t.Fatalf("completion timeout = %v", cfg.Client.CompletionTimeout)
	}
	if cfg.Client.RequestTimeout != DefaultShellConfig().Client.RequestTimeout {
		t.Fatalf("request timeout = %v", cfg.Client.RequestTimeout)
	}
}

func TestLoadShellRejectsNonPositiveDurations(t *testing.T) {
	testlog.Start(t)
	if _, err := LoadShell(writeFile(t, `request_timeout = "-1s"`)); err == nil {
		t.Fatalf("expected error for negative duration")
	}
}
