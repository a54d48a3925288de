package server_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/nexusctl/internal/client"
	"github.com/danmuck/nexusctl/internal/registry"
	"github.com/danmuck/nexusctl/internal/server"
	"github.com/danmuck/nexusctl/internal/testutil/testlog"
)

// startServer binds a unix socket in a short temp dir, serves reg on it, and
// returns the endpoint. Teardown is registered on t.
func startServer(t *testing.T, reg *registry.Registry) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "nx")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	endpoint := filepath.Join(dir, "nexus.sock")

	srv := server.New(server.Config{Endpoint: endpoint}, reg)
	reg.Seal()
	ln, err := srv.Listen()
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ctx, ln); err != nil {
			t.Errorf("Serve: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return endpoint
}

func dial(t *testing.T, endpoint string) *client.Client {
	t.Helper()
	c, err := client.Dial(endpoint, client.DefaultConfig())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func demoRegistry(t *testing.T, deleteCalls *atomic.Int64) *registry.Registry {
	t.Helper()
	volume, err := registry.NewService("volume", "volume management").
		Command("list", "list volumes", func(ctx context.Context, args []string) (string, error) {
			return "vol0, vol1", nil
		}).
		Command("delete", "delete a volume", func(ctx context.Context, args []string) (string, error) {
			if deleteCalls != nil {
				deleteCalls.Add(1)
			}
			return "deleted " + args[0], nil
		}, registry.Param("name", "volume name")).
		Build()
	if err != nil {
		t.Fatalf("build volume: %v", err)
	}
	pool, err := registry.NewService("pool", "pool management").
		Command("create", "create a pool", func(ctx context.Context, args []string) (string, error) {
			return fmt.Sprintf("Pool '%s' created", args[0]), nil
		}, registry.Param("name", "pool name")).
		Build()
	if err != nil {
		t.Fatalf("build pool: %v", err)
	}

	reg := registry.New()
	for _, svc := range []*registry.Service{volume, pool} {
		if err := reg.Register(svc); err != nil {
			t.Fatalf("Register(%s): %v", svc.Descriptor().Name, err)
		}
	}
	return reg
}

func TestExecuteOverUnixSocket(t *testing.T) {
	testlog.Start(t)
	endpoint := startServer(t, demoRegistry(t, nil))
	c := dial(t, endpoint)

	res, err := c.Execute(context.Background(), "volume", "delete", []string{"vol0"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.OK || res.Message != "deleted vol0" {
		t.Fatalf("unexpected result: ok=%v message=%q", res.OK, res.Message)
	}

	res, err = c.Execute(context.Background(), "volume", "list", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.OK || res.Message != "vol0, vol1" {
		t.Fatalf("unexpected result: ok=%v message=%q", res.OK, res.Message)
	}
}

func TestListServicesRegistrationOrder(t *testing.T) {
	testlog.Start(t)
	endpoint := startServer(t, demoRegistry(t, nil))
	c := dial(t, endpoint)

	services, err := c.ListServices(context.Background())
	if err != nil {
		t.Fatalf("ListServices: %v", err)
	}
	if len(services) != 2 || services[0].Name != "volume" || services[1].Name != "pool" {
		t.Fatalf("unexpected services: %+v", services)
	}
	cmd, ok := services[0].Command("delete")
	if !ok {
		t.Fatalf("volume.delete missing from descriptor")
	}
	if len(cmd.Params) != 1 || cmd.Params[0].Label != "name" {
		t.Fatalf("unexpected params: %+v", cmd.Params)
	}
}

func TestArityMismatchShortCircuitsOverWire(t *testing.T) {
	testlog.Start(t)
	var deleteCalls atomic.Int64
	endpoint := startServer(t, demoRegistry(t, &deleteCalls))
	c := dial(t, endpoint)

	res, err := c.Execute(context.Background(), "volume", "delete", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.OK {
		t.Fatalf("expected failure result, got %q", res.Message)
	}
	if want := "expects 1 argument(s), got 0"; !strings.Contains(res.Message, want) {
		t.Fatalf("message %q does not contain %q", res.Message, want)
	}
	if n := deleteCalls.Load(); n != 0 {
		t.Fatalf("handler ran %d time(s) despite arity mismatch", n)
	}
}

func TestUnknownServiceAndCommand(t *testing.T) {
	testlog.Start(t)
	endpoint := startServer(t, demoRegistry(t, nil))
	c := dial(t, endpoint)

	res, err := c.Execute(context.Background(), "missing", "list", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.OK || !strings.Contains(res.Message, "unknown service") {
		t.Fatalf("unexpected result: ok=%v message=%q", res.OK, res.Message)
	}

	res, err = c.Execute(context.Background(), "volume", "destroy", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.OK || !strings.Contains(res.Message, "unknown command") {
		t.Fatalf("unexpected result: ok=%v message=%q", res.OK, res.Message)
	}
}

func TestServeOverTCP(t *testing.T) {
	testlog.Start(t)
	reg := demoRegistry(t, nil)
	reg.Seal()
	srv := server.New(server.Config{Endpoint: "127.0.0.1:0"}, reg)
	ln, err := srv.Listen()
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	c := dial(t, ln.Addr().String())
	res, err := c.Execute(context.Background(), "pool", "create", []string{"tank"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.OK || res.Message != "Pool 'tank' created" {
		t.Fatalf("unexpected result: ok=%v message=%q", res.OK, res.Message)
	}
}

func TestShutdownClosesClients(t *testing.T) {
	testlog.Start(t)
	reg := demoRegistry(t, nil)
	reg.Seal()
	dir, err := os.MkdirTemp("", "nx")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	endpoint := filepath.Join(dir, "nexus.sock")

	srv := server.New(server.Config{Endpoint: endpoint}, reg)
	ln, err := srv.Listen()
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()

	c := dial(t, endpoint)
	if _, err := c.Execute(context.Background(), "volume", "list", nil); err != nil {
		t.Fatalf("Execute before shutdown: %v", err)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not return after cancel")
	}

	if _, err := c.Execute(context.Background(), "volume", "list", nil); err == nil {
		t.Fatalf("expected error after shutdown")
	}
}
