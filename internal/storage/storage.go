// Package storage defines the demo services a nexusd daemon exposes: volume,
// block, network, and pool management over a fixed in-memory inventory.
package storage

import (
	"context"
	"fmt"

	"github.com/danmuck/nexusctl/internal/registry"
)

// Volume manages logical volumes. Its list payload doubles as the value
// source for volume-name completion.
func Volume() *registry.Service {
	return registry.NewService("volume", "manage logical volumes").
		Command("create", "create a new volume on the specified disk",
			func(ctx context.Context, args []string) (string, error) {
				return fmt.Sprintf("Volume '%s' created on disk '%s'", args[0], args[1]), nil
			},
			registry.Param("volume name", "name of the new volume"),
			registry.ParamCompleted("device", "disk to place the volume on", "block.list"),
		).
		Command("delete", "delete an existing volume",
			func(ctx context.Context, args []string) (string, error) {
				return fmt.Sprintf("Volume '%s' deleted", args[0]), nil
			},
			registry.ParamCompleted("name", "volume to delete", "volume.list"),
		).
		Command("list", "list all volumes",
			func(ctx context.Context, args []string) (string, error) {
				return "vol0, vol1, vol2", nil
			},
		).
		MustBuild()
}

// Block inspects block devices.
func Block() *registry.Service {
	return registry.NewService("block", "inspect block devices").
		Command("list", "list all block devices",
			func(ctx context.Context, args []string) (string, error) {
				return "sda, sdb, sdc, nvme0n1", nil
			},
		).
		Command("info", "show info for a block device",
			func(ctx context.Context, args []string) (string, error) {
				return fmt.Sprintf("Block device '%s': size=500G, type=SSD", args[0]), nil
			},
			registry.ParamCompleted("device", "device to inspect", "block.list"),
		).
		MustBuild()
}

// Network manages network interfaces.
func Network() *registry.Service {
	return registry.NewService("network", "manage network interfaces").
		Command("list", "list all network interfaces",
			func(ctx context.Context, args []string) (string, error) {
				return "eth0, eth1, br0", nil
			},
		).
		Command("info", "show info for a network interface",
			func(ctx context.Context, args []string) (string, error) {
				return fmt.Sprintf("Interface '%s': state=up, speed=10G", args[0]), nil
			},
			registry.ParamCompleted("interface", "interface to inspect", "network.list"),
		).
		MustBuild()
}

// Pool manages storage pools.
func Pool() *registry.Service {
	return registry.NewService("pool", "manage storage pools").
		Command("create", "create a new storage pool",
			func(ctx context.Context, args []string) (string, error) {
				return fmt.Sprintf("Pool '%s' created", args[0]), nil
			},
			registry.Param("name", "name of the new pool"),
		).
		Command("destroy", "destroy a storage pool",
			func(ctx context.Context, args []string) (string, error) {
				return fmt.Sprintf("Pool '%s' destroyed", args[0]), nil
			},
			registry.Param("name", "pool to destroy"),
		).
		MustBuild()
}

// RegisterAll registers the demo services in their canonical order.
func RegisterAll(reg *registry.Registry) error {
	for _, svc := range []*registry.Service{Volume(), Block(), Network(), Pool()} {
		if err := reg.Register(svc); err != nil {
			return err
		}
	}
	return nil
}
