// Package system shows host statistics of the machine driving the mirror.
package system

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	"github.com/kiosk404/mirror/internal/mirror/service/refresh"
	hoststat "github.com/likexian/host-stat-go"
)

const PluginName = "system"

const defaultInterval = 30 * time.Second

//go:embed assets
var assets embed.FS

// PluginDefinition returns the static metadata for the system plugin.
func PluginDefinition() plugin.Definition {
	return plugin.Definition{
		ID:          PluginName,
		Name:        "System",
		Description: "Host name, load and memory of the machine driving the mirror, refreshed every 30 seconds.",
	}
}

// Stats is a snapshot of the host.
type Stats struct {
	HostName string
	Release  string
	CPUCores uint64
	Load     float64
	MemTotal uint64
	MemFree  uint64
}

// Collector reads host statistics.
type Collector func() (Stats, error)

// System is the system plugin.
type System struct {
	interval time.Duration
	collect  Collector
}

// Factory creates the system plugin. Config keys: interval.
func Factory(args plugin.PluginArgs) (plugin.Plugin, error) {
	interval, err := args.Duration("interval", defaultInterval)
	if err != nil {
		return nil, err
	}
	return &System{interval: interval, collect: Collect}, nil
}

func (s *System) Name() string { return PluginName }

func (s *System) Assets() fs.FS {
	sub, _ := fs.Sub(assets, "assets")
	return sub
}

// Tasks implements plugin.TaskProvider.
func (s *System) Tasks() []plugin.TaskDefinition {
	return []plugin.TaskDefinition{{
		Name:     "refresh",
		Schedule: refresh.Every(s.interval),
		NoVotes:  true,
		Run:      s.refresh,
	}}
}

func (s *System) refresh(ctx context.Context, pc *plugin.Context) error {
	st, err := s.collect()
	if err != nil {
		return err
	}
	used := 0.0
	if st.MemTotal > 0 {
		used = float64(st.MemTotal-st.MemFree) / float64(st.MemTotal) * 100
	}
	return pc.WidgetUpdated(ctx, map[string]any{
		"host":      st.HostName,
		"release":   st.Release,
		"cores":     st.CPUCores,
		"load":      st.Load,
		"mem_total": st.MemTotal,
		"mem_used":  used,
		"connected": pc.IsConnected(),
	}, "")
}

// Collect reads the host statistics. Memory is in megabytes.
func Collect() (Stats, error) {
	host, err := hoststat.GetHostInfo()
	if err != nil {
		return Stats{}, fmt.Errorf("get host info: %w", err)
	}
	mem, err := hoststat.GetMemStat()
	if err != nil {
		return Stats{}, fmt.Errorf("get mem stat: %w", err)
	}
	cpu, err := hoststat.GetCPUInfo()
	if err != nil {
		return Stats{}, fmt.Errorf("get cpu info: %w", err)
	}
	load, err := hoststat.GetLoadStat()
	if err != nil {
		return Stats{}, fmt.Errorf("get load stat: %w", err)
	}
	return Stats{
		HostName: host.HostName,
		Release:  host.Release + " " + host.OSBit,
		CPUCores: cpu.CoreCount,
		Load:     load.LoadNow,
		MemTotal: mem.MemTotal,
		MemFree:  mem.MemFree,
	}, nil
}
