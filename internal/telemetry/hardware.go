package telemetry

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// gopsutilHardware reads hardware facts through gopsutil.
type gopsutilHardware struct{}

// Compile-time guard.
var _ HardwareReader = gopsutilHardware{}

func (gopsutilHardware) CPU(ctx context.Context) (*CPUDescriptor, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, nil
	}
	d := &CPUDescriptor{Name: strings.TrimSpace(infos[0].ModelName)}
	// Interval 0 compares against the previous call, or boot on the first.
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		d.Usage = clampPercent(pct[0])
	}
	return d, nil
}

func (gopsutilHardware) Memory(ctx context.Context) (*MemoryStatus, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	if vm == nil {
		return nil, nil
	}
	return &MemoryStatus{TotalPhysical: vm.Total, AvailablePhysical: vm.Available}, nil
}

func (gopsutilHardware) OS(ctx context.Context) (*OSDescriptor, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, err
	}
	d := &OSDescriptor{Name: info.Platform, Version: info.PlatformVersion}
	if d.Name == "" {
		d.Name = info.OS
	}
	if d.Version == "" {
		d.Version = kernelRelease()
	}
	return d, nil
}

// gopsutilProcesses resolves pids against the live process table.
type gopsutilProcesses struct{}

// Compile-time guard.
var _ ProcessResolver = gopsutilProcesses{}

func (gopsutilProcesses) Resolve(ctx context.Context, pid int32) (string, error) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return "", ErrProcessGone
		}
		return "", err
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		// Alive but unreadable (access denied); the caller falls back to
		// the counter instance name.
		return "", nil
	}
	return trimExecutableSuffix(name), nil
}

func trimExecutableSuffix(name string) string {
	if len(name) > 4 && strings.EqualFold(name[len(name)-4:], ".exe") {
		return name[:len(name)-4]
	}
	return name
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
