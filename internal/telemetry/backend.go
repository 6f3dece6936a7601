package telemetry

import (
	"context"
	"fmt"
	"runtime"
)

// CPUDescriptor is the aggregate processor description from the hardware
// info subsystem.
type CPUDescriptor struct {
	Name  string
	Usage float64
}

// MemoryStatus is total and available physical memory in bytes.
type MemoryStatus struct {
	TotalPhysical     uint64
	AvailablePhysical uint64
}

// OSDescriptor names the operating system and its version.
type OSDescriptor struct {
	Name    string
	Version string
}

// HardwareReader reads host-wide hardware facts. A nil descriptor with a nil
// error means the host reported nothing.
type HardwareReader interface {
	CPU(ctx context.Context) (*CPUDescriptor, error)
	Memory(ctx context.Context) (*MemoryStatus, error)
	OS(ctx context.Context) (*OSDescriptor, error)
}

// ProcessCounter selects one of the per-process counters.
type ProcessCounter int

const (
	CounterProcessID ProcessCounter = iota
	CounterProcessorTime
	CounterPrivateWorkingSet
	CounterIODataBytes
	CounterThreadCount
)

func (k ProcessCounter) String() string {
	switch k {
	case CounterProcessID:
		return "id_process"
	case CounterProcessorTime:
		return "processor_time"
	case CounterPrivateWorkingSet:
		return "working_set_private"
	case CounterIODataBytes:
		return "io_data_bytes"
	case CounterThreadCount:
		return "thread_count"
	default:
		return fmt.Sprintf("process_counter(%d)", int(k))
	}
}

// CounterSource opens performance counters. Instances are the names the
// counter subsystem uses for processes, not pids.
type CounterSource interface {
	OpenCoreCounter(ctx context.Context, core int) (Counter, error)
	ProcessInstances(ctx context.Context) ([]string, error)
	OpenProcessCounter(ctx context.Context, instance string, kind ProcessCounter) (Counter, error)
}

// ProcessResolver maps a pid to a live process name. It returns an error
// matching ErrProcessGone when the pid no longer exists.
type ProcessResolver interface {
	Resolve(ctx context.Context, pid int32) (string, error)
}

// Backend bundles the host collaborators a Sampler reads from.
type Backend struct {
	Capabilities Capabilities
	Hardware     HardwareReader
	Counters     CounterSource
	Processes    ProcessResolver
	// LogicalCores reports the logical processor count of the environment.
	LogicalCores func(ctx context.Context) (int, error)
}

// HostBackend returns the backend for the machine the process runs on.
func HostBackend() Backend {
	return Backend{
		Capabilities: HostCapabilities(),
		Hardware:     gopsutilHardware{},
		Counters:     newPlatformCounters(),
		Processes:    gopsutilProcesses{},
		LogicalCores: logicalCores,
	}
}

// logicalCores reports the processors available to this process, which
// honours CPU affinity and cpuset limits, rather than the host total.
func logicalCores(context.Context) (int, error) {
	n := runtime.NumCPU()
	if n <= 0 {
		return 0, fmt.Errorf("invalid logical core count %d", n)
	}
	return n, nil
}
