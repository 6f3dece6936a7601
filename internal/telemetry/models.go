package telemetry

import "time"

// Unknown is reported when the host exposes no CPU or OS descriptor.
const Unknown = "Unknown"

// CPUMetrics is a point-in-time view of processor identity and utilization.
type CPUMetrics struct {
	Usage     float64 `json:"usage" yaml:"usage"`
	Name      string  `json:"name" yaml:"name"`
	CoreCount int     `json:"core_count" yaml:"core_count"`
	// PerCoreUsage holds one entry per logical core, or none when the host
	// cannot sample individual cores.
	PerCoreUsage []float64 `json:"per_core_usage" yaml:"per_core_usage"`
}

// MemoryMetrics describes physical memory in bytes.
type MemoryMetrics struct {
	TotalPhysical     uint64 `json:"total_physical_bytes" yaml:"total_physical_bytes"`
	AvailablePhysical uint64 `json:"available_physical_bytes" yaml:"available_physical_bytes"`
	UsedPhysical      uint64 `json:"used_physical_bytes" yaml:"used_physical_bytes"`
}

// SystemInfo identifies the running operating system.
type SystemInfo struct {
	OSDescription string `json:"os_description" yaml:"os_description"`
}

// ProcessMetrics is the resource usage of a single live process.
// CPUUsagePercent is normalized by the logical core count.
type ProcessMetrics struct {
	ProcessID       int32   `json:"process_id" yaml:"process_id"`
	Name            string  `json:"name" yaml:"name"`
	CPUUsagePercent float64 `json:"cpu_usage_percent" yaml:"cpu_usage_percent"`
	MemoryMB        float64 `json:"memory_mb" yaml:"memory_mb"`
	IOKBps          float64 `json:"io_kbps" yaml:"io_kbps"`
	ThreadCount     int     `json:"thread_count" yaml:"thread_count"`
}

// Snapshot groups the results of several operations taken together.
// Members that were not requested are nil.
type Snapshot struct {
	CPU          *CPUMetrics      `json:"cpu,omitempty" yaml:"cpu,omitempty"`
	Memory       *MemoryMetrics   `json:"memory,omitempty" yaml:"memory,omitempty"`
	System       *SystemInfo      `json:"system,omitempty" yaml:"system,omitempty"`
	Processes    []ProcessMetrics `json:"processes,omitempty" yaml:"processes,omitempty"`
	ProcessError string           `json:"process_error,omitempty" yaml:"process_error,omitempty"`
	SampledAt    time.Time        `json:"sampled_at" yaml:"sampled_at"`
}
