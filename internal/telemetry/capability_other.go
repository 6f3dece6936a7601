//go:build !windows

package telemetry

// platformCapabilities denies counter sampling; only Windows exposes the
// per-core and per-process performance counters the samplers read.
type platformCapabilities struct{}

// Compile-time guard.
var _ Capabilities = platformCapabilities{}

func (platformCapabilities) SupportsPerCoreCPUSampling() bool { return false }
func (platformCapabilities) SupportsProcessSampling() bool    { return false }
