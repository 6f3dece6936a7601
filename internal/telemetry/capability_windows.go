//go:build windows

package telemetry

// platformCapabilities allows both counter families on Windows.
type platformCapabilities struct{}

// Compile-time guard.
var _ Capabilities = platformCapabilities{}

func (platformCapabilities) SupportsPerCoreCPUSampling() bool { return true }
func (platformCapabilities) SupportsProcessSampling() bool    { return true }
