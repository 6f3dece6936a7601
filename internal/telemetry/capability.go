// Package telemetry collects point-in-time CPU, memory, OS identity and
// per-process resource usage for the local host.
package telemetry

// Capabilities reports which counter families the host exposes.
// Implementations must be cheap and side-effect free; samplers ask on every
// call instead of caching the answer.
type Capabilities interface {
	SupportsPerCoreCPUSampling() bool
	SupportsProcessSampling() bool
}

// HostCapabilities returns the capability gate for the running OS family.
func HostCapabilities() Capabilities {
	return platformCapabilities{}
}
