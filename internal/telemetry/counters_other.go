//go:build !windows

package telemetry

import "context"

// unsupportedCounters refuses every counter. The capability gate keeps the
// samplers from reaching it on these hosts.
type unsupportedCounters struct{}

// Compile-time guard.
var _ CounterSource = unsupportedCounters{}

func newPlatformCounters() CounterSource {
	return unsupportedCounters{}
}

func (unsupportedCounters) OpenCoreCounter(context.Context, int) (Counter, error) {
	return nil, newUnsupportedPlatformError("per-core cpu counters")
}

func (unsupportedCounters) ProcessInstances(context.Context) ([]string, error) {
	return nil, newUnsupportedPlatformError("process counters")
}

func (unsupportedCounters) OpenProcessCounter(context.Context, string, ProcessCounter) (Counter, error) {
	return nil, newUnsupportedPlatformError("process counters")
}
