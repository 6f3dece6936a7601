//go:build !unix

package telemetry

func kernelRelease() string { return "" }
