package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Kind names one of the collection operations.
type Kind string

const (
	KindCPU       Kind = "cpu"
	KindMemory    Kind = "memory"
	KindSystem    Kind = "system"
	KindProcesses Kind = "processes"
)

// AllKinds lists every operation in display order.
var AllKinds = []Kind{KindCPU, KindMemory, KindSystem, KindProcesses}

// ParseKinds parses a comma-separated list such as "cpu,memory".
// An empty string selects all kinds.
func ParseKinds(s string) ([]Kind, error) {
	if strings.TrimSpace(s) == "" {
		return AllKinds, nil
	}
	var kinds []Kind
	seen := make(map[Kind]bool)
	for _, part := range strings.Split(s, ",") {
		k := Kind(strings.ToLower(strings.TrimSpace(part)))
		switch k {
		case KindCPU, KindMemory, KindSystem, KindProcesses:
		default:
			return nil, fmt.Errorf("unknown metric kind %q", part)
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

// Service is the entry point for callers. Each Get method is independent of
// the others and may run concurrently with them.
type Service struct {
	sampler *Sampler
	now     func() time.Time
}

// NewService wraps sampler.
func NewService(sampler *Sampler) *Service {
	return &Service{sampler: sampler, now: time.Now}
}

// Capabilities returns the capability gate the service samples under.
func (s *Service) Capabilities() Capabilities {
	return s.sampler.backend.Capabilities
}

// GetCPUMetrics returns aggregate and per-core CPU usage.
func (s *Service) GetCPUMetrics(ctx context.Context) (CPUMetrics, error) {
	return s.sampler.SampleCPU(ctx)
}

// GetMemoryMetrics returns physical memory usage.
func (s *Service) GetMemoryMetrics(ctx context.Context) MemoryMetrics {
	return s.sampler.SampleMemory(ctx)
}

// GetSystemInfo returns the OS description.
func (s *Service) GetSystemInfo(ctx context.Context) (SystemInfo, error) {
	return s.sampler.SampleSystemInfo(ctx)
}

// GetProcessMetrics returns ranked per-process usage, or an error matching
// ErrUnsupportedPlatform when the host has no process counters.
func (s *Service) GetProcessMetrics(ctx context.Context) ([]ProcessMetrics, error) {
	return s.sampler.SampleProcesses(ctx)
}

// Snapshot runs the requested operations concurrently, one goroutine each.
// An unsupported process sampler is reported in ProcessError instead of
// failing the snapshot. No kinds means all of them.
func (s *Service) Snapshot(ctx context.Context, kinds ...Kind) (*Snapshot, error) {
	if len(kinds) == 0 {
		kinds = AllKinds
	}
	snap := &Snapshot{SampledAt: s.now().UTC()}
	g, gctx := errgroup.WithContext(ctx)
	for _, k := range kinds {
		switch k {
		case KindCPU:
			g.Go(func() error {
				m, err := s.GetCPUMetrics(gctx)
				if err != nil {
					return fmt.Errorf("cpu: %w", err)
				}
				snap.CPU = &m
				return nil
			})
		case KindMemory:
			g.Go(func() error {
				m := s.GetMemoryMetrics(gctx)
				snap.Memory = &m
				return nil
			})
		case KindSystem:
			g.Go(func() error {
				m, err := s.GetSystemInfo(gctx)
				if err != nil {
					return fmt.Errorf("system: %w", err)
				}
				snap.System = &m
				return nil
			})
		case KindProcesses:
			g.Go(func() error {
				procs, err := s.GetProcessMetrics(gctx)
				if errors.Is(err, ErrUnsupportedPlatform) {
					snap.ProcessError = err.Error()
					return nil
				}
				if err != nil {
					return fmt.Errorf("processes: %w", err)
				}
				snap.Processes = procs
				return nil
			})
		default:
			return nil, fmt.Errorf("unknown metric kind %q", k)
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}
