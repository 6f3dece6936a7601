package telemetry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Process noise floor: entries at or below both values are dropped.
const (
	minProcessCPUPercent = 0.1
	minProcessMemoryMB   = 5.0
)

const (
	bytesPerMB = 1024 * 1024
	bytesPerKB = 1024
)

type skipReason string

const (
	skipPIDZero       skipReason = "pid_zero"
	skipExited        skipReason = "exited"
	skipResolveFailed skipReason = "resolve_failed"
	skipCounterFailed skipReason = "counter_failed"
	skipBelowFloor    skipReason = "below_noise_floor"
)

// Sampler takes one-shot readings from a Backend. It holds no state between
// calls and is safe for concurrent use.
type Sampler struct {
	backend         Backend
	logger          *zap.Logger
	metrics         *Metrics
	wait            Waiter
	coreConcurrency int
	processSettle   time.Duration
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *Metrics) Option {
	return func(s *Sampler) { s.metrics = m }
}

// WithWaiter replaces the settle wait, mainly so tests do not sleep.
func WithWaiter(w Waiter) Option {
	return func(s *Sampler) {
		if w != nil {
			s.wait = w
		}
	}
}

// WithCoreConcurrency sets how many cores are sampled at once. The default
// of 1 samples cores sequentially; higher values shorten the call to about
// SettleInterval * ceil(cores/n) at the cost of concurrent counter queries.
func WithCoreConcurrency(n int) Option {
	return func(s *Sampler) {
		if n > 0 {
			s.coreConcurrency = n
		}
	}
}

// WithProcessSettleInterval sets the wait between the priming and the
// authoritative read of each process CPU counter. The default is none.
func WithProcessSettleInterval(d time.Duration) Option {
	return func(s *Sampler) {
		if d >= 0 {
			s.processSettle = d
		}
	}
}

// NewSampler creates a Sampler reading from backend.
func NewSampler(backend Backend, logger *zap.Logger, opts ...Option) *Sampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sampler{
		backend:         backend,
		logger:          logger,
		wait:            sleepContext,
		coreConcurrency: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SampleCPU reads the aggregate CPU descriptor and, when the host allows it,
// per-core utilization. Missing hardware data degrades to defaults; only a
// failure to read the logical core count or a done ctx is returned.
func (s *Sampler) SampleCPU(ctx context.Context) (CPUMetrics, error) {
	defer s.metrics.observe("cpu", time.Now())

	m := CPUMetrics{Name: Unknown, PerCoreUsage: []float64{}}
	desc, err := s.backend.Hardware.CPU(ctx)
	if err != nil || desc == nil {
		s.degraded("cpu_descriptor", err)
	} else {
		m.Usage = desc.Usage
		if desc.Name != "" {
			m.Name = desc.Name
		}
	}

	cores, err := s.backend.LogicalCores(ctx)
	if err != nil {
		return CPUMetrics{}, fmt.Errorf("logical core count: %w", err)
	}
	m.CoreCount = cores

	if !s.backend.Capabilities.SupportsPerCoreCPUSampling() {
		return m, nil
	}
	perCore, err := s.samplePerCore(ctx, cores)
	if err != nil {
		return CPUMetrics{}, err
	}
	m.PerCoreUsage = perCore
	return m, nil
}

// samplePerCore runs the primed read for every core, keeping core order.
// A core whose counter fails reports 0.
func (s *Sampler) samplePerCore(ctx context.Context, cores int) ([]float64, error) {
	usage := make([]float64, cores)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.coreConcurrency)
	for core := range cores {
		g.Go(func() error {
			open := func(ctx context.Context) (Counter, error) {
				return s.backend.Counters.OpenCoreCounter(ctx, core)
			}
			v, err := readPrimed(gctx, open, SettleInterval, s.wait)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.degraded("core_counter", err, zap.Int("core", core))
				return nil
			}
			usage[core] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("per-core sampling: %w", err)
	}
	return usage, nil
}

// SampleMemory reads physical memory. It never fails; a missing reading
// yields zeros.
func (s *Sampler) SampleMemory(ctx context.Context) MemoryMetrics {
	defer s.metrics.observe("memory", time.Now())

	st, err := s.backend.Hardware.Memory(ctx)
	if err != nil || st == nil {
		s.degraded("memory", err)
		return MemoryMetrics{}
	}
	m := MemoryMetrics{
		TotalPhysical:     st.TotalPhysical,
		AvailablePhysical: st.AvailablePhysical,
	}
	// Total and available come from separate reads and can race.
	if st.TotalPhysical >= st.AvailablePhysical {
		m.UsedPhysical = st.TotalPhysical - st.AvailablePhysical
	}
	return m
}

// SampleSystemInfo reads the OS name and version.
func (s *Sampler) SampleSystemInfo(ctx context.Context) (SystemInfo, error) {
	defer s.metrics.observe("system", time.Now())

	d, err := s.backend.Hardware.OS(ctx)
	if err != nil {
		return SystemInfo{}, fmt.Errorf("read os identity: %w", err)
	}
	if d == nil {
		s.degraded("os_identity", nil)
		return SystemInfo{OSDescription: Unknown}, nil
	}
	return SystemInfo{OSDescription: strings.TrimSpace(d.Name + " " + d.Version)}, nil
}

// SampleProcesses enumerates process instances, reads their counters and
// returns the entries above the noise floor ordered by CPU usage, highest
// first. Instances that vanish or whose counters fail are skipped.
func (s *Sampler) SampleProcesses(ctx context.Context) ([]ProcessMetrics, error) {
	if !s.backend.Capabilities.SupportsProcessSampling() {
		return nil, newUnsupportedPlatformError("process sampling")
	}
	defer s.metrics.observe("processes", time.Now())

	cores, err := s.backend.LogicalCores(ctx)
	if err != nil {
		return nil, fmt.Errorf("logical core count: %w", err)
	}
	instances, err := s.backend.Counters.ProcessInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate process instances: %w", err)
	}

	result := []ProcessMetrics{}
	for _, instance := range instances {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isAggregateInstance(instance) {
			continue
		}
		if pm, ok := s.sampleProcess(ctx, instance, cores); ok {
			result = append(result, pm)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CPUUsagePercent > result[j].CPUUsagePercent
	})
	s.logger.Debug("process sample complete",
		zap.Int("instances", len(instances)),
		zap.Int("kept", len(result)),
	)
	return result, nil
}

func (s *Sampler) sampleProcess(ctx context.Context, instance string, cores int) (ProcessMetrics, bool) {
	rawPID, err := readOnce(ctx, s.processOpener(instance, CounterProcessID))
	if err != nil {
		return s.skip(instance, skipCounterFailed, err)
	}
	pid := int32(rawPID)
	if pid == 0 {
		return s.skip(instance, skipPIDZero, nil)
	}

	name, err := s.backend.Processes.Resolve(ctx, pid)
	if err != nil {
		return s.skip(instance, skipResolveFailed, err)
	}
	if name == "" {
		name = baseInstanceName(instance)
	}

	rawCPU, err := readPrimed(ctx, s.processOpener(instance, CounterProcessorTime), s.processSettle, s.wait)
	if err != nil {
		return s.skip(instance, skipCounterFailed, err)
	}
	rawMem, err := readOnce(ctx, s.processOpener(instance, CounterPrivateWorkingSet))
	if err != nil {
		return s.skip(instance, skipCounterFailed, err)
	}
	rawIO, err := readOnce(ctx, s.processOpener(instance, CounterIODataBytes))
	if err != nil {
		return s.skip(instance, skipCounterFailed, err)
	}
	rawThreads, err := readOnce(ctx, s.processOpener(instance, CounterThreadCount))
	if err != nil {
		return s.skip(instance, skipCounterFailed, err)
	}

	// The floor applies to the reported values, so round first.
	cpuPct := round1(rawCPU / float64(cores))
	memMB := round1(rawMem / bytesPerMB)
	if !(cpuPct > minProcessCPUPercent || memMB > minProcessMemoryMB) {
		s.metrics.skipped(skipBelowFloor)
		return ProcessMetrics{}, false
	}

	return ProcessMetrics{
		ProcessID:       pid,
		Name:            name,
		CPUUsagePercent: cpuPct,
		MemoryMB:        memMB,
		IOKBps:          round1(rawIO / bytesPerKB),
		ThreadCount:     int(rawThreads),
	}, true
}

func (s *Sampler) processOpener(instance string, kind ProcessCounter) OpenFunc {
	return func(ctx context.Context) (Counter, error) {
		return s.backend.Counters.OpenProcessCounter(ctx, instance, kind)
	}
}

func (s *Sampler) skip(instance string, reason skipReason, err error) (ProcessMetrics, bool) {
	if errors.Is(err, ErrProcessGone) {
		reason = skipExited
	}
	s.metrics.skipped(reason)
	s.logger.Debug("skipping process instance",
		zap.String("instance", instance),
		zap.String("reason", string(reason)),
		zap.Error(err),
	)
	return ProcessMetrics{}, false
}

func (s *Sampler) degraded(source string, err error, fields ...zap.Field) {
	s.metrics.degraded(source)
	fields = append(fields, zap.String("source", source), zap.Error(err))
	s.logger.Debug("no data from host, using defaults", fields...)
}

// isAggregateInstance reports the synthetic "Idle" and "_Total" instances.
func isAggregateInstance(instance string) bool {
	return strings.EqualFold(instance, "Idle") || strings.EqualFold(instance, "_Total")
}

// baseInstanceName strips the "#n" suffix the counter subsystem adds to
// tell apart processes sharing an executable name.
func baseInstanceName(instance string) string {
	i := strings.LastIndexByte(instance, '#')
	if i <= 0 || i == len(instance)-1 {
		return instance
	}
	for _, r := range instance[i+1:] {
		if r < '0' || r > '9' {
			return instance
		}
	}
	return instance[:i]
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
