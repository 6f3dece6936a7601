package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/HerbHall/hostsnap/internal/telemetry"
)

// PrimingGarbage is what fake counters return from their first read.
// A sampler that reports it has skipped the priming read.
const PrimingGarbage = -999.0

// FakeProcess scripts one process instance of a FakeHost.
type FakeProcess struct {
	Instance string
	PID      int32
	Name     string
	// Exited makes Resolve report the process as gone.
	Exited bool
	// CPU is the raw "% Processor Time", before core normalization.
	CPU           float64
	PrivateBytes  float64
	IOBytesPerSec float64
	Threads       float64
	// FailCounter makes opening the given counter fail.
	FailCounter map[telemetry.ProcessCounter]error
}

// FakeHost is a scripted telemetry backend. It counts every counter it
// opens and closes so tests can check that handles are released.
type FakeHost struct {
	PerCore         bool
	ProcessSampling bool

	CPUInfo    *telemetry.CPUDescriptor
	CPUErr     error
	MemoryInfo *telemetry.MemoryStatus
	MemoryErr  error
	OSInfo     *telemetry.OSDescriptor
	OSErr      error

	Cores    int
	CoresErr error

	// CoreReadings holds the authoritative reading per core.
	CoreReadings []float64
	CoreOpenErr  map[int]error

	Processes    []FakeProcess
	InstancesErr error

	mu     sync.Mutex
	opened int
	closed int
	cores  []int
}

// Compile-time guards.
var (
	_ telemetry.Capabilities    = (*FakeHost)(nil)
	_ telemetry.HardwareReader  = (*FakeHost)(nil)
	_ telemetry.CounterSource   = (*FakeHost)(nil)
	_ telemetry.ProcessResolver = (*FakeHost)(nil)
)

// Backend returns a telemetry.Backend served entirely by h.
func (h *FakeHost) Backend() telemetry.Backend {
	return telemetry.Backend{
		Capabilities: h,
		Hardware:     h,
		Counters:     h,
		Processes:    h,
		LogicalCores: h.LogicalCoreCount,
	}
}

func (h *FakeHost) SupportsPerCoreCPUSampling() bool { return h.PerCore }
func (h *FakeHost) SupportsProcessSampling() bool    { return h.ProcessSampling }

func (h *FakeHost) CPU(context.Context) (*telemetry.CPUDescriptor, error) {
	return h.CPUInfo, h.CPUErr
}

func (h *FakeHost) Memory(context.Context) (*telemetry.MemoryStatus, error) {
	return h.MemoryInfo, h.MemoryErr
}

func (h *FakeHost) OS(context.Context) (*telemetry.OSDescriptor, error) {
	return h.OSInfo, h.OSErr
}

// LogicalCoreCount reports Cores, or CoresErr.
func (h *FakeHost) LogicalCoreCount(context.Context) (int, error) {
	if h.CoresErr != nil {
		return 0, h.CoresErr
	}
	return h.Cores, nil
}

func (h *FakeHost) OpenCoreCounter(_ context.Context, core int) (telemetry.Counter, error) {
	if err := h.CoreOpenErr[core]; err != nil {
		return nil, err
	}
	var v float64
	if core < len(h.CoreReadings) {
		v = h.CoreReadings[core]
	}
	h.mu.Lock()
	h.opened++
	h.cores = append(h.cores, core)
	h.mu.Unlock()
	return &fakeCounter{host: h, primed: true, value: v}, nil
}

func (h *FakeHost) ProcessInstances(context.Context) ([]string, error) {
	if h.InstancesErr != nil {
		return nil, h.InstancesErr
	}
	names := make([]string, 0, len(h.Processes))
	for _, p := range h.Processes {
		names = append(names, p.Instance)
	}
	return names, nil
}

func (h *FakeHost) OpenProcessCounter(_ context.Context, instance string, kind telemetry.ProcessCounter) (telemetry.Counter, error) {
	p, ok := h.process(instance)
	if !ok {
		return nil, telemetry.ErrProcessGone
	}
	if err := p.FailCounter[kind]; err != nil {
		return nil, err
	}
	c := &fakeCounter{host: h}
	switch kind {
	case telemetry.CounterProcessID:
		c.value = float64(p.PID)
	case telemetry.CounterProcessorTime:
		c.primed = true
		c.value = p.CPU
	case telemetry.CounterPrivateWorkingSet:
		c.value = p.PrivateBytes
	case telemetry.CounterIODataBytes:
		c.value = p.IOBytesPerSec
	case telemetry.CounterThreadCount:
		c.value = p.Threads
	default:
		return nil, errors.New("unknown counter")
	}
	h.mu.Lock()
	h.opened++
	h.mu.Unlock()
	return c, nil
}

func (h *FakeHost) Resolve(_ context.Context, pid int32) (string, error) {
	for _, p := range h.Processes {
		if p.PID == pid {
			if p.Exited {
				return "", telemetry.ErrProcessGone
			}
			return p.Name, nil
		}
	}
	return "", telemetry.ErrProcessGone
}

// Opened returns how many counters have been opened.
func (h *FakeHost) Opened() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opened
}

// Closed returns how many counters have been closed.
func (h *FakeHost) Closed() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// CoresOpened returns the core indexes in the order their counters opened.
func (h *FakeHost) CoresOpened() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]int, len(h.cores))
	copy(out, h.cores)
	return out
}

func (h *FakeHost) process(instance string) (FakeProcess, bool) {
	for _, p := range h.Processes {
		if p.Instance == instance {
			return p, true
		}
	}
	return FakeProcess{}, false
}

// fakeCounter returns PrimingGarbage on its first read when primed is set,
// then value.
type fakeCounter struct {
	host   *FakeHost
	primed bool
	value  float64
	reads  int
	closed bool
}

func (c *fakeCounter) Read(context.Context) (float64, error) {
	if c.closed {
		return 0, errors.New("read after close")
	}
	c.reads++
	if c.primed && c.reads == 1 {
		return PrimingGarbage, nil
	}
	return c.value, nil
}

func (c *fakeCounter) Close() error {
	if c.closed {
		return errors.New("double close")
	}
	c.closed = true
	c.host.mu.Lock()
	c.host.closed++
	c.host.mu.Unlock()
	return nil
}

// WaitRecorder is a telemetry.Waiter that records requested waits instead of
// sleeping.
type WaitRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

// Wait records d and returns ctx.Err().
func (w *WaitRecorder) Wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	w.waits = append(w.waits, d)
	w.mu.Unlock()
	return ctx.Err()
}

// Waits returns the recorded durations in call order.
func (w *WaitRecorder) Waits() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]time.Duration, len(w.waits))
	copy(out, w.waits)
	return out
}
