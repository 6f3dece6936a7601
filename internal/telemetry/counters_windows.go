//go:build windows

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	wmi "github.com/StackExchange/wmi"
)

// wmiQueryTimeout bounds a single WMI query when the caller set no deadline.
const wmiQueryTimeout = 5 * time.Second

var errCounterClosed = errors.New("counter closed")

// Row types for the performance counter classes. Field names must match the
// WMI property names and each query selects exactly its row's fields.
type perfRawProcessor struct {
	Name                 string
	PercentProcessorTime uint64
	Timestamp_Sys100NS   uint64 //nolint:revive // WMI property name
}

type perfRawProcessTime struct {
	Name                 string
	PercentProcessorTime uint64
	Timestamp_Sys100NS   uint64 //nolint:revive // WMI property name
}

type perfProcessID struct {
	Name      string
	IDProcess uint32
}

type perfProcessName struct {
	Name string
}

type perfFormattedProcess struct {
	Name              string
	WorkingSetPrivate uint64
	IODataBytesPersec uint64
	ThreadCount       uint32
}

// wmiCounters reads performance counters from the WMI perf classes.
type wmiCounters struct{}

// Compile-time guard.
var _ CounterSource = wmiCounters{}

func newPlatformCounters() CounterSource {
	return wmiCounters{}
}

func (wmiCounters) OpenCoreCounter(_ context.Context, core int) (Counter, error) {
	if core < 0 {
		return nil, fmt.Errorf("invalid core index %d", core)
	}
	return &processorTimeCounter{instance: strconv.Itoa(core)}, nil
}

func (wmiCounters) ProcessInstances(ctx context.Context) ([]string, error) {
	rows, err := queryWMI[perfProcessName](ctx, "SELECT Name FROM Win32_PerfRawData_PerfProc_Process")
	if err != nil {
		return nil, fmt.Errorf("list process instances: %w", err)
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.Name)
	}
	return names, nil
}

func (wmiCounters) OpenProcessCounter(_ context.Context, instance string, kind ProcessCounter) (Counter, error) {
	switch kind {
	case CounterProcessorTime:
		return &processTimeCounter{instance: instance}, nil
	case CounterProcessID, CounterPrivateWorkingSet, CounterIODataBytes, CounterThreadCount:
		return &processValueCounter{instance: instance, kind: kind}, nil
	default:
		return nil, fmt.Errorf("unknown process counter %s", kind)
	}
}

// processorTimeCounter is "% Processor Time" for one logical core. The raw
// value counts idle time in 100ns ticks, so usage needs two samples.
type processorTimeCounter struct {
	instance  string
	prevIdle  uint64
	prevStamp uint64
	primed    bool
	closed    bool
}

func (c *processorTimeCounter) Read(ctx context.Context) (float64, error) {
	if c.closed {
		return 0, errCounterClosed
	}
	q := "SELECT Name, PercentProcessorTime, Timestamp_Sys100NS FROM Win32_PerfRawData_PerfOS_Processor WHERE Name = '" + wqlEscape(c.instance) + "'"
	rows, err := queryWMI[perfRawProcessor](ctx, q)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("processor instance %q not found", c.instance)
	}
	idle, stamp := rows[0].PercentProcessorTime, rows[0].Timestamp_Sys100NS
	prevIdle, prevStamp, primed := c.prevIdle, c.prevStamp, c.primed
	c.prevIdle, c.prevStamp, c.primed = idle, stamp, true

	if !primed || stamp <= prevStamp || idle < prevIdle {
		return 0, nil
	}
	idleShare := float64(idle-prevIdle) / float64(stamp-prevStamp)
	return clampPercent(100 * (1 - idleShare)), nil
}

func (c *processorTimeCounter) Close() error {
	c.closed = true
	return nil
}

// processTimeCounter is a process's "% Processor Time". The value is busy
// time across all cores, so it can exceed 100.
type processTimeCounter struct {
	instance  string
	prevBusy  uint64
	prevStamp uint64
	primed    bool
	closed    bool
}

func (c *processTimeCounter) Read(ctx context.Context) (float64, error) {
	if c.closed {
		return 0, errCounterClosed
	}
	q := "SELECT Name, PercentProcessorTime, Timestamp_Sys100NS FROM Win32_PerfRawData_PerfProc_Process WHERE Name = '" + wqlEscape(c.instance) + "'"
	rows, err := queryWMI[perfRawProcessTime](ctx, q)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("instance %q: %w", c.instance, ErrProcessGone)
	}
	busy, stamp := rows[0].PercentProcessorTime, rows[0].Timestamp_Sys100NS
	prevBusy, prevStamp, primed := c.prevBusy, c.prevStamp, c.primed
	c.prevBusy, c.prevStamp, c.primed = busy, stamp, true

	if !primed || stamp <= prevStamp || busy < prevBusy {
		return 0, nil
	}
	return 100 * float64(busy-prevBusy) / float64(stamp-prevStamp), nil
}

func (c *processTimeCounter) Close() error {
	c.closed = true
	return nil
}

// processValueCounter reads a counter that is meaningful on a single read.
type processValueCounter struct {
	instance string
	kind     ProcessCounter
	closed   bool
}

func (c *processValueCounter) Read(ctx context.Context) (float64, error) {
	if c.closed {
		return 0, errCounterClosed
	}
	where := " WHERE Name = '" + wqlEscape(c.instance) + "'"
	if c.kind == CounterProcessID {
		rows, err := queryWMI[perfProcessID](ctx, "SELECT Name, IDProcess FROM Win32_PerfRawData_PerfProc_Process"+where)
		if err != nil {
			return 0, err
		}
		if len(rows) == 0 {
			return 0, fmt.Errorf("instance %q: %w", c.instance, ErrProcessGone)
		}
		return float64(rows[0].IDProcess), nil
	}

	rows, err := queryWMI[perfFormattedProcess](ctx,
		"SELECT Name, WorkingSetPrivate, IODataBytesPersec, ThreadCount FROM Win32_PerfFormattedData_PerfProc_Process"+where)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("instance %q: %w", c.instance, ErrProcessGone)
	}
	switch c.kind {
	case CounterPrivateWorkingSet:
		return float64(rows[0].WorkingSetPrivate), nil
	case CounterIODataBytes:
		return float64(rows[0].IODataBytesPersec), nil
	default:
		return float64(rows[0].ThreadCount), nil
	}
}

func (c *processValueCounter) Close() error {
	c.closed = true
	return nil
}

// queryWMI runs q on its own goroutine so a hung WMI provider cannot outlive
// ctx. Rows are only handed back when the query finished.
func queryWMI[T any](ctx context.Context, q string) ([]T, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wmiQueryTimeout)
		defer cancel()
	}

	type result struct {
		rows []T
		err  error
	}
	done := make(chan result, 1)
	go func() {
		var rows []T
		err := wmi.Query(q, &rows)
		done <- result{rows: rows, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("wmi query: %w", r.err)
		}
		return r.rows, nil
	}
}

func wqlEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
