package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.observe("cpu", time.Now())
	m.degraded("memory")
	m.skipped(skipExited)
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.degraded("memory")
	m.degraded("memory")
	m.skipped(skipPIDZero)
	m.observe("cpu", time.Now())

	if got := testutil.ToFloat64(m.degradedReads.WithLabelValues("memory")); got != 2 {
		t.Errorf("degraded_reads_total{source=memory} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.processSkips.WithLabelValues("pid_zero")); got != 1 {
		t.Errorf("process_skips_total{reason=pid_zero} = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.sampleDuration, "hostsnap_sample_duration_seconds"); n != 1 {
		t.Errorf("sample_duration_seconds series = %d, want 1", n)
	}
}

func TestMetrics_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	defer func() {
		if recover() == nil {
			t.Error("expected panic registering the same instruments twice")
		}
	}()
	NewMetrics(reg)
}

func TestMetrics_UnregisteredWithNilRegisterer(t *testing.T) {
	a := NewMetrics(nil)
	b := NewMetrics(nil)
	a.degraded("cpu_descriptor")
	b.degraded("cpu_descriptor")
	if got := testutil.ToFloat64(a.degradedReads.WithLabelValues("cpu_descriptor")); got != 1 {
		t.Errorf("degraded_reads_total = %v, want 1", got)
	}
}
