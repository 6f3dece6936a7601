package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HerbHall/hostsnap/internal/telemetry"
)

func TestLogger_NotNil(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestFakeHost_PrimedCounter(t *testing.T) {
	h := &FakeHost{Cores: 1, CoreReadings: []float64{42}}
	c, err := h.OpenCoreCounter(context.Background(), 0)
	if err != nil {
		t.Fatalf("OpenCoreCounter: %v", err)
	}
	first, _ := c.Read(context.Background())
	second, _ := c.Read(context.Background())
	if first != PrimingGarbage {
		t.Errorf("first read = %v, want %v", first, PrimingGarbage)
	}
	if second != 42 {
		t.Errorf("second read = %v, want 42", second)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err == nil {
		t.Error("expected error on double close")
	}
	if h.Opened() != 1 || h.Closed() != 1 {
		t.Errorf("opened/closed = %d/%d, want 1/1", h.Opened(), h.Closed())
	}
}

func TestFakeHost_ResolveExited(t *testing.T) {
	h := &FakeHost{Processes: []FakeProcess{{Instance: "svc", PID: 10, Exited: true}}}
	if _, err := h.Resolve(context.Background(), 10); !errors.Is(err, telemetry.ErrProcessGone) {
		t.Errorf("Resolve err = %v, want ErrProcessGone", err)
	}
	if _, err := h.Resolve(context.Background(), 99); !errors.Is(err, telemetry.ErrProcessGone) {
		t.Errorf("Resolve unknown pid err = %v, want ErrProcessGone", err)
	}
}

func TestWaitRecorder(t *testing.T) {
	var w WaitRecorder
	_ = w.Wait(context.Background(), time.Second)
	_ = w.Wait(context.Background(), 2*time.Second)

	got := w.Waits()
	if len(got) != 2 || got[0] != time.Second || got[1] != 2*time.Second {
		t.Errorf("Waits() = %v, want [1s 2s]", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Wait(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait on cancelled ctx = %v, want context.Canceled", err)
	}
}
