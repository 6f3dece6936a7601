package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HerbHall/hostsnap/internal/telemetry"
	"github.com/HerbHall/hostsnap/internal/testutil"
)

func fakeBackend() *telemetry.Backend {
	h := &testutil.FakeHost{
		Cores:      4,
		CPUInfo:    &telemetry.CPUDescriptor{Name: "Fake CPU", Usage: 12},
		MemoryInfo: &telemetry.MemoryStatus{TotalPhysical: 8 << 30, AvailablePhysical: 6 << 30},
		OSInfo:     &telemetry.OSDescriptor{Name: "linux", Version: "6.1"},
	}
	b := h.Backend()
	return &b
}

func runTestSnapshot(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Chdir(t.TempDir())
	var stdout, stderr bytes.Buffer
	code := runSnapshot(args, &stdout, &stderr, fakeBackend())
	return code, stdout.String(), stderr.String()
}

func TestSnapshotJSON(t *testing.T) {
	code, out, errOut := runTestSnapshot(t, "-format", "json")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}

	var snap telemetry.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("stdout is not a snapshot: %v\n%s", err, out)
	}
	if snap.CPU == nil || snap.CPU.CoreCount != 4 {
		t.Errorf("cpu = %+v, want 4 cores", snap.CPU)
	}
	if snap.Memory == nil || snap.Memory.UsedPhysical != 2<<30 {
		t.Errorf("memory = %+v, want 2GiB used", snap.Memory)
	}
	if !strings.Contains(snap.ProcessError, "unsupported platform") {
		t.Errorf("process_error = %q, want unsupported platform", snap.ProcessError)
	}
}

func TestSnapshotOnly(t *testing.T) {
	code, out, errOut := runTestSnapshot(t, "-format", "json", "-only", "system")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["cpu"]; ok {
		t.Error("cpu present with -only system")
	}
	if _, ok := raw["system"]; !ok {
		t.Error("system missing with -only system")
	}
}

func TestSnapshotTable(t *testing.T) {
	code, out, errOut := runTestSnapshot(t, "-only", "cpu,system")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	if !strings.Contains(out, "Fake CPU") || !strings.Contains(out, "linux 6.1") {
		t.Errorf("table output missing values:\n%s", out)
	}
}

func TestSnapshotBadArguments(t *testing.T) {
	tests := [][]string{
		{"-format", "xml"},
		{"-only", "disk"},
		{"-top", "-3"},
		{"-nope"},
	}
	for _, args := range tests {
		code, _, _ := runTestSnapshot(t, args...)
		if code != 2 {
			t.Errorf("runSnapshot(%v) = %d, want 2", args, code)
		}
	}
}

func TestSnapshotInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hostsnap.yaml")
	if err := os.WriteFile(path, []byte("plugins:\n  hostmetrics:\n    core_concurrency: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	code, _, errOut := runTestSnapshot(t, "-config", path)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut, "core_concurrency") {
		t.Errorf("stderr = %q, want it to name core_concurrency", errOut)
	}
}
