package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/HerbHall/hostsnap/internal/config"
	"github.com/HerbHall/hostsnap/internal/hostmetrics"
	"github.com/HerbHall/hostsnap/internal/render"
	"github.com/HerbHall/hostsnap/internal/telemetry"
)

// runSnapshot takes one snapshot and prints it. A nil backend reads the
// local host. It returns the process exit code.
func runSnapshot(args []string, stdout, stderr io.Writer, backend *telemetry.Backend) int {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	format := fs.String("format", "table", "output format: json, yaml or table")
	only := fs.String("only", "", "comma-separated metric kinds: cpu, memory, system, processes (default all)")
	top := fs.Int("top", 0, "keep only the N busiest processes (0 keeps all)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	f, err := render.ParseFormat(*format)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	kinds, err := telemetry.ParseKinds(*only)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if *top < 0 {
		fmt.Fprintln(stderr, "-top must not be negative")
		return 2
	}

	v, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	cfg := config.New(v)
	settings, err := hostmetrics.LoadSettings(cfg.Sub("plugins." + hostmetrics.Name).Viper())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	// Diagnostics go to stderr so stdout stays machine-readable.
	logger := zap.NewNop()
	if cfg.GetBool("log.development") {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
		}
	}
	defer func() { _ = logger.Sync() }()

	b := telemetry.HostBackend()
	if backend != nil {
		b = *backend
	}
	svc := hostmetrics.NewService(settings, b, logger, nil, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snap, err := svc.Snapshot(ctx, kinds...)
	if err != nil {
		fmt.Fprintf(stderr, "snapshot failed: %v\n", err)
		return 1
	}
	snap.Processes = hostmetrics.Top(snap.Processes, *top)

	if err := render.NewFormatter(f, stdout).Render(snap); err != nil {
		fmt.Fprintf(stderr, "render: %v\n", err)
		return 1
	}
	return 0
}
