package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/HerbHall/hostsnap/internal/config"
	"github.com/HerbHall/hostsnap/internal/version"
)

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		runServe(args)
	case "snapshot":
		os.Exit(runSnapshot(args, os.Stdout, os.Stderr, nil))
	case "version":
		fmt.Println(version.Info())
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want serve, snapshot or version)\n", cmd)
		os.Exit(2)
	}
}

// newLogger builds the process logger; log.development switches to the
// human-readable development encoder.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.GetBool("log.development") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
