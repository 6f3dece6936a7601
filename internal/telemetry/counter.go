package telemetry

import (
	"context"
	"fmt"
	"time"
)

// SettleInterval is the wait between a per-core counter's priming read and
// its authoritative read.
const SettleInterval = 100 * time.Millisecond

// Counter is an open handle on a single host performance counter.
// Rate-type counters compute their value from the previous read, so the
// first read after opening carries no information.
type Counter interface {
	Read(ctx context.Context) (float64, error)
	Close() error
}

// OpenFunc opens a counter. It is called immediately before the counter is
// read and the returned handle is closed as soon as reading is done.
type OpenFunc func(ctx context.Context) (Counter, error)

// Waiter blocks for d or until ctx is done.
type Waiter func(ctx context.Context, d time.Duration) error

// sleepContext is the default Waiter.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// readPrimed runs the two-phase protocol: open, discard the first read,
// wait settle, take the authoritative read, close. The counter is closed on
// every path once it has been opened.
func readPrimed(ctx context.Context, open OpenFunc, settle time.Duration, wait Waiter) (float64, error) {
	c, err := open(ctx)
	if err != nil {
		return 0, fmt.Errorf("open counter: %w", err)
	}
	defer func() { _ = c.Close() }()

	if _, err := c.Read(ctx); err != nil {
		return 0, fmt.Errorf("priming read: %w", err)
	}
	if err := wait(ctx, settle); err != nil {
		return 0, err
	}
	v, err := c.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("read counter: %w", err)
	}
	return v, nil
}

// readOnce opens a counter, reads it a single time and closes it.
func readOnce(ctx context.Context, open OpenFunc) (float64, error) {
	c, err := open(ctx)
	if err != nil {
		return 0, fmt.Errorf("open counter: %w", err)
	}
	defer func() { _ = c.Close() }()

	v, err := c.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("read counter: %w", err)
	}
	return v, nil
}
