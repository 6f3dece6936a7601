package telemetry

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrUnsupportedPlatform is matched by errors returned when the host cannot
// provide the counters an operation needs.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// ErrProcessGone reports that a process exited between enumeration and read.
var ErrProcessGone = errors.New("process no longer running")

// UnsupportedPlatformError names the operation and OS family that were refused.
type UnsupportedPlatformError struct {
	Operation string
	OS        string
}

func newUnsupportedPlatformError(operation string) *UnsupportedPlatformError {
	return &UnsupportedPlatformError{Operation: operation, OS: runtime.GOOS}
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("%s: %s is not available on %s", ErrUnsupportedPlatform, e.Operation, e.OS)
}

// Is reports whether target is ErrUnsupportedPlatform.
func (e *UnsupportedPlatformError) Is(target error) bool {
	return target == ErrUnsupportedPlatform
}
