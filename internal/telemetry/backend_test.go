package telemetry

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogicalCores_UsesProcessAffinity(t *testing.T) {
	n, err := logicalCores(context.Background())
	require.NoError(t, err)
	assert.Equal(t, runtime.NumCPU(), n)
}

func TestHostBackend_LogicalCoresWired(t *testing.T) {
	b := HostBackend()
	require.NotNil(t, b.LogicalCores)
	n, err := b.LogicalCores(context.Background())
	require.NoError(t, err)
	assert.Equal(t, runtime.NumCPU(), n)
}
