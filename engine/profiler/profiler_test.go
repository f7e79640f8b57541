package profiler

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfiler_LogsOncePerInterval(t *testing.T) {
	var lines []string
	p := NewProfiler()
	p.logf = func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	assert.False(t, p.Tick(1))
	assert.Empty(t, lines)

	p.lastTime = time.Now().Add(-2 * time.Second)
	assert.True(t, p.Tick(7))
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "Layers: 7")
	assert.Contains(t, lines[0], "FPS: ")

	assert.False(t, p.Tick(8), "counter restarts after logging")
	assert.Len(t, lines, 1)
}
