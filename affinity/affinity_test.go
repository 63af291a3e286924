package affinity

import (
	"runtime"
	"testing"

	"github.com/momentics/hioload-sga/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPinRejectsBadCPU(t *testing.T) {
	assert.ErrorIs(t, Pin(-1), api.ErrInvalidArgument)
	if runtime.GOOS == "linux" {
		assert.ErrorIs(t, Pin(1<<20), api.ErrInvalidArgument)
	}
}

func TestPinCurrentCPU(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux only")
	}
	allowed, err := Current()
	require.NoError(t, err)
	require.NotEmpty(t, allowed)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Leave the thread locked so the runtime discards it with its narrowed mask.
		if !assert.NoError(t, Pin(allowed[0])) {
			return
		}
		cpus, err := Current()
		assert.NoError(t, err)
		assert.Equal(t, []int{allowed[0]}, cpus)
	}()
	<-done
}
