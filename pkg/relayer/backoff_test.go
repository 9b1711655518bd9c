package relayer

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestartBackOff(t *testing.T) {
	bo, ok := newRestartBackOff().(*backoff.ExponentialBackOff)
	require.True(t, ok)
	assert.Equal(t, maxRestartWait, bo.MaxInterval)
	assert.Equal(t, time.Duration(0), bo.MaxElapsedTime)

	// randomization spreads each interval by at most half of it
	upper := func(d time.Duration) time.Duration { return d + d/2 + 1 }

	first := bo.NextBackOff()
	assert.GreaterOrEqual(t, first, firstRestartMinWait/2)
	assert.LessOrEqual(t, first, upper(firstRestartMinWait))

	var d time.Duration
	for i := 0; i < 40; i++ {
		d = bo.NextBackOff()
		require.NotEqual(t, backoff.Stop, d)
		assert.LessOrEqual(t, d, upper(maxRestartWait))
	}
	assert.GreaterOrEqual(t, d, maxRestartWait/2)

	bo.Reset()
	assert.LessOrEqual(t, bo.NextBackOff(), upper(firstRestartMinWait))
}
