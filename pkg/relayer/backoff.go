package relayer

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	firstRestartMinWait = 1 * time.Second
	maxRestartWait      = 5 * time.Minute
)

// newRestartBackOff never gives up: a crashed chain loop is restarted for as long as the relayer runs.
func newRestartBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = firstRestartMinWait
	bo.MaxInterval = maxRestartWait
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}
