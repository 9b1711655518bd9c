package common

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScissorsErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridged_scissor_errors_caught",
			Help: "Total number of unhandled errors caught",
		})
)

// Runnable is a long-running task. It returns when ctx is canceled or on an unrecoverable error.
type Runnable func(ctx context.Context) error

// RunWithScissors starts runnable in a goroutine. A returned error or a recovered panic is sent to errC, prefixed
// with name.
func RunWithScissors(ctx context.Context, errC chan error, name string, runnable Runnable) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				switch x := r.(type) {
				case error:
					errC <- fmt.Errorf("%s: %w", name, x)
				default:
					errC <- fmt.Errorf("%s: %v", name, x)
				}
				ScissorsErrors.Inc()
			}
		}()
		err := runnable(ctx)
		if err != nil {
			errC <- fmt.Errorf("%s: %w", name, err)
		}
	}()
}

// WrapWithScissors converts panics raised by runnable into returned errors.
func WrapWithScissors(runnable Runnable) Runnable {
	return func(ctx context.Context) (result error) {
		defer func() {
			if r := recover(); r != nil {
				switch x := r.(type) {
				case error:
					result = x
				default:
					result = fmt.Errorf("%v", x)
				}
				ScissorsErrors.Inc()
			}
		}()

		return runnable(ctx)
	}
}
