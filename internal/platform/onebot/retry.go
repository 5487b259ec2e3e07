package onebot

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy bounds how a failed attempt is repeated. It knows nothing about
// timers: the wait is delegated to Sleep so tests can observe it.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
	Retryable  func(error) bool
	Sleep      SleepFunc
}

// DefaultRetryPolicy retries transport failures and 5xx three times, one second apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		Delay:      DefaultRetryDelay,
		Retryable:  Retryable,
		Sleep:      ClockSleep(clockwork.NewRealClock()),
	}
}

// ClockSleep builds a SleepFunc on top of a clock.
func ClockSleep(clock clockwork.Clock) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		if d <= 0 {
			return ctx.Err()
		}
		timer := clock.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.Chan():
			return nil
		}
	}
}

// Do runs fn once plus up to MaxRetries more times while the error is retryable.
// The last error is returned when attempts are exhausted or ctx ends.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = Retryable
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = ClockSleep(clockwork.NewRealClock())
	}
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var err error
	for attempt := 0; ; attempt++ {
		err = fn(attempt)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || !retryable(err) {
			return err
		}
		if sleepErr := sleep(ctx, p.Delay); sleepErr != nil {
			return err
		}
	}
}
