package retry

import (
	"time"

	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/llm"
	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
)

var (
	//baseDelay doubles each attempt up to maxDelay
	baseDelay = time.Second
	maxDelay  = 60 * time.Second

	sleepFunc = time.Sleep
)

//Permanent marks err as not retryable
func Permanent(err error) error {
	return backoff.Permanent(err)
}

//Do invokes op up to maxAttempts times.
//Waits exponentially increasing delay between attempts.
//A server provided retry-after duration overrides the computed delay, still capped.
//Returns the last error after exhaustion, it is up to the caller to apply a fallback
func Do(op func() error, maxAttempts int) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	b := newBackOff()
	var err error
	for i := 0; i < maxAttempts; i++ {
		err = op()
		if err == nil {
			return nil
		}
		if pErr, ok := err.(*backoff.PermanentError); ok {
			return pErr.Err
		}
		if i == maxAttempts-1 {
			break
		}
		d := b.NextBackOff()
		if ra, ok := llm.RetryAfter(err); ok {
			d = ra
			if d > maxDelay {
				d = maxDelay
			}
		}
		cmdapp.Log.Infof("Attempt %d/%d failed: %s. Waiting %v", i+1, maxAttempts, err.Error(), d)
		sleepFunc(d)
	}
	return errors.Wrapf(err, "Failed after %d attempt(s)", maxAttempts)
}

func newBackOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     baseDelay,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          2,
		MaxInterval:         maxDelay,
		MaxElapsedTime:      0,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}
