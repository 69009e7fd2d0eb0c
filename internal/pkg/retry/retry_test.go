package retry

import (
	"testing"
	"time"

	"bitbucket.org/airenas/meetgo/internal/pkg/llm"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func initTest(t *testing.T) *[]time.Duration {
	sleeps := make([]time.Duration, 0)
	sleepFunc = func(d time.Duration) {
		sleeps = append(sleeps, d)
	}
	t.Cleanup(func() { sleepFunc = time.Sleep })
	return &sleeps
}

func TestDo_OK(t *testing.T) {
	initTest(t)
	calls := 0
	err := Do(func() error {
		calls++
		return nil
	}, 3)
	assert.Nil(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesAndFails(t *testing.T) {
	sleeps := initTest(t)
	calls := 0
	err := Do(func() error {
		calls++
		return errors.New("olia")
	}, 3)
	assert.NotNil(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, len(*sleeps))
}

func TestDo_RecoversOnRetry(t *testing.T) {
	initTest(t)
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return errors.New("olia")
		}
		return nil
	}, 5)
	assert.Nil(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_DelayGrows(t *testing.T) {
	sleeps := initTest(t)
	Do(func() error { return errors.New("olia") }, 4)
	assert.Equal(t, 3, len(*sleeps))
	// randomized around 1s, 2s, 4s
	assert.True(t, (*sleeps)[0] < (*sleeps)[2])
	assert.True(t, (*sleeps)[2] <= maxDelay)
}

func TestDo_PrefersRetryAfter(t *testing.T) {
	sleeps := initTest(t)
	Do(func() error {
		return &llm.TooManyRequestsErr{RetryAfter: 7 * time.Second}
	}, 2)
	assert.Equal(t, 1, len(*sleeps))
	assert.Equal(t, 7*time.Second, (*sleeps)[0])
}

func TestDo_CapsRetryAfter(t *testing.T) {
	sleeps := initTest(t)
	Do(func() error {
		return &llm.TooManyRequestsErr{RetryAfter: 10 * time.Minute}
	}, 2)
	assert.Equal(t, 1, len(*sleeps))
	assert.Equal(t, maxDelay, (*sleeps)[0])
}

func TestDo_Permanent(t *testing.T) {
	sleeps := initTest(t)
	calls := 0
	errIn := errors.New("olia")
	err := Do(func() error {
		calls++
		return Permanent(errIn)
	}, 5)
	assert.Equal(t, errIn, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, len(*sleeps))
}
