package llm

import (
	"fmt"
	"time"
)

//Result is a completion answer with token usage, if the provider reports one
type Result struct {
	Text       string
	UsedTokens int
}

//Provider is one LLM completion backend
type Provider interface {
	Complete(prompt string, maxTokens int) (*Result, error)
	Name() string
}

//TooManyRequestsErr indicates a rate limited call.
//RetryAfter carries server provided wait duration, zero if none was given
type TooManyRequestsErr struct {
	RetryAfter time.Duration
}

func (e *TooManyRequestsErr) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("Too many requests, retry after %v", e.RetryAfter)
	}
	return "Too many requests"
}

//RetryAfter extracts server provided wait duration from err chain
func RetryAfter(err error) (time.Duration, bool) {
	for err != nil {
		if rErr, ok := err.(*TooManyRequestsErr); ok {
			return rErr.RetryAfter, rErr.RetryAfter > 0
		}
		cErr, ok := err.(interface{ Unwrap() error })
		if !ok {
			return 0, false
		}
		err = cErr.Unwrap()
	}
	return 0, false
}
