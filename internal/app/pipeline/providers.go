package pipeline

import (
	"strings"

	"bitbucket.org/airenas/meetgo/internal/pkg/cmdapp"
	"bitbucket.org/airenas/meetgo/internal/pkg/llm"
	"bitbucket.org/airenas/meetgo/internal/pkg/retry"
	"github.com/pkg/errors"
)

// completeWithFallback walks the provider chain in priority order.
// Each provider gets a bounded retry budget, the first usable answer wins.
// validate lets the caller treat malformed answers as transient failures
func completeWithFallback(ch *llm.Chain, prompt string, maxTokens, attempts int,
	validate func(string) error) (string, error) {
	var lastErr error
	for _, p := range ch.Providers() {
		var text string
		err := retry.Do(func() error {
			res, err := p.Complete(prompt, maxTokens)
			if err != nil {
				return err
			}
			text = cleanJSONResponse(res.Text)
			if validate != nil {
				if err := validate(text); err != nil {
					return err
				}
			}
			return nil
		}, attempts)
		if err == nil {
			return text, nil
		}
		lastErr = err
		cmdapp.Log.Warnf("Provider %s exhausted: %s", p.Name(), err.Error())
	}
	return "", errors.Wrap(lastErr, "All providers failed")
}

// cleanJSONResponse drops markdown code fences around a JSON answer
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	return strings.TrimSpace(s)
}

// looksTruncated reports a JSON answer cut short by a token limit
func looksTruncated(s string) bool {
	return !strings.HasSuffix(s, "]") && !strings.HasSuffix(s, "}")
}
