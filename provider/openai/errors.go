package openai

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/openai/openai-go"
	ai "github.com/spetersoncode/reins"
)

// wrapError categorizes an OpenAI SDK error so the retry layer can tell
// rate limits and server errors from bad requests.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		// Likely a network error; the retry heuristics handle those.
		return err
	}

	code := apiErr.StatusCode
	retryAfter := parseRetryAfter(apiErr.Response)

	msg := err.Error()
	if retryAfter > 0 {
		return ai.NewTransientErrorWithRetry(msg, code, retryAfter, err)
	}

	switch categorizeStatusCode(code) {
	case ai.ErrorTransient:
		return ai.NewTransientError(msg, code, err)
	case ai.ErrorUserInput:
		return ai.NewUserInputError(msg, code, err)
	default:
		return ai.NewPermanentError(msg, code, err)
	}
}

func categorizeStatusCode(code int) ai.ErrorCategory {
	switch {
	case code == 429:
		return ai.ErrorTransient
	case code >= 500 && code < 600:
		return ai.ErrorTransient
	case code == 400 || code == 404 || code == 422:
		return ai.ErrorUserInput
	default:
		return ai.ErrorPermanent
	}
}

// parseRetryAfter reads the Retry-After header as seconds or an HTTP-date.
func parseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}
	return 0
}
