package ai

import (
	"context"
	"errors"
	"net"
	"strings"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrTransient marks provider failures worth retrying (5xx, timeouts, dropped connections).
var ErrTransient = errors.New("ai transient failure")

// ErrEmptyResponse is returned when the provider answered without any text choice.
var ErrEmptyResponse = errors.New("ai empty response")

// IsRetryable reports whether a failed call may succeed when repeated.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

var retryablePatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"eof",
	"timeout",
	"rate limit",
	"too many requests",
	"temporarily unavailable",
	"status code: 429",
	"status code: 500",
	"status code: 502",
	"status code: 503",
	"status code: 504",
	"error 429",
	"error 500",
	"error 503",
}

// ClassifyStatus wraps err with the sentinel matching an HTTP status code.
func ClassifyStatus(status int, err error) error {
	switch {
	case status == 429:
		return errors.Join(ErrQuotaExceeded, err)
	case status >= 500 || status == 408:
		return errors.Join(ErrTransient, err)
	default:
		return err
	}
}
