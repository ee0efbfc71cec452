package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lecube/cube-api/apperrors"
)

// retryBackoff is the pause before the single retry of a transient
// persistence failure.
const retryBackoff = 100 * time.Millisecond

// dbTimeout caps how long any single persistence operation may block.
const dbTimeout = 5 * time.Second

// boundedContext derives a deadline-bearing context for persistence calls so
// that a hung connection surfaces as a timeout instead of blocking the
// request forever. An earlier deadline on the parent is kept.
func boundedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, dbTimeout)
}

// withRetry runs fn, retrying exactly once after a short backoff when the
// failure looks transient (timeout, dropped connection). Domain errors pass
// through untouched; a persistent transient failure is surfaced as
// SERVICE_UNAVAILABLE.
func withRetry(fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	if apperrors.As(err) != nil {
		return err
	}
	if !isTransient(err) {
		return apperrors.Unavailable("Persistence operation failed", err)
	}

	time.Sleep(retryBackoff)
	if err = fn(); err == nil {
		return nil
	}
	if apperrors.As(err) != nil {
		return err
	}
	return apperrors.Unavailable("Persistence operation failed after retry", err)
}

// isTransient reports whether the error is worth a single retry.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "temporarily unavailable")
}
