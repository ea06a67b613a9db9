package common

import (
	"context"
	"errors"
	"time"
)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as not worth retrying (bad credentials, malformed
// payload). Retry returns it immediately, unwrapped.
func Permanent(err error) error {
	return &permanentError{err: err}
}

// Retry runs op up to attempts times, sleeping delay between tries. It is
// meant for transient I/O failures at the call site that issued the I/O;
// the last error is returned when every attempt fails.
func Retry(ctx context.Context, attempts int, delay time.Duration, op func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = op()
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
