package ai

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// TransientError marks a provider failure worth retrying: rate limits,
// timeouts, server-side errors.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient failure: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a provider failure that must not be retried:
// invalid input, auth problems.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent failure: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanent reports whether err must not be retried.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// classifyError translates provider-specific errors into the
// transient/permanent taxonomy. Timeouts count as transient.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) || IsPermanent(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &PermanentError{Err: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return &TransientError{Err: err}
		default:
			return &PermanentError{Err: err}
		}
	}

	// Network-level errors without a status code are assumed retryable.
	return &TransientError{Err: err}
}
