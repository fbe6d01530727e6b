package serving

import (
	"fmt"
	"time"
)

// configError signals malformed identifiers or aliases. Detected before any
// network I/O; fatal to construction.
type configError struct{ msg string }

func (e configError) Error() string { return e.msg }

// IsConfigError reports whether err indicates an invalid configuration.
func IsConfigError(err error) bool {
	_, ok := err.(configError)
	return ok
}

// workerDiedError signals that the serving worker exited before (or instead
// of) becoming ready.
type workerDiedError struct{ cause error }

func (e workerDiedError) Error() string {
	if e.cause == nil {
		return "server worker died unexpectedly"
	}
	return fmt.Sprintf("server worker died unexpectedly: %v", e.cause)
}

func (e workerDiedError) Unwrap() error { return e.cause }

// IsWorkerDied reports whether err indicates a dead worker.
func IsWorkerDied(err error) bool {
	_, ok := err.(workerDiedError)
	return ok
}

// startupTimeoutError signals that the readiness ceiling elapsed.
type startupTimeoutError struct{ timeout time.Duration }

func (e startupTimeoutError) Error() string {
	return fmt.Sprintf("server timed out waiting for startup after %s", e.timeout)
}

// IsStartupTimeout reports whether err indicates a startup timeout.
func IsStartupTimeout(err error) bool {
	_, ok := err.(startupTimeoutError)
	return ok
}

// modelNotFoundError signals a request for a model id absent from the
// serving configuration. Mapped to 404 by the HTTP layer.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return fmt.Sprintf("model %q not found", e.id) }

// ErrModelNotFound constructs a modelNotFoundError.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether err indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// inferenceError wraps a failure from the underlying inference call. Mapped
// to 500 by the HTTP layer; the server stays usable for later requests.
type inferenceError struct{ cause error }

func (e inferenceError) Error() string { return e.cause.Error() }

func (e inferenceError) Unwrap() error { return e.cause }

// WrapInferenceError marks cause as a per-request inference failure.
func WrapInferenceError(cause error) error { return inferenceError{cause: cause} }

// IsInferenceError reports whether err is a per-request inference failure.
func IsInferenceError(err error) bool {
	_, ok := err.(inferenceError)
	return ok
}
