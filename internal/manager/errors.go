package manager

import (
	"errors"

	"genloop/internal/engine"
)

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ op string }

func (e tooBusyError) Error() string { return "too busy: " + e.op }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var tb tooBusyError
	return errors.As(err, &tb)
}

// modelNotFoundError is returned when a requested model id is not present in the registry.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound returns a modelNotFoundError for id.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	var mnf modelNotFoundError
	return errors.As(err, &mnf)
}

// dependencyUnavailableError signals a missing external dependency (the
// llama.cpp libraries, the snapshot store) so the HTTP layer can return 503
// Service Unavailable instead of 500.
type dependencyUnavailableError struct {
	msg string
	err error
}

func (e dependencyUnavailableError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e dependencyUnavailableError) Unwrap() error { return e.err }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var du dependencyUnavailableError
	return errors.As(err, &du) || errors.Is(err, engine.ErrUnavailable)
}

// ErrNoSession is returned by operations that need an open session.
var ErrNoSession = errors.New("no session: reinit first")

// IsNoSession reports whether err is ErrNoSession.
func IsNoSession(err error) bool { return errors.Is(err, ErrNoSession) }

// streamedError marks an error reported after streaming began; the error has
// already been written to the stream as the final line.
type streamedError struct{ err error }

func (e streamedError) Error() string { return e.err.Error() }
func (e streamedError) Unwrap() error { return e.err }

// ErrStreamed wraps err as already delivered in-band.
func ErrStreamed(err error) error { return streamedError{err: err} }

// IsStreamed reports whether err was already delivered in-band.
func IsStreamed(err error) bool {
	var se streamedError
	return errors.As(err, &se)
}
