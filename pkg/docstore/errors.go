package docstore

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by every operation invoked before Connect or
// after Disconnect.
var ErrNotConnected = errors.New("adapter is not connected")

// ErrInvalidCursor is returned when a continuation token cannot be decoded.
var ErrInvalidCursor = errors.New("invalid continuation token")

// ErrOrderingUnsupported is returned at query execution by backends that
// cannot order results server-side.
var ErrOrderingUnsupported = errors.New("ordering is not supported by this backend")

// ConfigurationError reports unusable configuration: a missing collection
// name at Init, a document without "_id" on Create, or backend settings the
// client cannot be built from. Never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// NewConfigurationError builds a ConfigurationError from a format string.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// BackendError wraps a failure from the underlying client. The cause is
// preserved for errors.Is/errors.As; no retry or classification is added.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s failed: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsBackendError reports whether err is a BackendError.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// NotFoundError reports that no document exists at the requested id. The
// convention is uniform: FindByID, Update and Delete all surface it for a
// missing document.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document %q not found in collection %q", e.ID, e.Collection)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
