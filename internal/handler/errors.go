package handler

import "strconv"

// invalidBatchSizeError signals a request batch whose size is not exactly one.
type invalidBatchSizeError struct{ n int }

func (e invalidBatchSizeError) Error() string {
	return "invalid batch size: " + strconv.Itoa(e.n) + " (expected 1)"
}

// ErrInvalidBatchSize constructs an invalidBatchSizeError.
func ErrInvalidBatchSize(n int) error { return invalidBatchSizeError{n: n} }

// IsInvalidBatchSize reports whether err indicates a batch size other than one.
func IsInvalidBatchSize(err error) bool {
	_, ok := err.(invalidBatchSizeError)
	return ok
}

// decodeError signals an undecodable request payload.
type decodeError struct{ msg string }

func (e decodeError) Error() string { return "decode error: " + e.msg }

// ErrDecode constructs a decodeError.
func ErrDecode(msg string) error { return decodeError{msg: msg} }

// IsDecode reports whether err indicates an undecodable payload.
func IsDecode(err error) bool {
	_, ok := err.(decodeError)
	return ok
}

// missingModelConfigError signals that neither a model name nor a resolvable
// model path was configured. Raised at construction, not per request.
type missingModelConfigError struct{}

func (missingModelConfigError) Error() string {
	return "missing model configuration: set a model name or a model path"
}

// ErrMissingModelConfiguration constructs a missingModelConfigError.
func ErrMissingModelConfiguration() error { return missingModelConfigError{} }

// IsMissingModelConfiguration reports whether err indicates absent model config.
func IsMissingModelConfiguration(err error) bool {
	_, ok := err.(missingModelConfigError)
	return ok
}

// engineFailureError wraps a failure raised by the engine or its stream.
type engineFailureError struct{ err error }

func (e engineFailureError) Error() string { return "engine failure: " + e.err.Error() }

func (e engineFailureError) Unwrap() error { return e.err }

// ErrEngineFailure wraps err as an engine failure.
func ErrEngineFailure(err error) error { return engineFailureError{err: err} }

// IsEngineFailure reports whether err indicates an aborted engine stream.
func IsEngineFailure(err error) bool {
	_, ok := err.(engineFailureError)
	return ok
}
