// Package errs defines the error taxonomy shared by the locator, the
// inference session and the host-facing surfaces. Every error carries a Kind
// so the HTTP layer can map it to a status code without string matching.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind string

const (
	KindInvalidArgument       Kind = "invalid_argument"
	KindNotFound              Kind = "not_found"
	KindFetchFailed           Kind = "fetch_failed"
	KindInvalidPath           Kind = "invalid_path"
	KindLoadError             Kind = "load_error"
	KindTokenizeError         Kind = "tokenize_error"
	KindDecodeError           Kind = "decode_error"
	KindNotInitialized        Kind = "not_initialized"
	KindDependencyUnavailable Kind = "dependency_unavailable"
	KindTooBusy               Kind = "too_busy"
)

// Error is the concrete error type returned across package boundaries.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode maps the kind to an HTTP status (see httpapi.HTTPError).
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindInvalidArgument, KindInvalidPath:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindFetchFailed:
		return http.StatusBadGateway
	case KindTokenizeError:
		return http.StatusUnprocessableEntity
	case KindNotInitialized, KindDependencyUnavailable:
		return http.StatusServiceUnavailable
	case KindTooBusy:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// New builds an error of the given kind wrapping cause (which may be nil).
func New(kind Kind, cause error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

func InvalidArgument(format string, args ...any) error {
	return New(KindInvalidArgument, nil, format, args...)
}

// NotFound reports that no local model file matched id.
func NotFound(id string) error {
	return &Error{Kind: KindNotFound, Msg: "model not found: " + id}
}

// FetchFailed reports a registry tool that exited with a non-zero status.
func FetchFailed(tool string, status int, cause error) error {
	return &Error{Kind: KindFetchFailed, Msg: fmt.Sprintf("%s exited with status %d", tool, status), Err: cause}
}

func InvalidPath(path string, cause error) error {
	return &Error{Kind: KindInvalidPath, Msg: "invalid model path " + path, Err: cause}
}

func LoadError(cause error, format string, args ...any) error {
	return New(KindLoadError, cause, format, args...)
}

func TokenizeError(cause error) error {
	return &Error{Kind: KindTokenizeError, Msg: "tokenize prompt", Err: cause}
}

func DecodeError(cause error, format string, args ...any) error {
	return New(KindDecodeError, cause, format, args...)
}

func NotInitialized(msg string) error {
	return &Error{Kind: KindNotInitialized, Msg: msg}
}

// DependencyUnavailable signals a missing runtime dependency such as an
// engine that was not compiled in.
func DependencyUnavailable(msg string) error {
	return &Error{Kind: KindDependencyUnavailable, Msg: msg}
}

func TooBusy(what string) error {
	return &Error{Kind: KindTooBusy, Msg: "too busy: " + what}
}

// KindOf returns the kind of the outermost *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether any *Error in err's chain has the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

func IsNotFound(err error) bool              { return Is(err, KindNotFound) }
func IsTooBusy(err error) bool               { return Is(err, KindTooBusy) }
func IsDependencyUnavailable(err error) bool { return Is(err, KindDependencyUnavailable) }
