// Package errors provides severity-aware error types for the quoting pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is a structured error with a machine-readable code.
type Error struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
}

// Error codes
const (
	// Mesh decoding
	ErrCodeUnsupportedFormat   = "UNSUPPORTED_FORMAT"
	ErrCodeParseFailed         = "PARSE_FAILED"
	ErrCodeEmptyScene          = "EMPTY_SCENE"
	ErrCodeUnsupportedMeshType = "UNSUPPORTED_MESH_TYPE"
	ErrCodeModelPartNotFound   = "MODEL_PART_NOT_FOUND"
	ErrCodeEmptyMesh           = "EMPTY_MESH"

	// Geometry measurement
	ErrCodeVolumeUnavailable = "VOLUME_UNAVAILABLE"

	// Quote computation
	ErrCodeUnknownMaterial = "UNKNOWN_MATERIAL"
	ErrCodeUnknownMachine  = "UNKNOWN_MACHINE"
	ErrCodeInvalidInput    = "INVALID_INPUT"

	// Configuration store
	ErrCodeDuplicateID = "DUPLICATE_ID"
	ErrCodeConfigIO    = "CONFIG_IO"
)

// New creates an Error with the default severity.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message, Severity: SeverityError}
}

// Newf creates an Error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// CodeOf extracts the error code, or "" for plain errors.
func CodeOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}
