package tools

import (
	"errors"
	"fmt"

	"github.com/log-viewer/backend/internal/storage"
)

// Error codes carried by Error.
const (
	CodeInvalidArgument = "invalid_argument"
	CodeNotFound        = "not_found"
	CodeUnknownTool     = "unknown_tool"
	CodeInternal        = "internal"
)

// Error is a tool failure that can be shown to the caller as is.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func invalidArg(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// asError classifies err. Storage misses become not_found; anything that is
// not already an *Error is internal and its detail is logged, not returned.
func asError(err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	if errors.Is(err, storage.ErrNotFound) {
		return &Error{Code: CodeNotFound, Message: err.Error()}
	}
	logger.Errorf("tool failed: %v", err)
	return &Error{Code: CodeInternal, Message: "internal error"}
}

// ErrorCode returns the tool error code of err, or CodeInternal.
func ErrorCode(err error) string {
	return asError(err).Code
}
