package visibility

import "fmt"

// Error codes surfaced to the admin caller. Store failures are wrapped and
// propagated as plain errors instead.
const (
	CodeParentNotFound = "PARENT_NOT_FOUND"
	CodeInvalidInput   = "INVALID_INPUT"
)

// Error is a typed, expected mutation failure.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalidInput(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func parentNotFound(format string, args ...any) *Error {
	return &Error{Code: CodeParentNotFound, Message: fmt.Sprintf(format, args...)}
}
