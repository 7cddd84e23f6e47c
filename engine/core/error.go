package core

import (
	"errors"
	"fmt"
	"maps"
)

// Error is a coded error carrying structured details for callers that need to
// branch on the failure kind without string matching.
type Error struct {
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func NewError(err error, code string, details map[string]any) *Error {
	message := code
	if err != nil {
		message = err.Error()
	}
	return &Error{
		Message: message,
		Code:    code,
		Details: details,
		Err:     err,
	}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsMap renders the error in the shape used for CLI JSON output.
func (e *Error) AsMap() map[string]any {
	if e == nil {
		return nil
	}
	out := map[string]any{
		"message": e.Message,
		"code":    e.Code,
	}
	if len(e.Details) > 0 {
		out["details"] = maps.Clone(e.Details)
	}
	return out
}

// ErrorCode returns the code of the first *Error in err's chain, or "".
func ErrorCode(err error) string {
	var coreErr *Error
	if errors.As(err, &coreErr) {
		return coreErr.Code
	}
	return ""
}
