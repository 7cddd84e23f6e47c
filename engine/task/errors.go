package task

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidIdentifier = errors.New("invalid task identifier")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrExecution         = errors.New("an error occurred during task execution")
	ErrNilTask           = errors.New("task must not be nil")
)

// InvalidIdentifierError reports the first disallowed character of an id.
type InvalidIdentifierError struct {
	ID       string
	Char     rune
	Position int
	Dialect  Dialect
}

func (e *InvalidIdentifierError) Error() string {
	if e.ID == "" {
		return "task id must not be empty"
	}
	if e.Char == ':' && !e.Dialect.AllowsColon() {
		return fmt.Sprintf("invalid character %q in task id %q at position %d: colons are not allowed in %s ids",
			e.Char, e.ID, e.Position, e.Dialect)
	}
	return fmt.Sprintf("invalid character %q in task id %q at position %d", e.Char, e.ID, e.Position)
}

func (e *InvalidIdentifierError) Is(target error) bool {
	return target == ErrInvalidIdentifier
}

type IndexOutOfRangeError struct {
	Index  int
	Length int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index out of range: %d (length %d)", e.Index, e.Length)
}

func (e *IndexOutOfRangeError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

// ExecutionError wraps an arbitrary non-error value reported as a task failure.
type ExecutionError struct {
	Value any
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %v", ErrExecution.Error(), e.Value)
}

func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}
