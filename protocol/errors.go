package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrIncomplete is returned when the buffer holds a valid prefix of a
	// value and more bytes are needed before it can be parsed.
	ErrIncomplete = errors.New("incomplete RESP value")

	// ErrSyntax matches every *SyntaxError via errors.Is.
	ErrSyntax = errors.New("RESP syntax error")

	// ErrInvalidValue indicates a value that cannot be serialized.
	ErrInvalidValue = errors.New("invalid RESP value")
)

// SyntaxError describes malformed RESP framing. After a syntax error the
// frame boundary of the stream is unknown, so the stream cannot be resumed.
type SyntaxError struct {
	Offset int
	Reason string
}

// Error implements the error interface
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("protocol error: %s at offset %d", e.Reason, e.Offset)
}

// Is makes errors.Is(err, ErrSyntax) succeed
func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}

func syntaxErrorf(off int, format string, args ...interface{}) error {
	return &SyntaxError{Offset: off, Reason: fmt.Sprintf(format, args...)}
}

// CommandErrorKind classifies why a RESP value is not a valid command
type CommandErrorKind int

const (
	// ErrUnknownCommand means the command name is absent, not a string, or
	// not one of SET, GET and DEL.
	ErrUnknownCommand CommandErrorKind = iota + 1
	// ErrMissingArguments means fewer arguments than required, or a null
	// or non-string argument.
	ErrMissingArguments
	// ErrTooManyArguments means trailing arguments past the command arity.
	ErrTooManyArguments
)

// Message returns the fixed reply text for the kind
func (k CommandErrorKind) Message() string {
	switch k {
	case ErrUnknownCommand:
		return "ERR unknown command"
	case ErrMissingArguments:
		return "ERR missing arguments"
	case ErrTooManyArguments:
		return "ERR too many arguments"
	default:
		return "ERR"
	}
}

// String returns a short label for the kind, usable as a metric label
func (k CommandErrorKind) String() string {
	switch k {
	case ErrUnknownCommand:
		return "unknown_command"
	case ErrMissingArguments:
		return "missing_arguments"
	case ErrTooManyArguments:
		return "too_many_arguments"
	default:
		return "unknown"
	}
}

// CommandError is returned by ParseCommand and NewCommand. It is always
// recoverable: the connection stays usable.
type CommandError struct {
	Kind CommandErrorKind
	Name string
}

// Error implements the error interface
func (e *CommandError) Error() string {
	if e.Name == "" {
		return e.Kind.Message()
	}
	return fmt.Sprintf("%s '%s'", e.Kind.Message(), e.Name)
}

// Is matches another *CommandError of the same kind
func (e *CommandError) Is(target error) bool {
	t, ok := target.(*CommandError)
	return ok && t.Kind == e.Kind && (t.Name == "" || t.Name == e.Name)
}
