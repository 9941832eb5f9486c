package knowledge

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches any NotFoundError via errors.Is.
	ErrNotFound = errors.New("knowledge: record not found")

	// ErrInvalidArgument matches any InvalidArgumentError via errors.Is.
	ErrInvalidArgument = errors.New("knowledge: invalid argument")
)

// NotFoundError reports a lookup miss on a mutating operation. It carries
// the offending id so dispatchers can build a diagnostic message.
type NotFoundError struct {
	Kind string // "entity" or "conversation"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("knowledge: %s %q not found", e.Kind, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) succeed.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidArgumentError reports a malformed filter or parameter shape.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "knowledge: invalid argument: " + e.Reason
}

// Is makes errors.Is(err, ErrInvalidArgument) succeed.
func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }
