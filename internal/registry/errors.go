package registry

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDescriptor = errors.New("registry: invalid descriptor")
	ErrDuplicateService  = errors.New("registry: duplicate service name")
	ErrServiceNotFound   = errors.New("registry: unknown service")
	ErrCommandNotFound   = errors.New("registry: unknown command")
	ErrSealed            = errors.New("registry: sealed against registration")
)

// ArityError reports an argument-count mismatch detected before the command
// handler runs.
type ArityError struct {
	Service  string
	Command  string
	Expected int
	Got      int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf(
		"registry: command %s.%s expects %d argument(s), got %d",
		e.Service, e.Command, e.Expected, e.Got,
	)
}

// CommandError wraps a failure raised inside user command logic. Message is
// the originating error text, preserved verbatim for display.
type CommandError struct {
	Service string
	Command string
	Message string
}

func (e *CommandError) Error() string { return e.Message }
