package dispatch

import (
	"errors"
	"fmt"
)

// ErrPanic is matched by every PanicError.
var ErrPanic = errors.New("callback panicked")

// PanicError describes a recovered panic.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements error.
func (e *PanicError) Error() string {
	return fmt.Sprintf("callback panicked: %v", e.Value)
}

// Is reports ErrPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrPanic
}

// Unwrap returns the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
