package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrUnnamedContribution is returned when a contribution has no name.
	ErrUnnamedContribution = errors.New("contribution name is required")

	// ErrEmptyContribution is returned when a contribution has no callbacks.
	ErrEmptyContribution = errors.New("contribution has no callbacks")

	// ErrNilResult is reported when a transform or wrap step returns nil.
	ErrNilResult = errors.New("contribution returned nil")
)

// Stage names which callback of a contribution ran.
type Stage string

// Pipeline stages.
const (
	StageTransform Stage = "transform"
	StageWrap      Stage = "wrap"
	StageInline    Stage = "inline"
)

// ContributionError describes a failure inside one contribution callback.
type ContributionError struct {
	Owner string
	Name  string
	Stage Stage
	Err   error
}

// Error implements error.
func (e *ContributionError) Error() string {
	return fmt.Sprintf("%s %q (%s): %v", e.Stage, e.Name, e.Owner, e.Err)
}

// Unwrap returns the underlying error.
func (e *ContributionError) Unwrap() error {
	return e.Err
}
