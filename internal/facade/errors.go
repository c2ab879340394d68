package facade

import "errors"

var (
	// ErrReleased is returned by registration calls on a released facade.
	ErrReleased = errors.New("facade released")

	// ErrMissingBus is returned by New when no event bus is supplied.
	ErrMissingBus = errors.New("facade requires an event bus")

	// ErrMissingPipeline is returned by New for the tree track without a pipeline.
	ErrMissingPipeline = errors.New("tree facade requires a transform pipeline")

	// ErrMissingOwner is returned by New when the owner is empty.
	ErrMissingOwner = errors.New("facade requires an owner")

	// ErrUnknownUnit is returned when injecting relative to a unit the
	// document does not contain.
	ErrUnknownUnit = errors.New("unknown content unit")

	// ErrSlotExists is returned when a slot name is already registered.
	ErrSlotExists = errors.New("slot already registered")

	// ErrInvalidPosition is returned for an unknown injection position.
	ErrInvalidPosition = errors.New("invalid injection position")
)
