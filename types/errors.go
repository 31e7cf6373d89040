package types

import (
	"errors"
	"fmt"
)

var (
	// ErrDomainMismatch is matched by every error reporting a field, mesh or
	// model whose point domain disagrees with the reference.
	ErrDomainMismatch = errors.New("domain mismatch")
	// ErrInsufficientData is matched when too few items or sample points are
	// available for the requested statistic.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrNonConvergence tags an iterative alignment that hit its iteration cap.
	ErrNonConvergence = errors.New("iteration limit reached before convergence")
	// ErrInvalidFoldCount is returned for a fold count outside [1, n].
	ErrInvalidFoldCount = errors.New("invalid fold count")
	// ErrNotFinite is returned when a matrix headed for an eigensolve holds NaN.
	ErrNotFinite = errors.New("non-finite value")
)

// DomainMismatchError carries the expected and actual sizes of the mismatched domain.
type DomainMismatchError struct {
	What     string
	Expected int
	Actual   int
}

func (e *DomainMismatchError) Error() string {
	return fmt.Sprintf("domain mismatch (%s): expected %d, got %d", e.What, e.Expected, e.Actual)
}

func (e *DomainMismatchError) Is(target error) bool { return target == ErrDomainMismatch }

func NewDomainMismatch(what string, expected, actual int) error {
	return &DomainMismatchError{What: what, Expected: expected, Actual: actual}
}

type InsufficientDataError struct {
	What     string
	Required int
	Actual   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data (%s): need at least %d, got %d", e.What, e.Required, e.Actual)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

func NewInsufficientData(what string, required, actual int) error {
	return &InsufficientDataError{What: what, Required: required, Actual: actual}
}
