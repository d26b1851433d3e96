package spreadsheet

import (
	"errors"
	"fmt"
)

// Sentinel errors for rejected edits. every *EditError wraps exactly one.
var (
	// ErrInvalidAddress is returned when the target address is malformed or
	// outside the grid.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrParse is returned when formula text cannot be parsed, including
	// calls to unknown functions.
	ErrParse = errors.New("formula parse error")

	// ErrCycle is returned when a formula would make a cell depend on itself.
	ErrCycle = errors.New("circular reference")

	// ErrValidation is returned when a literal does not match the cell's
	// declared type.
	ErrValidation = errors.New("validation failed")

	// ErrCanceled is returned when the caller's context ends before the
	// recalculation pass completes. nothing from the pass is kept.
	ErrCanceled = errors.New("recalculation canceled")
)

// EditKind classifies why an edit was rejected
type EditKind uint8

const (
	EditKindInvalidAddress EditKind = iota + 1
	EditKindParse
	EditKindCycle
	EditKindValidation
	EditKindCanceled
)

var editKindSentinels = map[EditKind]error{
	EditKindInvalidAddress: ErrInvalidAddress,
	EditKindParse:          ErrParse,
	EditKindCycle:          ErrCycle,
	EditKindValidation:     ErrValidation,
	EditKindCanceled:       ErrCanceled,
}

func (k EditKind) String() string {
	switch k {
	case EditKindInvalidAddress:
		return "InvalidAddress"
	case EditKindParse:
		return "ParseError"
	case EditKindCycle:
		return "CycleError"
	case EditKindValidation:
		return "ValidationError"
	case EditKindCanceled:
		return "Canceled"
	}
	return "Unknown"
}

// EditError is a structural failure: the edit was refused and the engine is
// exactly as it was before the call
type EditError struct {
	Kind    EditKind
	Address string
	Message string
	Err     error // underlying cause, may be nil
}

func (e *EditError) Error() string {
	if e.Address == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Address, e.Message)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is / As
func (e *EditError) Unwrap() []error {
	errs := []error{editKindSentinels[e.Kind]}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewEditError creates a new edit error
func NewEditError(kind EditKind, address, message string, cause error) *EditError {
	return &EditError{
		Kind:    kind,
		Address: address,
		Message: message,
		Err:     cause,
	}
}
