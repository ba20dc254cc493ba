package relmap

import (
	"errors"
	"fmt"

	"github.com/syssam/relmap/compiler/load"
	"github.com/syssam/relmap/graph"
)

// Standard sentinel errors for lookups.
var (
	// ErrNotFound is returned when a requested type or class is not mapped.
	ErrNotFound = errors.New("relmap: not found")

	// ErrNoSource is returned when a configuration has no reflection source.
	ErrNoSource = errors.New("relmap: configuration has no reflection source")
)

// TypeNotFoundError is returned when a type is not part of the mapping.
type TypeNotFoundError struct {
	Type load.TypeID
}

// Error returns the error string.
func (e *TypeNotFoundError) Error() string {
	return fmt.Sprintf("relmap: type %s is not part of the mapping configuration", e.Type)
}

// Is reports whether the target error matches TypeNotFoundError.
// This allows errors.Is(err, ErrNotFound) to return true.
func (e *TypeNotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// NewTypeNotFoundError returns a new TypeNotFoundError for the given type.
func NewTypeNotFoundError(id load.TypeID) *TypeNotFoundError {
	return &TypeNotFoundError{Type: id}
}

// ClassNotFoundError is returned when no class has the requested class ID.
type ClassNotFoundError struct {
	ClassID string
}

// Error returns the error string.
func (e *ClassNotFoundError) Error() string {
	return fmt.Sprintf("relmap: no class with class ID %q is part of the mapping configuration", e.ClassID)
}

// Is reports whether the target error matches ClassNotFoundError.
func (e *ClassNotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// NewClassNotFoundError returns a new ClassNotFoundError for the given class ID.
func NewClassNotFoundError(classID string) *ClassNotFoundError {
	return &ClassNotFoundError{ClassID: classID}
}

// IsNotFound returns true if the error is a TypeNotFoundError or a
// ClassNotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNotFound)
}

// IsMappingError returns true if the configuration failed validation.
func IsMappingError(err error) bool {
	return graph.IsMappingError(err)
}
