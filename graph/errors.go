package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/relmap/compiler/load"
)

// Sentinel errors for the two failure classes of the graph.
var (
	// ErrMapping indicates a user-correctable mapping error.
	ErrMapping = errors.New("relmap: mapping error")
	// ErrInvariant indicates a broken internal invariant. Errors matching it
	// are raised with panic and are never returned.
	ErrInvariant = errors.New("relmap: invariant violation")
)

// Finding is one problem reported by a validation rule.
type Finding struct {
	// Element is the offending graph element.
	Element any
	Message string
}

// NewFinding returns a finding with a formatted message.
func NewFinding(element any, format string, args ...any) Finding {
	return Finding{Element: element, Message: fmt.Sprintf(format, args...)}
}

// MappingError aggregates the findings of one construction stage.
type MappingError struct {
	Stage    string
	Findings []Finding
}

// Error returns the finding messages joined by newlines.
func (e *MappingError) Error() string {
	return strings.Join(e.Messages(), "\n")
}

// Messages returns the finding messages.
func (e *MappingError) Messages() []string {
	msgs := make([]string, len(e.Findings))
	for i, f := range e.Findings {
		msgs[i] = f.Message
	}
	return msgs
}

// Is reports whether the target matches ErrMapping.
func (e *MappingError) Is(target error) bool {
	return target == ErrMapping
}

// NewMappingError returns a MappingError for the given stage.
func NewMappingError(stage string, findings ...Finding) *MappingError {
	return &MappingError{Stage: stage, Findings: findings}
}

// IsMappingError returns true if the error is a mapping error.
func IsMappingError(err error) bool {
	return err != nil && errors.Is(err, ErrMapping)
}

// InvariantError describes a broken data-structure invariant.
type InvariantError struct {
	Message string
}

// Error returns the error string.
func (e *InvariantError) Error() string {
	return "relmap: invariant violation: " + e.Message
}

// Is reports whether the target matches ErrInvariant.
func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}

// invariantf panics with an InvariantError.
func invariantf(format string, args ...any) {
	panic(&InvariantError{Message: fmt.Sprintf(format, args...)})
}

// IsInvariantError returns true if v, typically a recovered panic value,
// is an invariant violation.
func IsInvariantError(v any) bool {
	err, ok := v.(error)
	return ok && errors.Is(err, ErrInvariant)
}

// AmbiguityError is returned when an interface member resolves to more than
// one distinct implementation on a class.
type AmbiguityError struct {
	Member     load.Member
	Class      load.TypeID
	Candidates []load.TypeID
}

// Error returns the error string.
func (e *AmbiguityError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = c.String()
	}
	return fmt.Sprintf("relmap: member %s of class %s is ambiguous, it is implemented by: %s",
		e.Member, e.Class, strings.Join(names, ", "))
}

// Is reports whether the target matches ErrMapping.
func (e *AmbiguityError) Is(target error) bool {
	return target == ErrMapping
}

// PropertyNotFoundError is returned by the mandatory accessor lookups.
type PropertyNotFoundError struct {
	Class    load.TypeID
	Property string
}

// Error returns the error string.
func (e *PropertyNotFoundError) Error() string {
	return fmt.Sprintf("relmap: class %s has no property %q", e.Class, e.Property)
}

// Is reports whether the target matches ErrMapping.
func (e *PropertyNotFoundError) Is(target error) bool {
	return target == ErrMapping
}

// IsPropertyNotFound returns true if the error is a PropertyNotFoundError.
func IsPropertyNotFound(err error) bool {
	var e *PropertyNotFoundError
	return errors.As(err, &e)
}
