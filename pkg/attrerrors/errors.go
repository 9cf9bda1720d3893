// Package attrerrors provides the unified error taxonomy used across the
// resolver and filter engines: seven kinds, consistent typed construction,
// and errors.As-based inspection helpers.
package attrerrors

import (
	"errors"
	"fmt"
)

// ErrorKind identifies one of the seven error kinds from the component
// lifecycle and resolution/filter contracts.
type ErrorKind string

const (
	KindConstraintViolation   ErrorKind = "CONSTRAINT_VIOLATION"
	KindUninitialized         ErrorKind = "UNINITIALIZED"
	KindDestroyed             ErrorKind = "DESTROYED"
	KindUnmodifiable          ErrorKind = "UNMODIFIABLE"
	KindComponentInitialization ErrorKind = "COMPONENT_INITIALIZATION"
	KindResolution            ErrorKind = "RESOLUTION"
	KindFilter                ErrorKind = "FILTER"
)

// ComponentError is a structured error carrying the offending component's
// id, the error kind, a human message, an optional wrapped cause, and
// arbitrary detail fields for logging.
type ComponentError struct {
	Kind      ErrorKind
	Component string
	Message   string
	Err       error
	Details   map[string]interface{}
}

func (e *ComponentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Kind, e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Component, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ComponentError) Unwrap() error {
	return e.Err
}

// WithDetails attaches a detail field and returns the receiver for chaining.
func (e *ComponentError) WithDetails(key string, value interface{}) *ComponentError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a bare ComponentError.
func New(kind ErrorKind, component, message string) *ComponentError {
	return &ComponentError{Kind: kind, Component: component, Message: message}
}

// Wrap creates a ComponentError around an existing cause.
func Wrap(kind ErrorKind, component, message string, err error) *ComponentError {
	return &ComponentError{Kind: kind, Component: component, Message: message, Err: err}
}

// Constraint violation helpers.

func ConstraintViolation(component, message string) *ComponentError {
	return New(KindConstraintViolation, component, message)
}

func NilArgument(component, argument string) *ComponentError {
	return ConstraintViolation(component, "argument must not be nil").WithDetails("argument", argument)
}

// Lifecycle helpers.

func Uninitialized(component string) *ComponentError {
	return New(KindUninitialized, component, "component has not been initialized")
}

func Destroyed(component string) *ComponentError {
	return New(KindDestroyed, component, "component has been destroyed")
}

func Unmodifiable(component string) *ComponentError {
	return New(KindUnmodifiable, component, "component is no longer mutable after initialize")
}

// Initialization-time helpers.

func ComponentInitialization(component, message string) *ComponentError {
	return New(KindComponentInitialization, component, message)
}

// ComponentInitializationWrap builds a ComponentInitializationError around
// an existing cause, e.g. a regex or template compile failure.
func ComponentInitializationWrap(component, message string, err error) *ComponentError {
	return Wrap(KindComponentInitialization, component, message, err)
}

// Cyclic builds a ComponentInitializationError naming the ids involved in a
// dependency cycle.
func Cyclic(component string, ids ...string) *ComponentError {
	return ComponentInitialization(component, "cyclic dependency detected").
		WithDetails("cycle", ids)
}

// UnknownDependency builds a ComponentInitializationError naming the
// referencing plugin and the unresolved dependency id.
func UnknownDependency(component, dependsOnID string) *ComponentError {
	return ComponentInitialization(component, "dependency references an unknown plugin id").
		WithDetails("dependsOn", dependsOnID)
}

func DuplicateID(component, id string) *ComponentError {
	return ComponentInitialization(component, "duplicate plugin id").WithDetails("id", id)
}

// Resolution/filter helpers.

func Resolution(component, message string) *ComponentError {
	return New(KindResolution, component, message)
}

func ResolutionWrap(component, message string, err error) *ComponentError {
	return Wrap(KindResolution, component, message, err)
}

func Filter(component, message string) *ComponentError {
	return New(KindFilter, component, message)
}

func FilterWrap(component, message string, err error) *ComponentError {
	return Wrap(KindFilter, component, message, err)
}

// IsKind reports whether err is (or wraps) a *ComponentError of the given
// kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *ComponentError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// KindOf extracts the *ComponentError from an error chain, if present.
func KindOf(err error) *ComponentError {
	var ce *ComponentError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}
