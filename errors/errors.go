// Package errors provides standardized error handling for bridginghub
// components. Errors are wrapped with component context and classified by
// pipeline kind so the orchestrator can decide whether a failure ends the
// run, aborts the current pass, or is tolerated per record.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error by the pipeline concern that raised it.
type Kind int

const (
	// KindUnknown is the zero value for unclassified errors
	KindUnknown Kind = iota
	// KindConfig marks configuration errors: missing or ill-typed sections,
	// relative storage paths, subscription cycles. Fatal to the run.
	KindConfig
	// KindModuleLoader marks registry failures: unknown implementations,
	// wrong capability, duplicate registration. Fatal to the run.
	KindModuleLoader
	// KindInput marks collector failures. The current pass aborts.
	KindInput
	// KindOutput marks sender failures. The current pass aborts.
	KindOutput
	// KindFilter marks filter failures. The current pass aborts.
	KindFilter
	// KindStorage marks staging failures. Record-level failures are handled
	// inside the staging engine; an error of this kind is directory-level
	// and aborts the pass.
	KindStorage
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindModuleLoader:
		return "module_loader"
	case KindInput:
		return "input"
	case KindOutput:
		return "output"
	case KindFilter:
		return "filter"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Configuration errors
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrMissingConfig     = errors.New("missing required configuration")
	ErrMissingSection    = errors.New("missing required configuration section")
	ErrRelativePath      = errors.New("directory path must be absolute")
	ErrSubscriptionCycle = errors.New("subscription cycle detected")

	// Registry errors
	ErrNoSuchModule    = errors.New("no such module")
	ErrDuplicateModule = errors.New("segment already bound to a different module")
	ErrWrongCapability = errors.New("module does not provide the declared capability")

	// Data errors
	ErrInvalidData   = errors.New("invalid data format")
	ErrParsingFailed = errors.New("parsing failed")
)

// ClassifiedError wraps an error with its pipeline kind
type ClassifiedError struct {
	Kind      Kind
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// KindOf returns the pipeline kind of an error, or KindUnknown for errors
// that were never classified.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// IsConfig checks if an error is a configuration error
func IsConfig(err error) bool { return KindOf(err) == KindConfig }

// IsModuleLoader checks if an error came from module loading or registration
func IsModuleLoader(err error) bool { return KindOf(err) == KindModuleLoader }

// IsInput checks if an error came from a collector
func IsInput(err error) bool { return KindOf(err) == KindInput }

// IsOutput checks if an error came from a sender
func IsOutput(err error) bool { return KindOf(err) == KindOutput }

// IsFilter checks if an error came from a filter
func IsFilter(err error) bool { return KindOf(err) == KindFilter }

// IsStorage checks if an error came from the staging engine
func IsStorage(err error) bool { return KindOf(err) == KindStorage }

// IsFatal reports whether an error ends the run rather than the pass.
// Configuration and module-loading errors are never retried; re-invoking
// the process cannot fix them without a config change.
func IsFatal(err error) bool {
	k := KindOf(err)
	return k == KindConfig || k == KindModuleLoader
}

// newClassified creates a new classified error.
// This is an internal helper - use the per-kind Wrap functions instead.
func newClassified(kind Kind, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Kind:      kind,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// wrapKind wraps an error with context and classifies it
func wrapKind(kind Kind, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(kind, wrappedErr, component, method, wrappedErr.Error())
}

// WrapConfig wraps an error as a configuration error with context
func WrapConfig(err error, component, method, action string) error {
	return wrapKind(KindConfig, err, component, method, action)
}

// WrapModuleLoader wraps an error as a module-loading error with context
func WrapModuleLoader(err error, component, method, action string) error {
	return wrapKind(KindModuleLoader, err, component, method, action)
}

// WrapInput wraps an error as an input error with context
func WrapInput(err error, component, method, action string) error {
	return wrapKind(KindInput, err, component, method, action)
}

// WrapOutput wraps an error as an output error with context
func WrapOutput(err error, component, method, action string) error {
	return wrapKind(KindOutput, err, component, method, action)
}

// WrapFilter wraps an error as a filter error with context
func WrapFilter(err error, component, method, action string) error {
	return wrapKind(KindFilter, err, component, method, action)
}

// WrapStorage wraps an error as a storage error with context
func WrapStorage(err error, component, method, action string) error {
	return wrapKind(KindStorage, err, component, method, action)
}
