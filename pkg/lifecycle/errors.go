package lifecycle

import (
	"errors"
	"fmt"
)

// Sentinel errors for lifecycle operations
var (
	ErrLifecycleSpecification = errors.New("invalid lifecycle specification")
	ErrNoSuchPhase            = errors.New("no such phase")
	ErrNoSuchLifecycle        = errors.New("no such lifecycle")
	ErrLifecycleLoader        = errors.New("lifecycle loader failure")
	ErrMergeInconsistency     = errors.New("inconsistent lifecycle merge")
)

// SpecificationError reports malformed lifecycle input. Plugin is the
// coordinate involved, when known.
type SpecificationError struct {
	Lifecycle string
	Phase     string
	Plugin    string
	Reason    string
	Err       error
}

func (e *SpecificationError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrLifecycleSpecification, e.Reason)
	if e.Lifecycle != "" {
		msg += " (lifecycle: " + e.Lifecycle + ")"
	}
	if e.Phase != "" {
		msg += " (phase: " + e.Phase + ")"
	}
	if e.Plugin != "" {
		msg += " (plugin: " + e.Plugin + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SpecificationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrLifecycleSpecification, e.Err}
	}
	return []error{ErrLifecycleSpecification}
}

// NoSuchPhaseError is returned when a phase name is not part of a lifecycle.
// It is also a specification error.
type NoSuchPhaseError struct {
	Phase     string
	Lifecycle string
}

func (e *NoSuchPhaseError) Error() string {
	if e.Lifecycle == "" {
		return fmt.Sprintf("%s: %s not found in any lifecycle", ErrNoSuchPhase, e.Phase)
	}
	return fmt.Sprintf("%s: %s not found in lifecycle %s", ErrNoSuchPhase, e.Phase, e.Lifecycle)
}

func (e *NoSuchPhaseError) Unwrap() []error {
	return []error{ErrNoSuchPhase, ErrLifecycleSpecification}
}

// NoSuchLifecycleError is returned when a packaging has no bindings in the
// lifecycle template
type NoSuchLifecycleError struct {
	Packaging string
	Template  string
}

func (e *NoSuchLifecycleError) Error() string {
	return fmt.Sprintf("%s: packaging %q in %s", ErrNoSuchLifecycle, e.Packaging, e.Template)
}

func (e *NoSuchLifecycleError) Unwrap() []error {
	return []error{ErrNoSuchLifecycle, ErrLifecycleSpecification}
}

// LoaderError is returned when a lifecycle template cannot be read
type LoaderError struct {
	Path string
	Err  error
}

func (e *LoaderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrLifecycleLoader, e.Path)
	}
	return fmt.Sprintf("%s: %s: %v", ErrLifecycleLoader, e.Path, e.Err)
}

func (e *LoaderError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrLifecycleLoader, e.Err}
	}
	return []error{ErrLifecycleLoader}
}

// MergeInconsistencyError is an internal invariant violation raised while
// merging bindings. It is not recoverable.
type MergeInconsistencyError struct {
	Phase   string
	Binding string
	Err     error
}

func (e *MergeInconsistencyError) Error() string {
	return fmt.Sprintf("%s: binding %s in phase %s: %v", ErrMergeInconsistency, e.Binding, e.Phase, e.Err)
}

func (e *MergeInconsistencyError) Unwrap() []error {
	return []error{ErrMergeInconsistency, e.Err}
}
