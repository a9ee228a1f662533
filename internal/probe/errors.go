package probe

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateProbeID is returned by Register when the type id is taken.
	ErrDuplicateProbeID = errors.New("duplicate probe type id")
	// ErrProbeNotFound is returned when no probe has the requested name.
	ErrProbeNotFound = errors.New("probe not found")
	// ErrProbeTimeout marks a probe that exceeded its time budget.
	ErrProbeTimeout = errors.New("probe timed out")
	// ErrProbePanic marks a probe that panicked.
	ErrProbePanic = errors.New("probe panicked")
	// ErrNoExecutionContext is wrapped in a TopLevelInvocationError when
	// RunScan is called without an execution context.
	ErrNoExecutionContext = errors.New("no execution context")
)

// ProbeExecutionError wraps any failure of a single probe. The coordinator
// logs it and moves on; it never reaches the caller of RunScan.
type ProbeExecutionError struct {
	Probe  string
	TypeID int
	Err    error
}

func (e *ProbeExecutionError) Error() string {
	return fmt.Sprintf("probe %s (type %d): %v", e.Probe, e.TypeID, e.Err)
}

func (e *ProbeExecutionError) Unwrap() error { return e.Err }

// CapabilityError is a failure of a page inspection or network call.
// Probes are expected to handle it themselves.
type CapabilityError struct {
	Capability string // "page" or "network"
	Op         string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Capability, e.Op, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// TopLevelInvocationError means the scan could not start because the target
// or its execution context is unusable. No partial results accompany it.
type TopLevelInvocationError struct {
	URL string
	Err error
}

func (e *TopLevelInvocationError) Error() string {
	return fmt.Sprintf("cannot scan %s: %v", e.URL, e.Err)
}

func (e *TopLevelInvocationError) Unwrap() error { return e.Err }

// IsTopLevel reports whether err is a TopLevelInvocationError.
func IsTopLevel(err error) bool {
	var tl *TopLevelInvocationError
	return errors.As(err, &tl)
}
