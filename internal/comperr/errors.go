// Package comperr defines the typed errors returned by the compositor core.
// State-machine errors are returned to the mutating caller and never corrupt
// core state; the IPC layer maps them onto stable wire codes so shells can
// present localized messages instead of raw error strings.
package comperr

import (
	"errors"
	"fmt"
)

// Code identifies an error class on the control-surface wire.
type Code string

const (
	CodeUnknownSurface     Code = "unknown_surface"
	CodeInvalidRole        Code = "invalid_role"
	CodeDisconnectedLayout Code = "disconnected_layout"
	CodeBackendFailure     Code = "backend_failure"
	CodeProtocolViolation  Code = "protocol_violation"
	CodeInternal           Code = "internal"
)

// UnknownSurfaceError reports an operation against a surface identity that is
// not (or is no longer) in the surface table.
type UnknownSurfaceError struct {
	ID uint64
}

func (e *UnknownSurfaceError) Error() string {
	return fmt.Sprintf("unknown surface %d", e.ID)
}

// InvalidRoleError reports a surface creation that violates role constraints,
// such as a popup without a parent.
type InvalidRoleError struct {
	Role   string
	Reason string
}

func (e *InvalidRoleError) Error() string {
	return fmt.Sprintf("invalid role %s: %s", e.Role, e.Reason)
}

// DisconnectedLayoutError reports an output placement or disable that would
// split the desktop into regions the cursor cannot travel between.
type DisconnectedLayoutError struct {
	Output string
}

func (e *DisconnectedLayoutError) Error() string {
	return fmt.Sprintf("output %s: placement would disconnect the layout", e.Output)
}

// BackendFailureError reports a hardware or driver level failure, such as a
// rejected mode set.
type BackendFailureError struct {
	Output string
	Op     string
	Err    error
}

func (e *BackendFailureError) Error() string {
	return fmt.Sprintf("backend failure on %s during %s: %v", e.Output, e.Op, e.Err)
}

func (e *BackendFailureError) Unwrap() error { return e.Err }

// ProtocolViolationError reports a structurally invalid client request. It
// terminates the offending client connection, never the compositor.
type ProtocolViolationError struct {
	Client string
	Reason string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation from %s: %s", e.Client, e.Reason)
}

// CodeOf maps an error to its wire code. Unrecognized errors map to
// CodeInternal.
func CodeOf(err error) Code {
	var (
		unknown      *UnknownSurfaceError
		invalidRole  *InvalidRoleError
		disconnected *DisconnectedLayoutError
		backend      *BackendFailureError
		violation    *ProtocolViolationError
	)
	switch {
	case errors.As(err, &unknown):
		return CodeUnknownSurface
	case errors.As(err, &invalidRole):
		return CodeInvalidRole
	case errors.As(err, &disconnected):
		return CodeDisconnectedLayout
	case errors.As(err, &backend):
		return CodeBackendFailure
	case errors.As(err, &violation):
		return CodeProtocolViolation
	default:
		return CodeInternal
	}
}
