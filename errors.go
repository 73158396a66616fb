package transport

import "errors"

// Domain error taxonomy per spec: carrier-agnostic sentinel errors
// returned by every fallible public operation. Callers should use
// errors.Is against these values; call sites wrap them with fmt.Errorf's
// %w to add context.
var (
	// ErrArgument indicates the caller violated a precondition: an
	// out-of-range id, an invalid transition, or similarly malformed
	// input.
	ErrArgument = errors.New("cyphal: invalid argument")

	// ErrMemory indicates an allocation failure in the injected memory
	// resource.
	ErrMemory = errors.New("cyphal: memory allocation failed")

	// ErrCapacity indicates a fixed-size queue or buffer is full.
	ErrCapacity = errors.New("cyphal: capacity exceeded")

	// ErrAlreadyExists indicates an attempt to create a duplicate
	// (kind, port-id) RX session.
	ErrAlreadyExists = errors.New("cyphal: session already exists")

	// ErrNotImplemented indicates the requested operation is not offered
	// by the active media or transport profile.
	ErrNotImplemented = errors.New("cyphal: not implemented")

	// ErrPlatform indicates a non-recoverable error reported by the
	// underlying media or OS.
	ErrPlatform = errors.New("cyphal: platform error")

	// ErrDecode indicates presentation-layer payload deserialization
	// failed.
	ErrDecode = errors.New("cyphal: payload decode failed")

	// ErrExpired indicates a deadline elapsed before completion
	// (response promise).
	ErrExpired = errors.New("cyphal: deadline expired")
)
