package registry

import "errors"

// Sentinel errors returned by Registry.Set, per spec.md §4.8's
// "set(key, value) returns Ok or {Mutability | Coercion | Semantics}".
var (
	// ErrMutability is returned when writing to a register marked
	// immutable, or defining a register that already exists.
	ErrMutability = errors.New("registry: register is not mutable")

	// ErrCoercion is returned when the written value's kind cannot be
	// represented as the register's kind without losing information.
	ErrCoercion = errors.New("registry: value does not coerce to register kind")

	// ErrSemantics is returned when a register's validator rejects an
	// otherwise well-typed value (e.g. out of an application-defined
	// range).
	ErrSemantics = errors.New("registry: value rejected by register validator")

	// ErrNotFound is returned by Get/Set for an undefined key.
	ErrNotFound = errors.New("registry: register not found")
)
