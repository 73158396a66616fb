package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Validator vetoes an otherwise well-typed write for application-defined
// reasons (e.g. a range check), per spec.md §4.8's Semantics rejection.
type Validator func(Value) error

// Flags carries a register's capability bits, the second half of what
// spec.md §4.8's get(key) returns alongside the value itself.
type Flags struct {
	Mutable    bool
	Persistent bool
}

// entry holds one register's value and capability flags.
type entry struct {
	value      Value
	mutable    bool
	persistent bool
	validate   Validator
}

// Registry is the named key/value application parameter store described
// in spec.md §4.8. All methods are safe for concurrent use; a guideline
// register in practice is read far more often than written.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	log     zerolog.Logger
}

// New constructs an empty registry.
func New(log zerolog.Logger) *Registry {
	return &Registry{entries: make(map[string]*entry), log: log}
}

// Define creates a register with an initial value and capability flags.
// Defining a key that already exists returns ErrMutability, mirroring
// the immutability of a register's kind and flags once established.
func (r *Registry) Define(key string, initial Value, mutable, persistent bool, validate Validator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[key]; exists {
		return fmt.Errorf("registry: define %q: %w", key, ErrMutability)
	}
	if validate != nil {
		if err := validate(initial); err != nil {
			return fmt.Errorf("registry: define %q: %w: %v", key, ErrSemantics, err)
		}
	}
	r.entries[key] = &entry{value: initial, mutable: mutable, persistent: persistent, validate: validate}
	r.log.Debug().Str("key", key).Str("kind", initial.Kind.String()).Bool("mutable", mutable).Msg("register defined")
	return nil
}

// Get returns the current value of key along with its capability flags,
// per spec.md §4.8's get(key) -> {value, flags{mutable, persistent}}.
func (r *Registry) Get(key string) (Value, Flags, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	if !ok {
		return Value{}, Flags{}, fmt.Errorf("registry: get %q: %w", key, ErrNotFound)
	}
	return e.value, Flags{Mutable: e.mutable, Persistent: e.persistent}, nil
}

// Set writes value to key, coercing it to the register's established
// kind. Per spec.md §4.8 this returns one of:
//
//	nil          - the write succeeded
//	ErrMutability - the register is not mutable
//	ErrCoercion   - value's kind cannot be represented as the register's kind
//	ErrSemantics  - the register's validator rejected the coerced value
func (r *Registry) Set(key string, value Value) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return fmt.Errorf("registry: set %q: %w", key, ErrNotFound)
	}
	if !e.mutable {
		return fmt.Errorf("registry: set %q: %w", key, ErrMutability)
	}
	coerced, ok := coerce(value, e.value.Kind)
	if !ok {
		return fmt.Errorf("registry: set %q: %w", key, ErrCoercion)
	}
	if e.validate != nil {
		if err := e.validate(coerced); err != nil {
			return fmt.Errorf("registry: set %q: %w: %v", key, ErrSemantics, err)
		}
	}
	e.value = coerced
	r.log.Debug().Str("key", key).Msg("register written")
	return nil
}

// Mutable reports whether key accepts writes.
func (r *Registry) Mutable(key string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	if !ok {
		return false, fmt.Errorf("registry: mutable %q: %w", key, ErrNotFound)
	}
	return e.mutable, nil
}

// Keys returns every defined register name in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
