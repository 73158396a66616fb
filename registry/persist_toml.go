package registry

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// persistedValue is the TOML-serializable projection of a Value. TOML
// has no tagged-union support, so each kind occupies its own optional
// field; exactly one is populated per register, chosen by Kind.
type persistedValue struct {
	Kind    string    `toml:"kind"`
	Ints    []int64   `toml:"ints,omitempty"`
	Uints   []uint64  `toml:"uints,omitempty"`
	Floats  []float64 `toml:"floats,omitempty"`
	Bools   []bool    `toml:"bools,omitempty"`
	Str     string    `toml:"str,omitempty"`
	Bytes   []byte    `toml:"bytes,omitempty"`
}

// persistedFile is the on-disk shape written by SaveTOML and read by
// LoadTOML: only persistent registers are serialized.
type persistedFile struct {
	Registers map[string]persistedValue `toml:"registers"`
}

var kindNames = map[Kind]string{
	KindEmpty: "empty", KindI8: "i8", KindI16: "i16", KindI32: "i32", KindI64: "i64",
	KindU8: "u8", KindU16: "u16", KindU32: "u32", KindU64: "u64",
	KindF32: "f32", KindF64: "f64", KindBool: "bool", KindString: "string", KindBytes: "bytes",
}

var namesToKind = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// SaveTOML writes every persistent register's current value to path,
// per spec.md §4.8's "a register may additionally be marked persistent,
// in which case its value survives a restart."
func (r *Registry) SaveTOML(path string) error {
	r.mu.RLock()
	out := persistedFile{Registers: make(map[string]persistedValue)}
	for key, e := range r.entries {
		if !e.persistent {
			continue
		}
		out.Registers[key] = persistedValue{
			Kind:   kindNames[e.value.Kind],
			Ints:   e.value.Ints,
			Uints:  e.value.Uints,
			Floats: e.value.Floats,
			Bools:  e.value.Bools,
			Str:    e.value.Str,
			Bytes:  e.value.Bytes,
		}
	}
	r.mu.RUnlock()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("registry: save %q: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(out); err != nil {
		return fmt.Errorf("registry: save %q: %w", path, err)
	}
	return nil
}

// LoadTOML overwrites the current value of every already-defined,
// persistent register with the value recorded at path. Keys present in
// the file but not yet Defined are ignored, so load order relative to
// Define does not matter: call Define for every register first, then
// LoadTOML to restore whichever of them were saved.
func (r *Registry) LoadTOML(path string) error {
	var in persistedFile
	if _, err := toml.DecodeFile(path, &in); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("registry: load %q: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for key, pv := range in.Registers {
		e, ok := r.entries[key]
		if !ok || !e.persistent {
			continue
		}
		kind, ok := namesToKind[pv.Kind]
		if !ok {
			continue
		}
		e.value = Value{
			Kind: kind, Ints: pv.Ints, Uints: pv.Uints, Floats: pv.Floats,
			Bools: pv.Bools, Str: pv.Str, Bytes: pv.Bytes,
		}
	}
	return nil
}
