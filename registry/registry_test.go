package registry

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefineRejectsDuplicateKey(t *testing.T) {
	r := New(zerolog.Nop())
	if err := r.Define("x", Int(KindI32, 1), true, false, nil); err != nil {
		t.Fatal(err)
	}
	err := r.Define("x", Int(KindI32, 2), true, false, nil)
	if !errors.Is(err, ErrMutability) {
		t.Fatalf("err = %v, want ErrMutability", err)
	}
}

func TestSetOnImmutableRegisterFails(t *testing.T) {
	r := New(zerolog.Nop())
	r.Define("x", Int(KindI32, 1), false, false, nil)
	err := r.Set("x", Int(KindI32, 2))
	if !errors.Is(err, ErrMutability) {
		t.Fatalf("err = %v, want ErrMutability", err)
	}
}

// TestNarrowingCoercionWorkedExample mirrors spec.md §8's testable
// property: a mutable u16 register accepts an in-range i32 write,
// reporting back as u16, and rejects an out-of-range one as Coercion.
func TestNarrowingCoercionWorkedExample(t *testing.T) {
	r := New(zerolog.Nop())
	if err := r.Define("node.id", Uint(KindU16, 0), true, false, nil); err != nil {
		t.Fatal(err)
	}

	if err := r.Set("node.id", Int(KindI32, 42)); err != nil {
		t.Fatalf("Set(42) = %v, want nil", err)
	}
	got, flags, err := r.Get("node.id")
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != KindU16 || len(got.Uints) != 1 || got.Uints[0] != 42 {
		t.Fatalf("got = %+v, want U16(42)", got)
	}
	if !flags.Mutable {
		t.Fatalf("flags = %+v, want Mutable", flags)
	}

	err = r.Set("node.id", Int(KindI32, 70000))
	if !errors.Is(err, ErrCoercion) {
		t.Fatalf("Set(70000) = %v, want ErrCoercion", err)
	}
	// The rejected write must not have taken effect.
	got, _, _ = r.Get("node.id")
	if got.Uints[0] != 42 {
		t.Fatalf("rejected write mutated register: got %+v", got)
	}
}

func TestSetRejectsNegativeIntoUnsigned(t *testing.T) {
	r := New(zerolog.Nop())
	r.Define("x", Uint(KindU8, 5), true, false, nil)
	err := r.Set("x", Int(KindI32, -1))
	if !errors.Is(err, ErrCoercion) {
		t.Fatalf("err = %v, want ErrCoercion", err)
	}
}

func TestSetRejectsCrossFamilyCoercion(t *testing.T) {
	r := New(zerolog.Nop())
	r.Define("x", Int(KindI32, 1), true, false, nil)
	err := r.Set("x", String("nope"))
	if !errors.Is(err, ErrCoercion) {
		t.Fatalf("err = %v, want ErrCoercion", err)
	}
}

func TestValidatorRejectsOutOfRangeSemantics(t *testing.T) {
	r := New(zerolog.Nop())
	validate := func(v Value) error {
		if v.Ints[0] > 100 {
			return errors.New("out of range")
		}
		return nil
	}
	r.Define("x", Int(KindI32, 1), true, false, validate)

	if err := r.Set("x", Int(KindI32, 50)); err != nil {
		t.Fatalf("Set(50) = %v, want nil", err)
	}
	err := r.Set("x", Int(KindI32, 999))
	if !errors.Is(err, ErrSemantics) {
		t.Fatalf("Set(999) = %v, want ErrSemantics", err)
	}
}

func TestU64RoundTripCoercion(t *testing.T) {
	r := New(zerolog.Nop())
	r.Define("x", Uint(KindU64, 0), true, false, nil)
	const big = uint64(1) << 40
	if err := r.Set("x", Uint(KindU64, big)); err != nil {
		t.Fatal(err)
	}
	got, _, _ := r.Get("x")
	if got.Uints[0] != big {
		t.Fatalf("got %d, want %d", got.Uints[0], big)
	}
}

func TestKeysSortedAndComplete(t *testing.T) {
	r := New(zerolog.Nop())
	r.Define("b", Int(KindI32, 1), true, false, nil)
	r.Define("a", Int(KindI32, 1), true, false, nil)
	got := r.Keys()
	want := []string{"a", "b"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Keys = %v, want %v", got, want)
	}
}

func TestSaveLoadTOMLRoundTripsPersistentRegisters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registers.toml")

	r1 := New(zerolog.Nop())
	r1.Define("node.id", Uint(KindU16, 10), true, true, nil)
	r1.Define("scratch", Int(KindI32, 1), true, false, nil) // not persistent
	r1.Set("node.id", Uint(KindU16, 99))
	if err := r1.SaveTOML(path); err != nil {
		t.Fatal(err)
	}

	r2 := New(zerolog.Nop())
	r2.Define("node.id", Uint(KindU16, 0), true, true, nil)
	r2.Define("scratch", Int(KindI32, 0), true, false, nil)
	if err := r2.LoadTOML(path); err != nil {
		t.Fatal(err)
	}

	got, flags, _ := r2.Get("node.id")
	if got.Uints[0] != 99 {
		t.Fatalf("node.id = %+v, want U16(99)", got)
	}
	if !flags.Persistent {
		t.Fatalf("flags = %+v, want Persistent", flags)
	}
	scratch, scratchFlags, _ := r2.Get("scratch")
	if scratch.Ints[0] != 0 {
		t.Fatalf("non-persistent register was overwritten: %+v", scratch)
	}
	if scratchFlags.Persistent {
		t.Fatalf("flags = %+v, want not Persistent", scratchFlags)
	}
}

func TestLoadTOMLMissingFileIsNotAnError(t *testing.T) {
	r := New(zerolog.Nop())
	err := r.LoadTOML(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("err = %v, want nil for missing file", err)
	}
}

func TestGetSetUnknownKey(t *testing.T) {
	r := New(zerolog.Nop())
	if _, _, err := r.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get err = %v, want ErrNotFound", err)
	}
	if err := r.Set("missing", Int(KindI32, 1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Set err = %v, want ErrNotFound", err)
	}
}
