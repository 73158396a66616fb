// Package registry implements the application parameter store
// described in spec.md §4.8: named key/value registers with a
// discriminated value union, per-register mutable/persistent
// capability flags, and coercion on write.
package registry

// Kind identifies a Value's underlying representation.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindI8
	KindI16
	KindI32
	KindI64
	KindU8
	KindU16
	KindU32
	KindU64
	KindF32
	KindF64
	KindBool
	KindString
	KindBytes
)

func (k Kind) String() string {
	names := map[Kind]string{
		KindEmpty: "empty", KindI8: "i8", KindI16: "i16", KindI32: "i32", KindI64: "i64",
		KindU8: "u8", KindU16: "u16", KindU32: "u32", KindU64: "u64",
		KindF32: "f32", KindF64: "f64", KindBool: "bool", KindString: "string", KindBytes: "bytes",
	}
	if n, ok := names[k]; ok {
		return n
	}
	return "unknown"
}

// Value is the discriminated union a register holds, per spec.md §4.8:
// every numeric and boolean kind is stored as a vector, with a scalar
// simply being a vector of length one.
type Value struct {
	Kind   Kind
	Ints   []int64  // i8/i16/i32/i64
	Uints  []uint64 // u8/u16/u32/u64
	Floats []float64
	Bools  []bool
	Str    string // KindString only
	Bytes  []byte // KindBytes only
}

// Len reports the number of scalar elements the value holds (1 for a
// scalar, 0 for Empty, the element count for a vector; String/Bytes
// report 1).
func (v Value) Len() int {
	switch v.Kind {
	case KindEmpty:
		return 0
	case KindString, KindBytes:
		return 1
	default:
		return len(v.Ints) + len(v.Uints) + len(v.Floats) + len(v.Bools)
	}
}

func Int(k Kind, v int64) Value   { return Value{Kind: k, Ints: []int64{v}} }
func Uint(k Kind, v uint64) Value { return Value{Kind: k, Uints: []uint64{v}} }
func Float(k Kind, v float64) Value { return Value{Kind: k, Floats: []float64{v}} }
func Bool(v bool) Value           { return Value{Kind: KindBool, Bools: []bool{v}} }
func String(v string) Value       { return Value{Kind: KindString, Str: v} }
func Bytes(v []byte) Value        { return Value{Kind: KindBytes, Bytes: append([]byte(nil), v...)} }

func IntVector(k Kind, vs []int64) Value   { return Value{Kind: k, Ints: append([]int64(nil), vs...)} }
func UintVector(k Kind, vs []uint64) Value { return Value{Kind: k, Uints: append([]uint64(nil), vs...)} }
func FloatVector(k Kind, vs []float64) Value {
	return Value{Kind: k, Floats: append([]float64(nil), vs...)}
}

func isIntKind(k Kind) bool {
	switch k {
	case KindI8, KindI16, KindI32, KindI64, KindU8, KindU16, KindU32, KindU64:
		return true
	}
	return false
}

func isSignedKind(k Kind) bool {
	switch k {
	case KindI8, KindI16, KindI32, KindI64:
		return true
	}
	return false
}

func isFloatKind(k Kind) bool {
	return k == KindF32 || k == KindF64
}

// intRange returns the representable [min, max] range of an integer
// kind, as signed bounds (an unsigned kind's min is always 0).
func intRange(k Kind) (min, max int64) {
	switch k {
	case KindI8:
		return -1 << 7, 1<<7 - 1
	case KindI16:
		return -1 << 15, 1<<15 - 1
	case KindI32:
		return -1 << 31, 1<<31 - 1
	case KindI64:
		return -1 << 63, 1<<63 - 1
	case KindU8:
		return 0, 1<<8 - 1
	case KindU16:
		return 0, 1<<16 - 1
	case KindU32:
		return 0, 1<<32 - 1
	case KindU64:
		return 0, 1<<63 - 1 // conservative: full uint64 range does not fit in int64.
	}
	return 0, 0
}
