package registry

import "math"

// coerce attempts to represent src as dstKind, preserving value, per
// spec.md §4.8's "narrowing/widening with value preservation" rule. ok
// is false if any element would lose information (out of range, or the
// kinds are not in the same family).
func coerce(src Value, dstKind Kind) (Value, bool) {
	if src.Kind == dstKind {
		return src, true
	}
	switch {
	case isIntKind(src.Kind) && isIntKind(dstKind):
		return coerceInt(src, dstKind)
	case isFloatKind(src.Kind) && isFloatKind(dstKind):
		return coerceFloat(src, dstKind)
	case src.Kind == KindBool && dstKind == KindBool:
		return src, true
	default:
		return Value{}, false
	}
}

func coerceInt(src Value, dstKind Kind) (Value, bool) {
	n := len(src.Ints) + len(src.Uints)
	min, max := intRange(dstKind)
	dstUnsigned := !isSignedKind(dstKind) && dstKind != KindEmpty

	if dstKind == KindU64 {
		out := make([]uint64, 0, n)
		for _, v := range src.Ints {
			if v < 0 {
				return Value{}, false
			}
			out = append(out, uint64(v))
		}
		for _, v := range src.Uints {
			out = append(out, v) // any uint64 fits u64.
		}
		return Value{Kind: dstKind, Uints: out}, true
	}

	var outInts []int64
	var outUints []uint64
	for _, v := range src.Ints {
		if v < min || v > max {
			return Value{}, false
		}
		if dstUnsigned {
			outUints = append(outUints, uint64(v))
		} else {
			outInts = append(outInts, v)
		}
	}
	for _, v := range src.Uints {
		if src.Kind == KindU64 && v > uint64(math.MaxInt64) {
			// Only a u64->u64 coercion (handled above) can represent
			// this; every other destination is too narrow.
			return Value{}, false
		}
		sv := int64(v)
		if sv < min || sv > max {
			return Value{}, false
		}
		if dstUnsigned {
			outUints = append(outUints, uint64(sv))
		} else {
			outInts = append(outInts, sv)
		}
	}
	return Value{Kind: dstKind, Ints: outInts, Uints: outUints}, true
}

func coerceFloat(src Value, dstKind Kind) (Value, bool) {
	out := make([]float64, 0, len(src.Floats))
	for _, v := range src.Floats {
		if dstKind == KindF32 {
			f32 := float32(v)
			if float64(f32) != v && !math.IsNaN(v) {
				return Value{}, false
			}
		}
		out = append(out, v)
	}
	return Value{Kind: dstKind, Floats: out}, true
}
