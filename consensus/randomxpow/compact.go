package randomxpow

import (
	"github.com/holiman/uint256"
)

// CompactTarget is the 32-bit big-endian-byte-exponent encoding of a
// non-negative 256-bit target, matching the Bitcoin nBits convention:
// one exponent byte in the high byte, a 3-byte mantissa in the low bytes,
// whose own high bit doubles as a sign flag.
type CompactTarget uint32

// Target256 is the decoded 256-bit unsigned target.
type Target256 struct {
	v uint256.Int
}

func NewTarget256(v *uint256.Int) Target256 {
	var t Target256
	t.v.Set(v)
	return t
}

func (t Target256) Uint256() *uint256.Int {
	return new(uint256.Int).Set(&t.v)
}

func (t Target256) IsZero() bool { return t.v.IsZero() }

func (t Target256) Cmp(other Target256) int { return t.v.Cmp(&other.v) }

// Encode implements the standard base-256 scientific encoding. The
// top bit of the 3-byte mantissa is reserved for the sign flag, which
// this function never sets: Target256 values are always non-negative.
func Encode(n Target256) CompactTarget {
	v := n.v
	if v.IsZero() {
		return 0
	}
	size := (v.BitLen() + 7) / 8

	var compact uint32
	if size <= 3 {
		compact = uint32(v.Uint64()) << (8 * uint(3-size))
	} else {
		shifted := new(uint256.Int).Rsh(&v, uint(8*(size-3)))
		compact = uint32(shifted.Uint64())
	}

	// If the mantissa's top bit would collide with the sign flag, shift
	// right by a byte and bump the exponent to compensate.
	if compact&0x00800000 != 0 {
		compact >>= 8
		size++
	}

	compact |= uint32(size) << 24
	return CompactTarget(compact)
}

// Decode unpacks a CompactTarget, reporting the specific invariant
// violated, if any, per the Kind taxonomy. The sign and overflow checks
// apply only to a nonzero mantissa, so a zero mantissa reports
// KindInvalidCompactZero even when the sign bit is set.
func Decode(c CompactTarget) (Target256, *Error) {
	raw := uint32(c)
	size := raw >> 24
	word := raw & 0x007fffff
	negative := word != 0 && raw&0x00800000 != 0

	if negative {
		return Target256{}, newError(KindInvalidCompactNegative, "sign bit set")
	}

	overflow := word != 0 && (size > 34 ||
		(word > 0xff && size > 33) ||
		(word > 0xffff && size > 32))
	if overflow {
		return Target256{}, newError(KindInvalidCompactOverflow, "mantissa exceeds 256 bits")
	}

	var v uint256.Int
	if size <= 3 {
		v.SetUint64(uint64(word) >> (8 * (3 - size)))
	} else {
		v.SetUint64(uint64(word))
		v.Lsh(&v, uint(8*(size-3)))
	}

	if v.IsZero() {
		return Target256{}, newError(KindInvalidCompactZero, "zero mantissa")
	}

	return Target256{v: v}, nil
}

// DeriveTarget is the single chokepoint every consumer of a compact
// target must route through: it folds decode failure, zero, and
// above-limit conditions into a single (zero Target256, false) result so that policy
// is enforced exactly once.
func DeriveTarget(c CompactTarget, powLimit Target256) (Target256, bool) {
	t, err := Decode(c)
	if err != nil {
		return Target256{}, false
	}
	if t.IsZero() {
		return Target256{}, false
	}
	if t.Cmp(powLimit) > 0 {
		return Target256{}, false
	}
	return t, true
}
