package bitmap

import (
	"math"
	"strconv"
	"strings"
)

// FieldType is a parsed bitfield type token: i{w} signed or u{w}
// unsigned, width in [1,64] signed / [1,63] unsigned (spec §4.4, §1
// Non-goals: unsigned 64-bit fields are not supported).
type FieldType struct {
	Signed bool
	Width  uint8
}

// ParseFieldType parses a `[iu]<width>` token.
func ParseFieldType(s string) (FieldType, error) {
	if len(s) < 2 {
		return FieldType{}, ErrBadBitfieldType
	}
	var signed bool
	switch s[0] {
	case 'i':
		signed = true
	case 'u':
		signed = false
	default:
		return FieldType{}, ErrBadBitfieldType
	}
	w, err := strconv.Atoi(s[1:])
	if err != nil || w <= 0 {
		return FieldType{}, ErrBadBitfieldType
	}
	if signed {
		if w > 64 {
			return FieldType{}, ErrBadBitfieldType
		}
	} else if w > 63 {
		return FieldType{}, ErrBadBitfieldType
	}
	return FieldType{Signed: signed, Width: uint8(w)}, nil
}

// ParseFieldOffset parses an absolute bit offset, or a `#N` type-multiple
// offset meaning N*width.
func ParseFieldOffset(s string, width uint8) (int64, error) {
	if strings.HasPrefix(s, "#") {
		rest := s[1:]
		if rest == "" {
			return 0, ErrBadOffset
		}
		n, err := strconv.ParseInt(rest, 10, 63)
		if err != nil || n < 0 {
			return 0, ErrBadOffset
		}
		if n > MaxBitOffset/int64(width) {
			return 0, ErrBadOffset
		}
		return n * int64(width), nil
	}
	off, err := strconv.ParseInt(s, 10, 63)
	if err != nil || off < 0 {
		return 0, ErrBadOffset
	}
	return off, nil
}

// Policy is the overflow handling mode for SET/INCRBY sub-ops.
type Policy int

const (
	PolicyWrap Policy = iota
	PolicySat
	PolicyFail
)

// ParsePolicy parses a case-insensitive OVERFLOW policy name.
func ParsePolicy(s string) (Policy, bool) {
	switch strings.ToUpper(s) {
	case "WRAP":
		return PolicyWrap, true
	case "SAT":
		return PolicySat, true
	case "FAIL":
		return PolicyFail, true
	default:
		return 0, false
	}
}

func maxSigned(w uint8) int64 {
	if w == 64 {
		return math.MaxInt64
	}
	return int64(1)<<(w-1) - 1
}

func minSigned(w uint8) int64 {
	if w == 64 {
		return math.MinInt64
	}
	return -(int64(1) << (w - 1))
}

func maxUnsigned(w uint8) uint64 {
	if w == 64 {
		return math.MaxUint64
	}
	return (uint64(1) << w) - 1
}

func widthMask(w uint8) uint64 {
	if w == 64 {
		return ^uint64(0)
	}
	return (uint64(1) << w) - 1
}

func decodeVal(t FieldType, raw uint64) int64 {
	if !t.Signed {
		return int64(raw)
	}
	if t.Width == 64 {
		return int64(raw)
	}
	signBit := uint64(1) << (t.Width - 1)
	if raw&signBit != 0 {
		return int64(raw) - int64(uint64(1)<<t.Width)
	}
	return int64(raw)
}

// fitsOrClamp reports whether v is representable in t, and the clamp
// target (maxS/minS for signed, maxU/0 for unsigned) otherwise.
func fitsOrClamp(t FieldType, v int64) (fits bool, clamped int64) {
	if t.Signed {
		maxS, minS := maxSigned(t.Width), minSigned(t.Width)
		if v > maxS {
			return false, maxS
		}
		if v < minS {
			return false, minS
		}
		return true, v
	}
	maxU := maxUnsigned(t.Width)
	if v < 0 {
		return false, 0
	}
	if uint64(v) > maxU {
		return false, int64(maxU)
	}
	return true, v
}

func truncateSigned(sum int64, w uint8) int64 {
	if w == 64 {
		return sum
	}
	mask := (uint64(1) << w) - 1
	v := uint64(sum) & mask
	signBit := uint64(1) << (w - 1)
	if v&signBit != 0 {
		return int64(v) - int64(uint64(1)<<w)
	}
	return int64(v)
}

func truncateUnsigned(v uint64, w uint8) uint64 {
	if w == 64 {
		return v
	}
	return v & ((uint64(1) << w) - 1)
}

type overflowDir int

const (
	noOverflow  overflowDir = 0
	overflowPos overflowDir = 1
	overflowNeg overflowDir = -1
)

// applyIncrWithOverflow computes old+incr truncated to t's width (the
// WRAP-policy result) and reports whether that addition overflowed or
// underflowed t's representable range, per the exact formulas of spec
// §4.4 "Overflow arithmetic".
func applyIncrWithOverflow(t FieldType, old, incr int64) (wrapped int64, dir overflowDir) {
	if t.Signed {
		maxS, minS := maxSigned(t.Width), minSigned(t.Width)
		switch {
		case old >= 0 && incr > 0 && incr > maxS-old:
			dir = overflowPos
		case old < 0 && incr < 0 && incr < minS-old:
			dir = overflowNeg
		}
		return truncateSigned(old+incr, t.Width), dir
	}

	maxU := maxUnsigned(t.Width)
	if incr >= 0 {
		if uint64(incr) > maxU-uint64(old) {
			dir = overflowPos
		}
	} else {
		if uint64(-incr) > uint64(old) {
			dir = overflowNeg
		}
	}
	sum := uint64(old) + uint64(incr)
	return int64(truncateUnsigned(sum, t.Width)), dir
}

func maxRepresentable(t FieldType) int64 {
	if t.Signed {
		return maxSigned(t.Width)
	}
	return int64(maxUnsigned(t.Width))
}

func minRepresentable(t FieldType) int64 {
	if t.Signed {
		return minSigned(t.Width)
	}
	return 0
}
