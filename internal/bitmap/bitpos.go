package bitmap

import "github.com/gedis-io/gedis/internal/simd"

// BitPos implements the Search Kernel half of PSK: BITPOS scanning
// forward for the first bit equal to `bit` within data[start:end]
// (inclusive, in the given unit).
//
// endDefaulted must be true only when the caller omitted `end` entirely
// (not merely when it equals the default -1): per spec §4.2 and the
// Open Question in §9, the zero-extension fallback (returning len_bits
// when no 0 bit is found) applies only to a defaulted end, never to an
// explicit one.
func BitPos(data []byte, bit int, start, end int64, endDefaulted bool, unit Unit) int64 {
	lenBits := int64(len(data)) * 8

	var lenUnits int64
	if unit == UnitByte {
		lenUnits = int64(len(data))
	} else {
		lenUnits = lenBits
	}

	s, e, empty := NormalizeRange(lenUnits, start, end)
	if empty {
		if bit == 0 && endDefaulted {
			return lenBits
		}
		return -1
	}

	var bitStart, bitEnd int64
	if unit == UnitByte {
		bitStart, bitEnd = s*8, e*8+7
	} else {
		bitStart, bitEnd = s, e
	}

	if pos, ok := findBitInRange(data, bitStart, bitEnd, bit); ok {
		return pos
	}
	if bit == 0 && endDefaulted {
		return lenBits
	}
	return -1
}

func findBitInRange(data []byte, bitStart, bitEnd int64, bit int) (int64, bool) {
	startByte := bitStart >> 3
	endByte := bitEnd >> 3

	if startByte == endByte {
		return findBitInByteRange(data[startByte], bitStart&7, bitEnd&7, bit, startByte)
	}

	if pos, ok := findBitInByteRange(data[startByte], bitStart&7, 7, bit, startByte); ok {
		return pos, true
	}
	if endByte > startByte+1 {
		if pos, ok := simd.FindFirstBit(data, int(startByte+1), int(endByte-1), bit); ok {
			return pos, true
		}
	}
	return findBitInByteRange(data[endByte], 0, bitEnd&7, bit, endByte)
}

// findBitInByteRange scans MSB-first bit positions [fromBit,toBit]
// within a single byte for the first occurrence of `bit`.
func findBitInByteRange(b byte, fromBit, toBit int64, bit int, byteIdx int64) (int64, bool) {
	for p := fromBit; p <= toBit; p++ {
		mask := byte(1) << uint(7-p)
		v := 0
		if b&mask != 0 {
			v = 1
		}
		if v == bit {
			return byteIdx*8 + p, true
		}
	}
	return 0, false
}
