package bitmap

import "github.com/gedis-io/gedis/internal/simd"

// BitCount implements the Population Kernel half of PSK: BITCOUNT over
// data[start:end] (inclusive, in the given unit), with the range
// defaulting/normalization rules of spec §4.2.
func BitCount(data []byte, start, end int64, unit Unit) uint64 {
	switch unit {
	case UnitByte:
		s, e, empty := NormalizeRange(int64(len(data)), start, end)
		if empty {
			return 0
		}
		return simd.PopcountSlice(data[s : e+1])
	default:
		lenBits := int64(len(data)) * 8
		s, e, empty := NormalizeRange(lenBits, start, end)
		if empty {
			return 0
		}
		return popcountBitRange(data, s, e)
	}
}

// popcountBitRange counts set bits in bits [s,e] inclusive, handling the
// two terminal, possibly-partial bytes with a mask and the interior
// bytes with the accelerated whole-byte popcount kernel.
func popcountBitRange(data []byte, s, e int64) uint64 {
	startByte := s >> 3
	endByte := e >> 3

	if startByte == endByte {
		mask := maskRangeInByte(s&7, e&7)
		return simd.PopcountByteMasked(data[startByte], mask)
	}

	var total uint64
	total += simd.PopcountByteMasked(data[startByte], maskRangeInByte(s&7, 7))
	if endByte > startByte+1 {
		total += simd.PopcountSlice(data[startByte+1 : endByte])
	}
	total += simd.PopcountByteMasked(data[endByte], maskRangeInByte(0, e&7))
	return total
}
