package simd

import (
	"encoding/binary"
	"math/bits"
)

// popcountTable is the 256-entry lookup table used by every tier to
// finish off the bytes that don't fill a whole word, and by
// PopcountByteMasked for single masked bytes.
var popcountTable = func() [256]uint8 {
	var t [256]uint8
	for i := range t {
		t[i] = uint8(bits.OnesCount8(uint8(i)))
	}
	return t
}()

// PopcountSlice counts the set bits across every byte of data. The
// implementation selected is fixed at process start by ActiveISA; all
// tiers are required to agree bit-for-bit with the Generic tier, which
// is the property the randomized equivalence tests in popcount_test.go
// check.
func PopcountSlice(data []byte) uint64 {
	switch activeISA {
	case Wide256:
		return popcountBytesWide(data, 4)
	case Wide128:
		return popcountBytesWide(data, 2)
	default:
		return popcountBytesGeneric(data)
	}
}

func popcountBytesGeneric(data []byte) uint64 {
	var count uint64
	i := 0
	for ; i+8 <= len(data); i += 8 {
		count += uint64(bits.OnesCount64(binary.LittleEndian.Uint64(data[i : i+8])))
	}
	for ; i < len(data); i++ {
		count += uint64(popcountTable[data[i]])
	}
	return count
}

// popcountBytesWide processes `lanes` 64-bit words per iteration before
// falling back to the single-word loop and the byte-table tail. lanes
// of 2 and 4 stand in for 128-bit and 256-bit SIMD register widths.
func popcountBytesWide(data []byte, lanes int) uint64 {
	var count uint64
	chunk := lanes * 8
	i := 0
	for ; i+chunk <= len(data); i += chunk {
		for l := 0; l < lanes; l++ {
			off := i + l*8
			count += uint64(bits.OnesCount64(binary.LittleEndian.Uint64(data[off : off+8])))
		}
	}
	for ; i+8 <= len(data); i += 8 {
		count += uint64(bits.OnesCount64(binary.LittleEndian.Uint64(data[i : i+8])))
	}
	for ; i < len(data); i++ {
		count += uint64(popcountTable[data[i]])
	}
	return count
}

// PopcountByteMasked counts the set bits of a single byte after masking
// with m, used by the BITCOUNT BIT-unit range for its two terminal,
// partially-covered bytes.
func PopcountByteMasked(b, m byte) uint64 {
	return uint64(popcountTable[b&m])
}
