package simd

import (
	"math/bits"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func scalarFindFirstBit(data []byte, start, end, bit int) (int64, bool) {
	if end >= len(data) {
		end = len(data) - 1
	}
	for i := start; i <= end; i++ {
		b := data[i]
		if bit == 0 {
			b = ^b
		}
		if b == 0 {
			continue
		}
		return int64(i)*8 + int64(bits.LeadingZeros8(b)), true
	}
	return 0, false
}

func TestFindFirstBitKnownVectors(t *testing.T) {
	data := []byte{0x00, 0xff, 0xf0}
	pos, ok := FindFirstBit(data, 0, len(data)-1, 1)
	assert.True(t, ok)
	assert.Equal(t, int64(8), pos)

	pos, ok = FindFirstBit(data, 2, len(data)-1, 1)
	assert.True(t, ok)
	assert.Equal(t, int64(16), pos)

	_, ok = FindFirstBit(data, 0, 0, 1)
	assert.False(t, ok)

	pos, ok = FindFirstBit(data, 0, 0, 0)
	assert.True(t, ok)
	assert.Equal(t, int64(0), pos)
}

func TestFindFirstBitMatchesScalarOracleAcrossTiers(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for trial := 0; trial < 300; trial++ {
		n := 1 + r.Intn(64)
		data := make([]byte, n)
		r.Read(data)
		start := r.Intn(n)
		end := start + r.Intn(n-start)
		bit := r.Intn(2)

		wantPos, wantOK := scalarFindFirstBit(data, start, end, bit)
		for _, isa := range []ISA{Generic, Wide128, Wide256} {
			prev := activeISA
			activeISA = isa
			gotPos, gotOK := FindFirstBit(data, start, end, bit)
			activeISA = prev
			assert.Equalf(t, wantOK, gotOK, "tier=%s", isa)
			if wantOK {
				assert.Equalf(t, wantPos, gotPos, "tier=%s", isa)
			}
		}
	}
}
