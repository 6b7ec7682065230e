package bitmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateOffset(t *testing.T) {
	assert.NoError(t, ValidateOffset(0))
	assert.NoError(t, ValidateOffset(MaxBitOffset))
	assert.ErrorIs(t, ValidateOffset(-1), ErrBadOffset)
	assert.ErrorIs(t, ValidateOffset(MaxBitOffset+1), ErrBadOffset)
}

func TestGetBitZeroExtendsPastKeyLength(t *testing.T) {
	assert.Equal(t, 0, GetBit(nil, 0))
	assert.Equal(t, 0, GetBit([]byte{0xff}, 100))
}

func TestGetBitMSBFirst(t *testing.T) {
	data := []byte{0x80}
	assert.Equal(t, 1, GetBit(data, 0))
	assert.Equal(t, 0, GetBit(data, 1))
}

func TestSetBitReturnsPriorValueAndGrows(t *testing.T) {
	vs := &memStore{}
	prev := SetBit(vs, 7, 1)
	assert.Equal(t, 0, prev)
	assert.Equal(t, []byte{0x01}, vs.Bytes())

	prev = SetBit(vs, 7, 0)
	assert.Equal(t, 1, prev)
	assert.Equal(t, []byte{0x00}, vs.Bytes())
}

func TestSetBitGrowsAcrossByteBoundary(t *testing.T) {
	vs := &memStore{}
	SetBit(vs, 100, 1)
	assert.Len(t, vs.Bytes(), 13)
	assert.Equal(t, 1, GetBit(vs.Bytes(), 100))
}
