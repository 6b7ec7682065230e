package resp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInlineCommand(t *testing.T) {
	args, consumed, err := ParseCommand([]byte("SETBIT k 7 1\r\n"))
	require.NoError(t, err)
	require.NotNil(t, args)
	assert.Equal(t, len("SETBIT k 7 1\r\n"), consumed)
	assert.Equal(t, [][]byte{[]byte("SETBIT"), []byte("k"), []byte("7"), []byte("1")}, args)
}

func TestParseInlineCommandIncomplete(t *testing.T) {
	args, consumed, err := ParseCommand([]byte("SETBIT k 7"))
	require.NoError(t, err)
	assert.Nil(t, args)
	assert.Equal(t, 0, consumed)
}

func TestParseMultiBulkCommand(t *testing.T) {
	wire := "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n"
	args, consumed, err := ParseCommand([]byte(wire))
	require.NoError(t, err)
	assert.Equal(t, len(wire), consumed)
	assert.Equal(t, [][]byte{[]byte("SET"), []byte("k"), []byte("v")}, args)
}

func TestParseMultiBulkCommandIncompleteWaitsForMoreBytes(t *testing.T) {
	wire := "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv"
	args, consumed, err := ParseCommand([]byte(wire))
	require.NoError(t, err)
	assert.Nil(t, args)
	assert.Equal(t, 0, consumed)
}

func TestParseMultiBulkCommandTwoCommandsInOneBuffer(t *testing.T) {
	wire := "*1\r\n$4\r\nPING\r\n*1\r\n$4\r\nPING\r\n"
	args, consumed, err := ParseCommand([]byte(wire))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("PING")}, args)

	args2, consumed2, err := ParseCommand([]byte(wire)[consumed:])
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("PING")}, args2)
	assert.Equal(t, consumed, consumed2)
}

func TestParseMultiBulkRejectsOversizeBulkLen(t *testing.T) {
	wire := "*1\r\n$999999\r\n"
	_, _, err := ParseCommand([]byte(wire))
	assert.ErrorIs(t, err, ErrCommandTooBig)
}

func TestParseMultiBulkZeroElementArray(t *testing.T) {
	args, consumed, err := ParseCommand([]byte("*0\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, consumed)
	assert.Len(t, args, 0)
}

func TestEncodeReplies(t *testing.T) {
	assert.Equal(t, []byte("+OK\r\n"), EncodeSimpleString("OK"))
	assert.Equal(t, []byte("-ERR syntax error\r\n"), EncodeError("syntax error"))
	assert.Equal(t, []byte(":42\r\n"), EncodeInteger(42))
	assert.Equal(t, []byte("$3\r\nfoo\r\n"), EncodeBulkString([]byte("foo")))
	assert.Equal(t, []byte("$-1\r\n"), EncodeBulkString(nil))

	arr := EncodeArray([][]byte{EncodeInteger(1), EncodeNullBulk()})
	assert.Equal(t, []byte("*2\r\n:1\r\n$-1\r\n"), arr)
}
