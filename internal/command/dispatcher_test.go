package command

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gedis-io/gedis/internal/store"
)

func args(parts ...string) [][]byte {
	out := make([][]byte, len(parts))
	for i, p := range parts {
		out[i] = []byte(p)
	}
	return out
}

func TestDispatchUnknownCommand(t *testing.T) {
	ks := store.NewKeyspace()
	reply := Dispatch(ks, args("BOGUS"))
	assert.Contains(t, string(reply), "unknown command")
}

func TestDispatchWrongArity(t *testing.T) {
	ks := store.NewKeyspace()
	reply := Dispatch(ks, args("GET"))
	assert.Contains(t, string(reply), "wrong number of arguments")
}

func TestDispatchSetbitGetbitRoundTrip(t *testing.T) {
	ks := store.NewKeyspace()

	reply := Dispatch(ks, args("SETBIT", "k", "7", "1"))
	assert.Equal(t, []byte(":0\r\n"), reply)

	reply = Dispatch(ks, args("GETBIT", "k", "7"))
	assert.Equal(t, []byte(":1\r\n"), reply)

	reply = Dispatch(ks, args("GETBIT", "k", "6"))
	assert.Equal(t, []byte(":0\r\n"), reply)
}

func TestDispatchSetbitBadOffset(t *testing.T) {
	ks := store.NewKeyspace()
	reply := Dispatch(ks, args("SETBIT", "k", "-1", "1"))
	assert.Equal(t, "-ERR bit offset is not an integer or out of range\r\n", string(reply))
}

func TestDispatchBitcountFoobar(t *testing.T) {
	ks := store.NewKeyspace()
	Dispatch(ks, args("SET", "k", "foobar"))

	reply := Dispatch(ks, args("BITCOUNT", "k"))
	assert.Equal(t, []byte(":26\r\n"), reply)

	reply = Dispatch(ks, args("BITCOUNT", "k", "1", "1"))
	assert.Equal(t, []byte(":6\r\n"), reply)
}

func TestDispatchBitopAndRejectsTooManySources(t *testing.T) {
	ks := store.NewKeyspace()
	big := []string{"BITOP", "AND", "dst"}
	for i := 0; i < 65; i++ {
		big = append(big, "src")
	}
	reply := Dispatch(ks, args(big...))
	assert.Contains(t, string(reply), "Bitop source key limit (64) exceeded")
}

func TestSetBitopMaxSourcesLowersTheEffectiveLimit(t *testing.T) {
	SetBitopMaxSources(2)
	defer SetBitopMaxSources(64)

	ks := store.NewKeyspace()
	Dispatch(ks, args("SET", "a", "x"))
	Dispatch(ks, args("SET", "b", "y"))
	Dispatch(ks, args("SET", "c", "z"))

	reply := Dispatch(ks, args("BITOP", "AND", "dst", "a", "b", "c"))
	assert.Contains(t, string(reply), "Bitop source key limit (2) exceeded")

	reply = Dispatch(ks, args("BITOP", "AND", "dst", "a", "b"))
	assert.NotContains(t, string(reply), "ERR")
}

func TestSetBitopMaxSourcesIgnoresOutOfRangeValues(t *testing.T) {
	SetBitopMaxSources(64)
	SetBitopMaxSources(0)
	SetBitopMaxSources(-1)
	SetBitopMaxSources(65)
	assert.Equal(t, 64, bitopMaxSources)
}

func TestDispatchBitopAnd(t *testing.T) {
	ks := store.NewKeyspace()
	Dispatch(ks, args("SET", "a", "abc"))
	Dispatch(ks, args("SET", "b", "abd"))

	reply := Dispatch(ks, args("BITOP", "AND", "dst", "a", "b"))
	assert.Equal(t, []byte(":3\r\n"), reply)

	reply = Dispatch(ks, args("GET", "dst"))
	assert.Equal(t, []byte("$3\r\nab`\r\n"), reply)
}

func TestDispatchBitfieldSetGet(t *testing.T) {
	ks := store.NewKeyspace()
	reply := Dispatch(ks, args("BITFIELD", "k", "SET", "u8", "0", "255", "GET", "u8", "0"))
	assert.Equal(t, []byte("*2\r\n:0\r\n:255\r\n"), reply)
}

func TestDispatchBitfieldRoRejectsSet(t *testing.T) {
	ks := store.NewKeyspace()
	reply := Dispatch(ks, args("BITFIELD_RO", "k", "SET", "u8", "0", "1"))
	assert.Equal(t, "-ERR syntax error\r\n", string(reply))
}

func TestDispatchDelAndExpire(t *testing.T) {
	ks := store.NewKeyspace()
	Dispatch(ks, args("SET", "k", "v"))

	reply := Dispatch(ks, args("PEXPIREAT", "k", "1"))
	assert.Equal(t, []byte(":1\r\n"), reply)

	reply = Dispatch(ks, args("GET", "k"))
	assert.Equal(t, []byte("$-1\r\n"), reply)

	reply = Dispatch(ks, args("DEL", "k"))
	assert.Equal(t, []byte(":0\r\n"), reply)
}
