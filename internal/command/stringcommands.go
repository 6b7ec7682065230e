package command

import (
	"strconv"

	"github.com/gedis-io/gedis/internal/bitmap"
	"github.com/gedis-io/gedis/internal/resp"
	"github.com/gedis-io/gedis/internal/store"
)

// getCommand and setCommand are the ambient unified-binary-value
// commands SPEC_FULL.md adds: the Data Model's "value is a binary
// string" applies just as much to a plain GET/SET as it does to a
// bitmap, so both share one keyspace entry and neither tags its type
// (unlike the teacher's separate STR/BITMAP GType, see DESIGN.md).
func getCommand(ks *store.Keyspace, args [][]byte) []byte {
	vs, release := ks.Acquire(string(args[1]))
	defer release()
	return resp.EncodeBulkString(vs.Bytes())
}

func setCommand(ks *store.Keyspace, args [][]byte) []byte {
	vs, release := ks.Acquire(string(args[1]))
	defer release()
	vs.Replace(append([]byte(nil), args[2]...))
	return resp.EncodeSimpleString("OK")
}

func delCommand(ks *store.Keyspace, args [][]byte) []byte {
	var n int64
	for _, a := range args[1:] {
		if ks.Del(string(a)) {
			n++
		}
	}
	return resp.EncodeInteger(n)
}

func pexpireatCommand(ks *store.Keyspace, args [][]byte) []byte {
	at, err := strconv.ParseInt(string(args[2]), 10, 64)
	if err != nil {
		return resp.EncodeError(bitmap.ErrBadValue.Error())
	}
	if ks.PExpireAt(string(args[1]), at) {
		return resp.EncodeInteger(1)
	}
	return resp.EncodeInteger(0)
}
