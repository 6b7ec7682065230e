package resp

import (
	"strconv"
)

// EncodeSimpleString encodes a RESP "+" reply.
func EncodeSimpleString(s string) []byte {
	return append([]byte("+"+s), '\r', '\n')
}

// EncodeError encodes a RESP "-" reply. msg is wire-visible verbatim,
// matching the exact sentinel error strings the bitmap engine returns.
func EncodeError(msg string) []byte {
	return append([]byte("-ERR "+msg), '\r', '\n')
}

// EncodeInteger encodes a RESP ":" reply.
func EncodeInteger(n int64) []byte {
	return append([]byte(":"+strconv.FormatInt(n, 10)), '\r', '\n')
}

// EncodeBulkString encodes a RESP "$" reply. A nil slice encodes the
// null bulk string ($-1), matching GETBIT/BITPOS-style "key absent"
// semantics for ambient GET.
func EncodeBulkString(b []byte) []byte {
	if b == nil {
		return []byte("$-1\r\n")
	}
	out := make([]byte, 0, len(b)+16)
	out = append(out, '$')
	out = strconv.AppendInt(out, int64(len(b)), 10)
	out = append(out, '\r', '\n')
	out = append(out, b...)
	out = append(out, '\r', '\n')
	return out
}

// EncodeNullBulk encodes a RESP2 null element within an array, used for
// a FAIL-policy BITFIELD sub-op that produced no result.
func EncodeNullBulk() []byte {
	return []byte("$-1\r\n")
}

// EncodeArray encodes a RESP "*" reply whose elements are already
// individually RESP-encoded.
func EncodeArray(items [][]byte) []byte {
	out := make([]byte, 0, 16)
	out = append(out, '*')
	out = strconv.AppendInt(out, int64(len(items)), 10)
	out = append(out, '\r', '\n')
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}
