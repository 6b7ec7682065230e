package bitmap

import "errors"

// Sentinel errors carrying the exact wire-visible messages from spec §6.
// The dispatcher translates these to RESP error replies verbatim; the
// engine itself never retries or wraps them.
var (
	ErrBadOffset       = errors.New("bit offset is not an integer or out of range")
	ErrBadValue        = errors.New("value is not an integer or out of range.")
	ErrBadBitfieldType = errors.New("Invalid bitfield type. Use something like i16 u8. Note that u64 is not supported but i64 is")
	ErrBadOverflowType = errors.New("Invalid OVERFLOW type specified")
	ErrTooManySources  = errors.New("Bitop source key limit (64) exceeded")
	ErrSyntax          = errors.New("syntax error")
)
