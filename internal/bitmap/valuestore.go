// Package bitmap implements the bitmap value engine: the Bit Accessor
// (BA), the Population & Search Kernel (PSK), the Bitwise Combine
// Engine (BCE) and, in bitfield.go, the Bitfield Codec (BFC). Every
// kernel here is a pure function over a ValueStore or a plain []byte;
// none of them hold state across calls, and none of them know about
// RESP, the dispatcher, or the keyspace's locking — that wiring lives
// in internal/store and internal/command.
package bitmap

// ValueStore is the Byte-Array Value Store contract (BAVS) the bitmap
// engine depends on. Implementations own the storage and the exclusive
// acquisition of the key; by the time a ValueStore reaches a bitmap
// function, the caller already holds that exclusive acquisition for the
// duration of the command.
type ValueStore interface {
	// Bytes returns the current value, or nil if the key does not exist.
	// The returned slice must not be retained past the call that
	// produced it; mutate through Grow/Replace instead.
	Bytes() []byte

	// Grow ensures the value is at least minLen bytes, zero-padding any
	// newly added bytes, and returns the (possibly grown) value. Calling
	// Grow creates the key if it did not already exist.
	Grow(minLen int64) []byte

	// Replace atomically installs data as the new value. If data is
	// empty and the key did not already exist, Replace must not create
	// it (BITOP's "all sources empty" case never creates the
	// destination).
	Replace(data []byte)
}
