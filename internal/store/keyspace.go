package store

import (
	"sort"
	"sync"
	"time"

	"github.com/gedis-io/gedis/internal/bitmap"
)

// numStripes is the number of independent per-key acquisition locks.
// Keys hash onto a stripe; a single stripe lock stands in for "the
// exclusive acquisition of this key" (spec §5). 256 keeps stripe
// contention low without a lock per key.
const numStripes = 256

// Keyspace is the server's single table of keys to binary values. It
// owns the Dict (the structural index) and the per-key acquisition
// stripes bitmap operations run under.
type Keyspace struct {
	dict    *Dict
	stripes [numStripes]sync.Mutex

	expMu    sync.Mutex
	expireAt map[string]int64 // unix millis
}

// NewKeyspace returns an empty Keyspace.
func NewKeyspace() *Keyspace {
	return &Keyspace{
		dict:     NewDict(),
		expireAt: make(map[string]int64),
	}
}

func stripeOf(key string) int {
	return int(hashKey(key) % numStripes)
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// checkExpired lazily evicts key if its TTL has passed. Callers must
// already hold key's stripe lock.
func (ks *Keyspace) checkExpired(key string) {
	ks.expMu.Lock()
	at, ok := ks.expireAt[key]
	ks.expMu.Unlock()
	if ok && at <= nowMillis() {
		ks.dict.Delete(key)
		ks.expMu.Lock()
		delete(ks.expireAt, key)
		ks.expMu.Unlock()
	}
}

// valueView adapts one keyspace entry to bitmap.ValueStore. It is only
// ever handed out while the owning Keyspace holds key's stripe lock.
type valueView struct {
	ks      *Keyspace
	key     string
	data    []byte
	existed bool
}

func (v *valueView) Bytes() []byte { return v.data }

func (v *valueView) Grow(minLen int64) []byte {
	if int64(len(v.data)) < minLen {
		grown := make([]byte, minLen)
		copy(grown, v.data)
		v.data = grown
	}
	v.ks.dict.Set(v.key, v.data)
	v.existed = true
	return v.data
}

func (v *valueView) Replace(data []byte) {
	if len(data) == 0 && !v.existed {
		return
	}
	v.data = data
	v.ks.dict.Set(v.key, data)
	v.existed = true
}

// Acquire locks key's stripe and returns a ValueStore over its current
// value, plus a release function the caller must invoke exactly once
// when the command is done with the key.
func (ks *Keyspace) Acquire(key string) (bitmap.ValueStore, func()) {
	s := stripeOf(key)
	ks.stripes[s].Lock()
	ks.checkExpired(key)
	data, existed := ks.dict.Get(key)
	v := &valueView{ks: ks, key: key, data: data, existed: existed}
	return v, func() { ks.stripes[s].Unlock() }
}

// AcquireMulti locks the stripes covering every key in keys, in
// ascending stripe-index order, and returns one ValueStore per key
// (duplicate keys share a view). Locking a fixed, globally consistent
// stripe order — rather than the caller's per-command key order — is
// what makes concurrent multi-key commands (BITOP's destination plus
// its sources) deadlock-free: two overlapping calls can never each be
// holding a stripe the other is waiting on, since both acquire stripes
// in the same increasing order.
func (ks *Keyspace) AcquireMulti(keys []string) (map[string]bitmap.ValueStore, func()) {
	stripeSet := make(map[int]struct{}, len(keys))
	for _, k := range keys {
		stripeSet[stripeOf(k)] = struct{}{}
	}
	stripes := make([]int, 0, len(stripeSet))
	for s := range stripeSet {
		stripes = append(stripes, s)
	}
	sort.Ints(stripes)

	for _, s := range stripes {
		ks.stripes[s].Lock()
	}
	release := func() {
		for _, s := range stripes {
			ks.stripes[s].Unlock()
		}
	}

	for _, k := range keys {
		ks.checkExpired(k)
	}
	views := make(map[string]bitmap.ValueStore, len(keys))
	for _, k := range keys {
		if _, ok := views[k]; ok {
			continue
		}
		data, existed := ks.dict.Get(k)
		views[k] = &valueView{ks: ks, key: k, data: data, existed: existed}
	}
	return views, release
}

// Del removes key, reporting whether it was present.
func (ks *Keyspace) Del(key string) bool {
	s := stripeOf(key)
	ks.stripes[s].Lock()
	defer ks.stripes[s].Unlock()
	ks.checkExpired(key)
	existed := ks.dict.Delete(key)
	ks.expMu.Lock()
	delete(ks.expireAt, key)
	ks.expMu.Unlock()
	return existed
}

// PExpireAt sets key's expiry to atMillis (unix milliseconds),
// reporting whether the key exists.
func (ks *Keyspace) PExpireAt(key string, atMillis int64) bool {
	s := stripeOf(key)
	ks.stripes[s].Lock()
	defer ks.stripes[s].Unlock()
	ks.checkExpired(key)
	if _, ok := ks.dict.Get(key); !ok {
		return false
	}
	ks.expMu.Lock()
	ks.expireAt[key] = atMillis
	ks.expMu.Unlock()
	return true
}

// SweepExpired deletes every key whose TTL is at or before now,
// returning the count removed. Intended for a periodic background
// cron, not the request path.
func (ks *Keyspace) SweepExpired(now int64) int {
	ks.expMu.Lock()
	due := make([]string, 0)
	for k, at := range ks.expireAt {
		if at <= now {
			due = append(due, k)
		}
	}
	ks.expMu.Unlock()

	n := 0
	for _, k := range due {
		s := stripeOf(k)
		ks.stripes[s].Lock()
		ks.expMu.Lock()
		at, ok := ks.expireAt[k]
		expired := ok && at <= now
		if expired {
			delete(ks.expireAt, k)
		}
		ks.expMu.Unlock()
		if expired && ks.dict.Delete(k) {
			n++
		}
		ks.stripes[s].Unlock()
	}
	return n
}

// Len reports the number of live keys (expired keys still pending
// sweep are included until their next access or the next sweep).
func (ks *Keyspace) Len() int64 {
	return ks.dict.Len()
}

// Snapshot returns every key currently stored, for AOF rewrite.
func (ks *Keyspace) Snapshot() map[string][]byte {
	out := make(map[string][]byte)
	for _, k := range ks.dict.Keys() {
		v, release := ks.Acquire(k)
		if data := v.Bytes(); data != nil {
			cp := make([]byte, len(data))
			copy(cp, data)
			out[k] = cp
		}
		release()
	}
	return out
}
