// Package store implements the keyspace: a progressive-rehash hash
// table mapping string keys to binary values, plus the per-key
// exclusive-acquisition layer the bitmap engine runs under.
package store

import (
	"hash/fnv"
	"sync"
)

const (
	initTableSize    = 4
	forceRehashRatio = 1
	expandRatio      = 2
)

type dictEntry struct {
	key  string
	val  []byte
	next *dictEntry
}

type hashTable struct {
	buckets []*dictEntry
	size    int64
	used    int64
}

func newHashTable(size int64) *hashTable {
	return &hashTable{buckets: make([]*dictEntry, size), size: size}
}

// Dict is a progressive-rehashing string-keyed hash table, in the style
// of Redis's dict.c: growth never stops the world, it moves one bucket
// at a time off the front of every subsequent operation until table 0
// is empty and table 1 takes its place.
type Dict struct {
	mu        sync.Mutex
	tables    [2]*hashTable
	rehashIdx int64
}

// NewDict returns an empty Dict ready for use.
func NewDict() *Dict {
	d := &Dict{rehashIdx: -1}
	d.tables[0] = newHashTable(initTableSize)
	return d
}

func nextPower(n int64) int64 {
	p := int64(initTableSize)
	for p < n {
		p <<= 1
	}
	return p
}

func hashKey(key string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return h.Sum64()
}

func (d *Dict) isRehashing() bool {
	return d.rehashIdx != -1
}

// rehashStep moves up to steps non-empty buckets from table 0 into
// table 1, retiring table 0 once it has been fully drained.
func (d *Dict) rehashStep(steps int) {
	if !d.isRehashing() {
		return
	}
	t0, t1 := d.tables[0], d.tables[1]
	for steps > 0 && d.rehashIdx < t0.size {
		bucket := t0.buckets[d.rehashIdx]
		if bucket == nil {
			d.rehashIdx++
			continue
		}
		for bucket != nil {
			next := bucket.next
			idx := int64(hashKey(bucket.key)) & (t1.size - 1)
			bucket.next = t1.buckets[idx]
			t1.buckets[idx] = bucket
			t1.used++
			t0.used--
			bucket = next
		}
		t0.buckets[d.rehashIdx] = nil
		d.rehashIdx++
		steps--
	}
	if d.rehashIdx >= t0.size {
		d.tables[0] = t1
		d.tables[1] = nil
		d.rehashIdx = -1
	}
}

func (d *Dict) maybeStartRehash() {
	if d.isRehashing() {
		return
	}
	t0 := d.tables[0]
	if t0.used > t0.size*forceRehashRatio {
		d.tables[1] = newHashTable(nextPower(t0.used * expandRatio))
		d.rehashIdx = 0
	}
}

func (d *Dict) find(h uint64, key string) *dictEntry {
	for i := 0; i < 2; i++ {
		t := d.tables[i]
		if t == nil {
			continue
		}
		idx := int64(h) & (t.size - 1)
		for e := t.buckets[idx]; e != nil; e = e.next {
			if e.key == key {
				return e
			}
		}
		if !d.isRehashing() {
			break
		}
	}
	return nil
}

func (d *Dict) insert(h uint64, key string, val []byte) {
	t := d.tables[0]
	if d.isRehashing() {
		t = d.tables[1]
	}
	idx := int64(h) & (t.size - 1)
	t.buckets[idx] = &dictEntry{key: key, val: val, next: t.buckets[idx]}
	t.used++
	d.maybeStartRehash()
}

// Get returns the value for key, if present.
func (d *Dict) Get(key string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rehashStep(1)
	if e := d.find(hashKey(key), key); e != nil {
		return e.val, true
	}
	return nil, false
}

// Set stores val under key, overwriting any existing value.
func (d *Dict) Set(key string, val []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rehashStep(1)
	h := hashKey(key)
	if e := d.find(h, key); e != nil {
		e.val = val
		return
	}
	d.insert(h, key, val)
}

// Delete removes key, reporting whether it was present.
func (d *Dict) Delete(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rehashStep(1)
	h := hashKey(key)
	for i := 0; i < 2; i++ {
		t := d.tables[i]
		if t == nil {
			continue
		}
		idx := int64(h) & (t.size - 1)
		var prev *dictEntry
		for e := t.buckets[idx]; e != nil; e = e.next {
			if e.key == key {
				if prev == nil {
					t.buckets[idx] = e.next
				} else {
					prev.next = e.next
				}
				t.used--
				return true
			}
			prev = e
		}
		if !d.isRehashing() {
			break
		}
	}
	return false
}

// Len returns the total number of keys across both tables.
func (d *Dict) Len() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.tables[0].used
	if d.tables[1] != nil {
		n += d.tables[1].used
	}
	return n
}

// Keys returns a snapshot of every key currently stored. Intended for
// Keyspace.Snapshot (AOF rewrite) and for tests, not for hot paths.
func (d *Dict) Keys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var keys []string
	for i := 0; i < 2; i++ {
		t := d.tables[i]
		if t == nil {
			continue
		}
		for _, bucket := range t.buckets {
			for e := bucket; e != nil; e = e.next {
				keys = append(keys, e.key)
			}
		}
	}
	return keys
}
