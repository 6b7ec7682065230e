package bitmap

// SubOpKind distinguishes the four sub-commands BITFIELD accepts.
type SubOpKind int

const (
	SubGet SubOpKind = iota
	SubSet
	SubIncrBy
	SubOverflow
)

// SubOp is one fully parsed sub-operation of a BITFIELD call. Parsing
// every SubOp in a call happens before any of them execute, so a syntax
// error anywhere in the call aborts it with no writes (spec §4.4).
type SubOp struct {
	Kind   SubOpKind
	Type   FieldType
	Offset int64
	// Value carries the SET literal or the INCRBY increment.
	Value int64
	// Policy carries the new overflow policy for an OVERFLOW sub-op.
	Policy Policy
}

// readBits reads the w-bit, MSB-first value at the given absolute bit
// offset. Offsets and bits past the end of data read as 0, matching
// GetBit's zero-extension.
func readBits(data []byte, offset int64, width uint8) uint64 {
	var v uint64
	for i := uint8(0); i < width; i++ {
		v <<= 1
		v |= uint64(GetBit(data, offset+int64(i)))
	}
	return v
}

// writeBits stores the low width bits of raw (MSB-first) at offset,
// growing vs's value as needed.
func writeBits(vs ValueStore, offset int64, width uint8, raw uint64) {
	minLen := (offset + int64(width) + 7) / 8
	data := vs.Grow(minLen)
	for i := uint8(0); i < width; i++ {
		bit := (raw >> (width - 1 - i)) & 1
		bitOff := offset + int64(i)
		byteIdx := bitOff >> 3
		mask := byte(1) << uint(7-(bitOff&7))
		if bit != 0 {
			data[byteIdx] |= mask
		} else {
			data[byteIdx] &^= mask
		}
	}
}

func evalGet(data []byte, t FieldType, offset int64) int64 {
	return decodeVal(t, readBits(data, offset, t.Width))
}

// evalSet stores literal at offset under policy, returning the prior
// value. A literal that doesn't fit t is truncated under WRAP (the
// default policy — this is the literal-truncation case of spec §4.4),
// clamped to the type's extreme under SAT, or left unapplied under FAIL,
// in which case evalSet returns (nil, true) and makes no write.
func evalSet(vs ValueStore, t FieldType, offset int64, literal int64, policy Policy) (old *int64, failed bool) {
	oldRaw := readBits(vs.Bytes(), offset, t.Width)
	oldVal := decodeVal(t, oldRaw)

	fits, clamped := fitsOrClamp(t, literal)
	var storeVal int64
	switch {
	case fits:
		storeVal = literal
	case policy == PolicyWrap:
		storeVal = literal
	case policy == PolicySat:
		storeVal = clamped
	default: // PolicyFail
		return nil, true
	}

	writeBits(vs, offset, t.Width, uint64(storeVal)&widthMask(t.Width))
	return &oldVal, false
}

// evalIncrBy adds incr to the value at offset under policy, returning
// the new value, or (nil, true) with no write if overflow occurred
// under FAIL.
func evalIncrBy(vs ValueStore, t FieldType, offset int64, incr int64, policy Policy) (result *int64, failed bool) {
	data := vs.Bytes()
	oldRaw := readBits(data, offset, t.Width)
	oldVal := decodeVal(t, oldRaw)

	wrapped, dir := applyIncrWithOverflow(t, oldVal, incr)

	var newVal int64
	switch {
	case dir == noOverflow:
		newVal = wrapped
	case policy == PolicyWrap:
		newVal = wrapped
	case policy == PolicySat:
		if dir == overflowPos {
			newVal = maxRepresentable(t)
		} else {
			newVal = minRepresentable(t)
		}
	default: // PolicyFail
		return nil, true
	}

	writeBits(vs, offset, t.Width, uint64(newVal)&widthMask(t.Width))
	return &newVal, false
}

// EvalBitfield runs a fully parsed BITFIELD (or BITFIELD_RO) call against
// vs, returning one result per GET/SET/INCRBY sub-op in order. A nil
// entry marks a FAIL-policy overflow (no write performed for that
// sub-op); OVERFLOW sub-ops only change the active policy and produce no
// entry of their own. readOnly rejects any non-GET sub-op with
// ErrSyntax before touching vs, so a BITFIELD_RO call never writes.
func EvalBitfield(vs ValueStore, ops []SubOp, readOnly bool) ([]*int64, error) {
	if readOnly {
		for _, op := range ops {
			if op.Kind != SubGet {
				return nil, ErrSyntax
			}
		}
	}

	policy := PolicyWrap
	results := make([]*int64, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case SubOverflow:
			policy = op.Policy
		case SubGet:
			v := evalGet(vs.Bytes(), op.Type, op.Offset)
			results = append(results, &v)
		case SubSet:
			v, _ := evalSet(vs, op.Type, op.Offset, op.Value, policy)
			results = append(results, v)
		case SubIncrBy:
			v, _ := evalIncrBy(vs, op.Type, op.Offset, op.Value, policy)
			results = append(results, v)
		}
	}
	return results, nil
}
