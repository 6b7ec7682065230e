package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gedis-io/gedis/internal/bitmap"
	"github.com/gedis-io/gedis/internal/resp"
	"github.com/gedis-io/gedis/internal/store"
)

// bitopMaxSources is BITOP's effective source-key cap, overridable at
// startup by SetBitopMaxSources with the configured
// GEDIS_BITOP_MAX_SOURCES value. Defaults to bitmap.MaxBitopSources,
// which also bounds it: a configured value outside (0, MaxBitopSources]
// is ignored since bitmap.BitOp itself never accepts more than that.
var bitopMaxSources = bitmap.MaxBitopSources

// SetBitopMaxSources configures BITOP's source-key limit. Called once
// at startup from cmd/gedis-server with the resolved config value.
func SetBitopMaxSources(n int) {
	if n > 0 && n <= bitmap.MaxBitopSources {
		bitopMaxSources = n
	}
}

func setbitCommand(ks *store.Keyspace, args [][]byte) []byte {
	offset, err := strconv.ParseInt(string(args[2]), 10, 64)
	if err != nil {
		return resp.EncodeError(bitmap.ErrBadOffset.Error())
	}
	if err := bitmap.ValidateOffset(offset); err != nil {
		return resp.EncodeError(err.Error())
	}
	val, err := strconv.Atoi(string(args[3]))
	if err != nil || (val != 0 && val != 1) {
		return resp.EncodeError(bitmap.ErrBadValue.Error())
	}

	vs, release := ks.Acquire(string(args[1]))
	defer release()
	prev := bitmap.SetBit(vs, offset, val)
	return resp.EncodeInteger(int64(prev))
}

func getbitCommand(ks *store.Keyspace, args [][]byte) []byte {
	offset, err := strconv.ParseInt(string(args[2]), 10, 64)
	if err != nil {
		return resp.EncodeError(bitmap.ErrBadOffset.Error())
	}
	if err := bitmap.ValidateOffset(offset); err != nil {
		return resp.EncodeError(err.Error())
	}

	vs, release := ks.Acquire(string(args[1]))
	defer release()
	return resp.EncodeInteger(int64(bitmap.GetBit(vs.Bytes(), offset)))
}

func parseUnit(tok []byte) (bitmap.Unit, bool) {
	switch strings.ToUpper(string(tok)) {
	case "BYTE":
		return bitmap.UnitByte, true
	case "BIT":
		return bitmap.UnitBit, true
	default:
		return 0, false
	}
}

func bitcountCommand(ks *store.Keyspace, args [][]byte) []byte {
	start, end := int64(0), int64(-1)
	unit := bitmap.UnitByte

	switch len(args) {
	case 2:
	case 4, 5:
		s, err := strconv.ParseInt(string(args[2]), 10, 64)
		if err != nil {
			return resp.EncodeError(bitmap.ErrSyntax.Error())
		}
		e, err := strconv.ParseInt(string(args[3]), 10, 64)
		if err != nil {
			return resp.EncodeError(bitmap.ErrSyntax.Error())
		}
		start, end = s, e
		if len(args) == 5 {
			u, ok := parseUnit(args[4])
			if !ok {
				return resp.EncodeError(bitmap.ErrSyntax.Error())
			}
			unit = u
		}
	default:
		return resp.EncodeError(bitmap.ErrSyntax.Error())
	}

	vs, release := ks.Acquire(string(args[1]))
	defer release()
	n := bitmap.BitCount(vs.Bytes(), start, end, unit)
	return resp.EncodeInteger(int64(n))
}

func bitposCommand(ks *store.Keyspace, args [][]byte) []byte {
	bit, err := strconv.Atoi(string(args[2]))
	if err != nil || (bit != 0 && bit != 1) {
		return resp.EncodeError(bitmap.ErrSyntax.Error())
	}

	start, end := int64(0), int64(-1)
	endDefaulted := true
	unit := bitmap.UnitByte

	if len(args) >= 4 {
		s, err := strconv.ParseInt(string(args[3]), 10, 64)
		if err != nil {
			return resp.EncodeError(bitmap.ErrSyntax.Error())
		}
		start = s
	}
	if len(args) >= 5 {
		e, err := strconv.ParseInt(string(args[4]), 10, 64)
		if err != nil {
			return resp.EncodeError(bitmap.ErrSyntax.Error())
		}
		end = e
		endDefaulted = false
	}
	if len(args) == 6 {
		u, ok := parseUnit(args[5])
		if !ok {
			return resp.EncodeError(bitmap.ErrSyntax.Error())
		}
		unit = u
	}
	if len(args) > 6 {
		return resp.EncodeError(bitmap.ErrSyntax.Error())
	}

	vs, release := ks.Acquire(string(args[1]))
	defer release()
	pos := bitmap.BitPos(vs.Bytes(), bit, start, end, endDefaulted, unit)
	return resp.EncodeInteger(pos)
}

func bitopCommand(ks *store.Keyspace, args [][]byte) []byte {
	op, ok := bitmap.ParseOp(string(args[1]))
	if !ok {
		return resp.EncodeError(bitmap.ErrSyntax.Error())
	}
	dest := string(args[2])
	srcKeys := make([]string, 0, len(args)-3)
	for _, a := range args[3:] {
		srcKeys = append(srcKeys, string(a))
	}
	if len(srcKeys) > bitopMaxSources {
		return resp.EncodeError(fmt.Sprintf("Bitop source key limit (%d) exceeded", bitopMaxSources))
	}
	if op == bitmap.OpNot && len(srcKeys) != 1 {
		return resp.EncodeError(bitmap.ErrSyntax.Error())
	}
	if len(srcKeys) < 1 {
		return resp.EncodeError(bitmap.ErrSyntax.Error())
	}

	allKeys := append([]string{dest}, srcKeys...)
	views, release := ks.AcquireMulti(allKeys)
	defer release()

	srcData := make([][]byte, len(srcKeys))
	for i, k := range srcKeys {
		srcData[i] = views[k].Bytes()
	}
	n, err := bitmap.BitOp(op, views[dest], srcData)
	if err != nil {
		return resp.EncodeError(err.Error())
	}
	return resp.EncodeInteger(n)
}

func parseBitfieldOps(args [][]byte) ([]bitmap.SubOp, error) {
	var ops []bitmap.SubOp
	i := 0
	for i < len(args) {
		switch strings.ToUpper(string(args[i])) {
		case "GET":
			if i+2 >= len(args) {
				return nil, bitmap.ErrSyntax
			}
			ft, err := bitmap.ParseFieldType(string(args[i+1]))
			if err != nil {
				return nil, err
			}
			off, err := bitmap.ParseFieldOffset(string(args[i+2]), ft.Width)
			if err != nil {
				return nil, err
			}
			ops = append(ops, bitmap.SubOp{Kind: bitmap.SubGet, Type: ft, Offset: off})
			i += 3

		case "SET":
			if i+3 >= len(args) {
				return nil, bitmap.ErrSyntax
			}
			ft, err := bitmap.ParseFieldType(string(args[i+1]))
			if err != nil {
				return nil, err
			}
			off, err := bitmap.ParseFieldOffset(string(args[i+2]), ft.Width)
			if err != nil {
				return nil, err
			}
			val, err := strconv.ParseInt(string(args[i+3]), 10, 64)
			if err != nil {
				return nil, bitmap.ErrBadValue
			}
			ops = append(ops, bitmap.SubOp{Kind: bitmap.SubSet, Type: ft, Offset: off, Value: val})
			i += 4

		case "INCRBY":
			if i+3 >= len(args) {
				return nil, bitmap.ErrSyntax
			}
			ft, err := bitmap.ParseFieldType(string(args[i+1]))
			if err != nil {
				return nil, err
			}
			off, err := bitmap.ParseFieldOffset(string(args[i+2]), ft.Width)
			if err != nil {
				return nil, err
			}
			val, err := strconv.ParseInt(string(args[i+3]), 10, 64)
			if err != nil {
				return nil, bitmap.ErrBadValue
			}
			ops = append(ops, bitmap.SubOp{Kind: bitmap.SubIncrBy, Type: ft, Offset: off, Value: val})
			i += 4

		case "OVERFLOW":
			if i+1 >= len(args) {
				return nil, bitmap.ErrSyntax
			}
			policy, ok := bitmap.ParsePolicy(string(args[i+1]))
			if !ok {
				return nil, bitmap.ErrBadOverflowType
			}
			ops = append(ops, bitmap.SubOp{Kind: bitmap.SubOverflow, Policy: policy})
			i += 2

		default:
			return nil, bitmap.ErrSyntax
		}
	}
	return ops, nil
}

func runBitfield(ks *store.Keyspace, args [][]byte, readOnly bool) []byte {
	ops, err := parseBitfieldOps(args[2:])
	if err != nil {
		return resp.EncodeError(err.Error())
	}

	vs, release := ks.Acquire(string(args[1]))
	defer release()
	results, err := bitmap.EvalBitfield(vs, ops, readOnly)
	if err != nil {
		return resp.EncodeError(err.Error())
	}

	items := make([][]byte, len(results))
	for i, r := range results {
		if r == nil {
			items[i] = resp.EncodeNullBulk()
		} else {
			items[i] = resp.EncodeInteger(*r)
		}
	}
	return resp.EncodeArray(items)
}

func bitfieldCommand(ks *store.Keyspace, args [][]byte) []byte {
	return runBitfield(ks, args, false)
}

func bitfieldROCommand(ks *store.Keyspace, args [][]byte) []byte {
	return runBitfield(ks, args, true)
}
