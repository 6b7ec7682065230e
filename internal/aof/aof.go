// Package aof implements append-only persistence: a live, uncompressed
// command log fsynced every AutoSyncBytes, and a background rewrite
// that snapshots the keyspace into a compact base.
//
// Grounded on _examples/zkanghan-Gedis/aof.go and rio.go (the
// RioFile auto-fsync buffer, feedAppendOnlyFile's write-command
// filtering, rewriteAppendOnlyFile's temp-file-then-rename, and
// bgRewriteDoneHandler's diff-buffer flush), generalized in two ways:
// the rewritten base is zstd-compressed, and the mid-rewrite diff
// buffer is lz4-block-compressed before being appended, following
// _examples/hupe1980-vecgo's wal/wal.go (zstd WAL compression) and
// internal/segment/diskann/compression.go (lz4 block compression) —
// the teacher writes both uncompressed.
package aof

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/gedis-io/gedis/internal/command"
	"github.com/gedis-io/gedis/internal/resp"
	"github.com/gedis-io/gedis/internal/store"
)

const (
	baseMagic    = "GZB1" // rewritten base snapshot, zstd-compressed
	diffMagic    = "GLZ1" // mid-rewrite diff buffer, lz4-block-compressed
	diffRawMagic = "GRW1" // mid-rewrite diff buffer that didn't compress
)

// AOF is the server's append-only log.
type AOF struct {
	mu            sync.Mutex
	path          string
	file          *os.File
	buffered      int
	autoSyncBytes int

	rewriting bool
	diffBuf   []byte
}

// Open opens, creating if necessary, the AOF file at path for live
// appends.
func Open(path string, autoSyncBytes int) (*AOF, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	return &AOF{path: path, file: f, autoSyncBytes: autoSyncBytes}, nil
}

// Close closes the live AOF file handle.
func (a *AOF) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}

// Append records one write command in RESP multi-bulk wire form,
// fsyncing once autoSyncBytes have accumulated since the last sync. If
// a rewrite is in progress, the command is also buffered so Rewrite can
// append it after the new base file replaces the old one.
func (a *AOF) Append(args [][]byte) error {
	buf := encodeCommand(args)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rewriting {
		a.diffBuf = append(a.diffBuf, buf...)
	}

	n, err := a.file.Write(buf)
	if err != nil {
		return err
	}
	a.buffered += n
	if a.autoSyncBytes > 0 && a.buffered >= a.autoSyncBytes {
		if err := a.file.Sync(); err != nil {
			return err
		}
		a.buffered = 0
	}
	return nil
}

// Rewrite snapshots ks into a fresh base file, replacing the current
// AOF, then replays any commands that landed while the snapshot was
// being taken.
func (a *AOF) Rewrite(ks *store.Keyspace) (err error) {
	a.mu.Lock()
	if a.rewriting {
		a.mu.Unlock()
		return errors.New("aof rewrite already in progress")
	}
	a.rewriting = true
	a.diffBuf = nil
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.rewriting = false
		a.diffBuf = nil
		a.mu.Unlock()
	}()

	tmpPath := a.path + ".rewrite.tmp"
	if err := writeBaseSnapshot(tmpPath, ks); err != nil {
		return err
	}

	a.mu.Lock()
	diff := a.diffBuf
	a.mu.Unlock()
	if len(diff) > 0 {
		if err := appendCompressedDiff(tmpPath, diff); err != nil {
			_ = os.Remove(tmpPath)
			return err
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, a.path); err != nil {
		return err
	}
	f, err := os.OpenFile(a.path, os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	a.file = f
	a.buffered = 0
	return nil
}

func writeBaseSnapshot(path string, ks *store.Keyspace) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	for key, val := range ks.Snapshot() {
		buf.Write(encodeCommand([][]byte{[]byte("SET"), []byte(key), val}))
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()
	compressed := enc.EncodeAll(buf.Bytes(), nil)

	return writeSection(f, baseMagic, compressed)
}

func appendCompressedDiff(path string, diff []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	defer f.Close()

	bound := lz4.CompressBlockBound(len(diff))
	compressed := make([]byte, bound)
	n, err := lz4.CompressBlock(diff, compressed, nil)
	if err != nil {
		return err
	}
	if n == 0 {
		// too small, or incompressible enough that lz4 declined; store
		// the diff buffer as-is.
		return writeSection(f, diffRawMagic, diff)
	}

	payload := make([]byte, 8+n)
	binary.BigEndian.PutUint64(payload[:8], uint64(len(diff)))
	copy(payload[8:], compressed[:n])
	return writeSection(f, diffMagic, payload)
}

func writeSection(w io.Writer, magic string, payload []byte) error {
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// Load replays path into ks. A missing file is not an error — it just
// means there is nothing to load yet.
func Load(path string, ks *store.Keyspace) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for len(data) >= 4 {
		magic := string(data[:4])
		if magic != baseMagic && magic != diffMagic && magic != diffRawMagic {
			break // remainder is the raw, never-rewritten live AOF tail
		}
		if len(data) < 12 {
			return errors.New("aof: truncated section header")
		}
		size := binary.BigEndian.Uint64(data[4:12])
		if uint64(len(data)-12) < size {
			return errors.New("aof: truncated section payload")
		}
		payload := data[12 : 12+size]
		data = data[12+size:]

		plain, err := decodeSection(magic, payload)
		if err != nil {
			return err
		}
		if err := replay(plain, ks); err != nil {
			return err
		}
	}
	return replay(data, ks)
}

func decodeSection(magic string, payload []byte) ([]byte, error) {
	switch magic {
	case baseMagic:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(payload, nil)
	case diffRawMagic:
		return payload, nil
	case diffMagic:
		if len(payload) < 8 {
			return nil, errors.New("aof: truncated diff section")
		}
		origLen := binary.BigEndian.Uint64(payload[:8])
		out := make([]byte, origLen)
		n, err := lz4.UncompressBlock(payload[8:], out)
		if err != nil {
			return nil, err
		}
		return out[:n], nil
	default:
		return nil, fmt.Errorf("aof: unknown section magic %q", magic)
	}
}

func replay(data []byte, ks *store.Keyspace) error {
	for len(data) > 0 {
		args, consumed, err := resp.ParseCommand(data)
		if err != nil {
			return err
		}
		if consumed == 0 {
			return errors.New("aof: truncated command in log")
		}
		data = data[consumed:]
		if len(args) == 0 {
			continue
		}
		command.Dispatch(ks, args)
	}
	return nil
}

func encodeCommand(args [][]byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "*%d\r\n", len(args))
	for _, a := range args {
		fmt.Fprintf(&buf, "$%d\r\n", len(a))
		buf.Write(a)
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}
