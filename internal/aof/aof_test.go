package aof

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gedis-io/gedis/internal/command"
	"github.com/gedis-io/gedis/internal/store"
)

func args(parts ...string) [][]byte {
	out := make([][]byte, len(parts))
	for i, p := range parts {
		out[i] = []byte(p)
	}
	return out
}

func TestAppendThenLoadReplaysCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gedis.aof")

	a, err := Open(path, 1<<20)
	require.NoError(t, err)

	require.NoError(t, a.Append(args("SET", "k", "v")))
	require.NoError(t, a.Append(args("SETBIT", "b", "7", "1")))
	require.NoError(t, a.Close())

	ks := store.NewKeyspace()
	require.NoError(t, Load(path, ks))

	reply := command.Dispatch(ks, args("GET", "k"))
	assert.Equal(t, []byte("$1\r\nv\r\n"), reply)

	reply = command.Dispatch(ks, args("GETBIT", "b", "7"))
	assert.Equal(t, []byte(":1\r\n"), reply)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	ks := store.NewKeyspace()
	err := Load(filepath.Join(dir, "does-not-exist.aof"), ks)
	assert.NoError(t, err)
}

func TestRewriteProducesLoadableBaseSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gedis.aof")

	a, err := Open(path, 1<<20)
	require.NoError(t, err)

	ks := store.NewKeyspace()
	command.Dispatch(ks, args("SET", "k1", "v1"))
	command.Dispatch(ks, args("SET", "k2", "v2"))
	require.NoError(t, a.Append(args("SET", "k1", "v1")))
	require.NoError(t, a.Append(args("SET", "k2", "v2")))

	require.NoError(t, a.Rewrite(ks))
	require.NoError(t, a.Close())

	reloaded := store.NewKeyspace()
	require.NoError(t, Load(path, reloaded))

	reply := command.Dispatch(reloaded, args("GET", "k1"))
	assert.Equal(t, []byte("$2\r\nv1\r\n"), reply)
	reply = command.Dispatch(reloaded, args("GET", "k2"))
	assert.Equal(t, []byte("$2\r\nv2\r\n"), reply)
}

func TestAppendDuringRewriteIsBufferedAndSurvivesRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gedis.aof")

	a, err := Open(path, 1<<20)
	require.NoError(t, err)

	ks := store.NewKeyspace()
	command.Dispatch(ks, args("SET", "base", "1"))
	require.NoError(t, a.Append(args("SET", "base", "1")))

	a.mu.Lock()
	a.rewriting = true
	a.mu.Unlock()
	require.NoError(t, a.Append(args("SET", "late", "2")))
	a.mu.Lock()
	diff := append([]byte(nil), a.diffBuf...)
	a.rewriting = false
	a.mu.Unlock()
	require.NotEmpty(t, diff)

	command.Dispatch(ks, args("SET", "late", "2"))
	require.NoError(t, a.Rewrite(ks))
	require.NoError(t, a.Close())

	reloaded := store.NewKeyspace()
	require.NoError(t, Load(path, reloaded))
	reply := command.Dispatch(reloaded, args("GET", "late"))
	assert.Equal(t, []byte("$1\r\n2\r\n"), reply)
}

func TestEncodeCommandProducesValidMultiBulk(t *testing.T) {
	buf := encodeCommand(args("SET", "k", "v"))
	assert.Equal(t, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n", string(buf))
}
