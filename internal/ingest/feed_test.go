// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func TestListPartitionsSortsAndFilters(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dump0002.xml"), []byte("b"), 0o644))
	writeGzip(t, filepath.Join(dir, "dump0001.xml.gz"), "a")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))

	partitions, err := ListPartitions(dir)
	require.NoError(t, err)
	require.Len(t, partitions, 2)
	assert.Equal(t, "dump0001.xml.gz", partitions[0].Name())
	assert.Equal(t, 0, partitions[0].Index)
	assert.Equal(t, "dump0002.xml", partitions[1].Name())
	assert.Equal(t, 1, partitions[1].Index)
}

func TestPartitionOpenDecompresses(t *testing.T) {
	dir := t.TempDir()
	writeGzip(t, filepath.Join(dir, "dump.xml.gz"), "<hello/>")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.xml"), []byte("<plain/>"), 0o644))

	partitions, err := ListPartitions(dir)
	require.NoError(t, err)
	require.Len(t, partitions, 2)

	rc, err := partitions[0].Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "<hello/>", string(data))

	rc, err = partitions[1].Open()
	require.NoError(t, err)
	data, err = io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "<plain/>", string(data))
}

func TestListPartitionsMissingDir(t *testing.T) {
	_, err := ListPartitions(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
