// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Partition is one source dump file. The index is stable across runs
// for a given directory listing, which makes it usable as checkpoint
// state (NLM baseline files are numbered, so lexical order is the
// publication order).
type Partition struct {
	Index int
	Path  string
}

// Name returns the partition's file name for progress output.
func (p Partition) Name() string { return filepath.Base(p.Path) }

// ListPartitions returns the dump files under dir (*.xml, *.xml.gz)
// sorted by name and numbered in that order.
func ListPartitions(dir string) ([]Partition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dump directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".xml") || strings.HasSuffix(name, ".xml.gz") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	partitions := make([]Partition, len(names))
	for i, name := range names {
		partitions[i] = Partition{Index: i, Path: filepath.Join(dir, name)}
	}
	return partitions, nil
}

// gzipReadCloser closes both the gzip stream and the underlying file.
type gzipReadCloser struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipReadCloser) Close() error {
	gzErr := g.Reader.Close()
	if err := g.file.Close(); err != nil {
		return err
	}
	return gzErr
}

// Open returns the partition's decompressed byte stream.
func (p Partition) Open() (io.ReadCloser, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("opening partition %s: %w", p.Name(), err)
	}

	if !strings.HasSuffix(p.Path, ".gz") {
		return f, nil
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decompressing partition %s: %w", p.Name(), err)
	}
	return &gzipReadCloser{Reader: gz, file: f}, nil
}
