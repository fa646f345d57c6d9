// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "checkpoint.yaml")
	fs := NewFileStore(path)

	// First run: zero checkpoint, no error.
	cp, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, Checkpoint{}, cp)

	want := Checkpoint{Partition: 3, Record: 1200, UpdatedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)}
	require.NoError(t, fs.Save(want))

	got, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, want.Partition, got.Partition)
	assert.Equal(t, want.Record, got.Record)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
}

func TestFileStoreReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.yaml")
	fs := NewFileStore(path)

	require.NoError(t, fs.Save(Checkpoint{Partition: 1}))
	require.NoError(t, fs.Reset())

	cp, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, Checkpoint{}, cp)

	// Resetting an already-clean store is fine.
	require.NoError(t, fs.Reset())
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.yaml")
	fs := NewFileStore(path)
	require.NoError(t, fs.Save(Checkpoint{Partition: 1}))

	// Corrupt it.
	require.NoError(t, os.WriteFile(path, []byte("{{{not yaml"), 0o644))

	_, err := fs.Load()
	assert.Error(t, err, "a corrupt checkpoint must not be silently treated as a fresh start")
}

func TestBefore(t *testing.T) {
	tests := []struct {
		name string
		a, b Checkpoint
		want bool
	}{
		{"earlier partition", Checkpoint{Partition: 1, Record: 900}, Checkpoint{Partition: 2}, true},
		{"same partition earlier record", Checkpoint{Partition: 1, Record: 10}, Checkpoint{Partition: 1, Record: 11}, true},
		{"equal", Checkpoint{Partition: 1, Record: 10}, Checkpoint{Partition: 1, Record: 10}, false},
		{"later", Checkpoint{Partition: 2}, Checkpoint{Partition: 1, Record: 999}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Before(tt.b))
		})
	}
}

func TestMemStoreSaveErr(t *testing.T) {
	ms := NewMemStore()
	ms.SaveErr = errors.New("disk full")

	err := ms.Save(Checkpoint{Partition: 1})
	var pe *PersistError
	require.ErrorAs(t, err, &pe)

	cp, _ := ms.Load()
	assert.Equal(t, Checkpoint{}, cp, "failed save must not advance state")
}
