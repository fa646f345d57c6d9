// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package checkpoint persists ingestion progress so a run can resume
// after a crash. The checkpoint is explicit, injected state owned by
// the ingestion pipeline: the ranking path never reads it.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"
)

// Checkpoint marks the last durably committed position in the source
// feed. Partition counts fully committed partitions; Record counts
// committed records within the current partition. It advances
// monotonically and is never rolled back except by operator reset.
type Checkpoint struct {
	// Partition is the index of the partition currently being ingested.
	// Partitions below it are fully committed.
	Partition int `yaml:"partition"`

	// Record is the number of records of the current partition already
	// committed. A restart skips that many records.
	Record int `yaml:"record"`

	// UpdatedAt is the time of the last advancement.
	UpdatedAt time.Time `yaml:"updated_at"`
}

// Before reports whether c is strictly behind other.
func (c Checkpoint) Before(other Checkpoint) bool {
	if c.Partition != other.Partition {
		return c.Partition < other.Partition
	}
	return c.Record < other.Record
}

// PersistError is fatal for an ingestion run: losing progress tracking
// silently would turn at-least-once delivery into who-knows-what.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persisting checkpoint: %v", e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Store reads and writes a single durable checkpoint record.
type Store interface {
	// Load returns the persisted checkpoint, or a zero value on first run.
	Load() (Checkpoint, error)

	// Save durably writes the checkpoint. A failure is a *PersistError.
	Save(Checkpoint) error

	// Reset clears persisted state (operator action only).
	Reset() error
}

// FileStore persists the checkpoint as a YAML file, written to a temp
// file and renamed so readers never observe a partial write.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed checkpoint store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the checkpoint file. A missing file is a fresh start, not
// an error.
func (f *FileStore) Load() (Checkpoint, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, nil
		}
		return Checkpoint{}, fmt.Errorf("reading checkpoint %s: %w", f.path, err)
	}

	var cp Checkpoint
	if err := yaml.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("parsing checkpoint %s: %w", f.path, err)
	}
	return cp, nil
}

// Save writes the checkpoint atomically.
func (f *FileStore) Save(cp Checkpoint) error {
	data, err := yaml.Marshal(&cp)
	if err != nil {
		return &PersistError{Err: err}
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistError{Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return &PersistError{Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &PersistError{Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &PersistError{Err: err}
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return &PersistError{Err: err}
	}
	return nil
}

// Reset removes the checkpoint file.
func (f *FileStore) Reset() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("resetting checkpoint %s: %w", f.path, err)
	}
	return nil
}

// MemStore is an in-memory checkpoint store for tests.
type MemStore struct {
	mu sync.Mutex
	cp Checkpoint

	// SaveErr, when set, makes Save fail with a *PersistError.
	SaveErr error

	// History records every saved checkpoint, for monotonicity checks.
	History []Checkpoint
}

// NewMemStore creates an empty in-memory checkpoint store.
func NewMemStore() *MemStore { return &MemStore{} }

// Load returns the current checkpoint.
func (m *MemStore) Load() (Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cp, nil
}

// Save stores the checkpoint in memory.
func (m *MemStore) Save(cp Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return &PersistError{Err: m.SaveErr}
	}
	m.cp = cp
	m.History = append(m.History, cp)
	return nil
}

// Reset clears the checkpoint.
func (m *MemStore) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cp = Checkpoint{}
	m.History = nil
	return nil
}
