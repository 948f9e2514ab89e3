/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package snapshot

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"net/url"
	"path/filepath"
	"sync"

	"bennypowers.dev/ivywatch/fs"
)

// Store keeps the baseline snapshot of each polling job.
// Each job owns exactly one slot; jobs never see each other's baselines.
type Store interface {
	// Load returns the job's baseline and true, or nil and false on first run.
	Load(job string) (*Snapshot, bool, error)

	// Save replaces the job's baseline.
	Save(job string, s *Snapshot) error
}

// MemoryStore is a thread-safe in-memory Store.
// Baselines live as long as the process.
type MemoryStore struct {
	mu        sync.RWMutex
	baselines map[string]*Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		baselines: make(map[string]*Snapshot),
	}
}

// Load implements Store.
func (m *MemoryStore) Load(job string) (*Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.baselines[job]
	if !ok {
		return nil, false, nil
	}
	return s.Clone(), true, nil
}

// Save implements Store.
func (m *MemoryStore) Save(job string, s *Snapshot) error {
	if s == nil {
		return errors.New("cannot save a nil snapshot")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baselines[job] = s.Clone()
	return nil
}

// FileStore persists one JSON document per job under a directory,
// so baselines survive between process runs.
type FileStore struct {
	fs  fs.FileSystem
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a store writing to dir.
func NewFileStore(fsys fs.FileSystem, dir string) *FileStore {
	return &FileStore{fs: fsys, dir: dir}
}

// Path returns the file holding the job's baseline. Job names are
// percent-escaped, so distinct jobs never share a file.
func (f *FileStore) Path(job string) string {
	return filepath.Join(f.dir, url.PathEscape(job)+".json")
}

// Load implements Store.
func (f *FileStore) Load(job string) (*Snapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.fs.ReadFile(f.Path(job))
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read baseline for %s: %w", job, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, false, &CorruptBaselineError{Job: job, Path: f.Path(job), Err: err}
	}
	return s, true, nil
}

// CorruptBaselineError means a stored baseline exists but can't be parsed.
// Saving a new baseline for the job replaces the corrupt file.
type CorruptBaselineError struct {
	Job  string
	Path string
	Err  error
}

func (e *CorruptBaselineError) Error() string {
	return fmt.Sprintf("corrupt baseline for %s at %s: %v", e.Job, e.Path, e.Err)
}

func (e *CorruptBaselineError) Unwrap() error {
	return e.Err
}

// Save implements Store.
func (f *FileStore) Save(job string, s *Snapshot) error {
	if s == nil {
		return errors.New("cannot save a nil snapshot")
	}
	data, err := s.Format()
	if err != nil {
		return fmt.Errorf("failed to encode baseline for %s: %w", job, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fs.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := f.fs.WriteFile(f.Path(job), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write baseline for %s: %w", job, err)
	}
	return nil
}
