// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package arkit

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sync"
	"time"
)

// TargetMemory is an in-memory filesystem implementation. It is a map of file paths to MemoryEntry.
// The MemoryEntry contains the file information and the file data. Paths are slash separated
// and must satisfy [fs.ValidPath]. TargetMemory implements [fs.FS] and [fs.ReadFileFS], so
// decoded content can be read back with the functions of the [io/fs] package.
type TargetMemory struct {
	files sync.Map // map[string]*MemoryEntry
}

// NewTargetMemory creates a new in-memory filesystem.
func NewTargetMemory() *TargetMemory {
	return &TargetMemory{
		files: sync.Map{},
	}
}

// CreateFile creates a new file in the in-memory filesystem. The file is created with the given mode.
// If the overwrite flag is set to false and the file already exists, an error is returned. If the overwrite
// flag is set to true, the file is overwritten. The maxSize parameter can be used to limit the size of the file.
// If src fails, the bytes read so far are stored and the error is returned, like a partially written file on disk.
func (m *TargetMemory) CreateFile(p string, src io.Reader, mode fs.FileMode, overwrite bool, maxSize int64) (int64, error) {
	if !fs.ValidPath(p) {
		return 0, fmt.Errorf("%w: %s", fs.ErrInvalid, p)
	}
	if !overwrite {
		if _, ok := m.files.Load(p); ok {
			return 0, fmt.Errorf("%w: %s", fs.ErrExist, p)
		}
	}

	// create byte buffered writer
	var buf bytes.Buffer
	w := limitWriter(&buf, maxSize)

	// write to buffer
	n, err := io.Copy(w, src)

	// create entry
	m.files.Store(p, &MemoryEntry{
		FileInfo: &MemoryFileInfo{name: path.Base(p), size: n, mode: mode.Perm(), modTime: time.Now()},
		Data:     buf.Bytes(),
	})

	return n, err
}

// CreateDir creates a new directory in the in-memory filesystem.
// If the directory already exists, nothing is done. If the directory does not exist, it is created.
func (m *TargetMemory) CreateDir(p string, mode fs.FileMode) error {
	if !fs.ValidPath(p) {
		return fmt.Errorf("%w: %s", fs.ErrInvalid, p)
	}

	// check if an entry already exists
	if _, ok := m.files.Load(p); ok {
		return nil
	}

	m.files.Store(p, &MemoryEntry{
		FileInfo: &MemoryFileInfo{name: path.Base(p), mode: mode.Perm() | fs.ModeDir, modTime: time.Now()},
	})

	return nil
}

// Open opens the named file for reading. If the file does not exist, or is a directory,
// an error is returned.
func (m *TargetMemory) Open(p string) (fs.File, error) {
	me, err := m.load(p)
	if err != nil {
		return nil, err
	}
	if me.FileInfo.IsDir() {
		return nil, fmt.Errorf("cannot open directory: %s", p)
	}

	// create copy of entry
	return &MemoryEntry{FileInfo: me.FileInfo, Data: me.Data}, nil
}

// ReadFile returns the content of the named file.
func (m *TargetMemory) ReadFile(p string) ([]byte, error) {
	me, err := m.load(p)
	if err != nil {
		return nil, err
	}
	if me.FileInfo.IsDir() {
		return nil, fmt.Errorf("cannot read directory: %s", p)
	}
	return bytes.Clone(me.Data), nil
}

// Lstat returns the FileInfo for the given path. If the path does not exist, an error is returned.
func (m *TargetMemory) Lstat(p string) (fs.FileInfo, error) {
	me, err := m.load(p)
	if err != nil {
		return nil, err
	}
	return me.FileInfo, nil
}

// Stat returns the FileInfo for the given path. The in-memory filesystem has no symlinks,
// so Stat is identical to Lstat.
func (m *TargetMemory) Stat(p string) (fs.FileInfo, error) {
	return m.Lstat(p)
}

// Remove removes the entry at the given path.
func (m *TargetMemory) Remove(p string) error {
	if !fs.ValidPath(p) {
		return fmt.Errorf("%w: %s", fs.ErrInvalid, p)
	}
	m.files.Delete(p)
	return nil
}

// load returns the entry stored at p.
func (m *TargetMemory) load(p string) (*MemoryEntry, error) {
	if !fs.ValidPath(p) {
		return nil, fmt.Errorf("%w: %s", fs.ErrInvalid, p)
	}
	e, ok := m.files.Load(p)
	if !ok {
		return nil, fmt.Errorf("%w: %s", fs.ErrNotExist, p)
	}
	return e.(*MemoryEntry), nil
}

// MemoryEntry is an entry in the in-memory filesystem
type MemoryEntry struct {
	FileInfo fs.FileInfo
	Data     []byte
}

func (me *MemoryEntry) Stat() (fs.FileInfo, error) {
	return me.FileInfo, nil
}

func (me *MemoryEntry) Read(p []byte) (int, error) {
	if len(me.Data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, me.Data)
	me.Data = me.Data[n:]
	return n, nil
}

func (me *MemoryEntry) Close() error {
	return nil
}

// MemoryFileInfo is a FileInfo implementation for the in-memory filesystem
type MemoryFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

// Name returns the name of the file
func (fi *MemoryFileInfo) Name() string {
	return fi.name
}

// Size returns the size of the file
func (fi *MemoryFileInfo) Size() int64 {
	return fi.size
}

// Mode returns the mode of the file
func (fi *MemoryFileInfo) Mode() fs.FileMode {
	return fi.mode
}

// ModTime returns the modification time of the file
func (fi *MemoryFileInfo) ModTime() time.Time {
	return fi.modTime
}

// IsDir returns true if the file is a directory
func (fi *MemoryFileInfo) IsDir() bool {
	return fi.mode.IsDir()
}

// Sys returns the underlying data source (nil for in-memory filesystem)
func (fi *MemoryFileInfo) Sys() any {
	return nil
}
