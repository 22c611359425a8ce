// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package arkit

import (
	"fmt"
	"io"
	"io/fs"
	"os"
)

// TargetDisk is the struct type that holds all information for interacting with the filesystem
type TargetDisk struct{}

// NewTargetDisk creates a new disk target.
func NewTargetDisk() *TargetDisk {
	return &TargetDisk{}
}

// CreateDir creates a directory at the specified path with the specified mode. If the directory already
// exists, nothing is done.
func (d *TargetDisk) CreateDir(path string, mode fs.FileMode) error {

	// create dirs
	if err := os.MkdirAll(path, mode.Perm()); err != nil {
		return fmt.Errorf("failed to create directory (%w)", err)
	}

	return nil
}

// CreateFile creates a file at the specified path with src as content.
//
// The file is opened for exclusive write: if it does not exist it is created
// with O_EXCL, and on unix an advisory lock is held while it is written, so two
// decodings can not interleave into the same destination. If the file already
// exists and overwrite is false, an error is returned. The size of the file
// should not exceed maxSize (maxSize < 0 disables the check). The number of
// bytes written is returned, also on error. A partially written file is left in place.
func (d *TargetDisk) CreateFile(path string, src io.Reader, mode fs.FileMode, overwrite bool, maxSize int64) (int64, error) {
	// Check for path validity and if file existence+overwrite
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if _, err := os.Lstat(path); !os.IsNotExist(err) {

		// something wrong with path
		if err != nil {
			return 0, fmt.Errorf("invalid path: %w", err)
		}

		// check for overwrite
		if !overwrite {
			return 0, fmt.Errorf("file already exists: %w", fs.ErrExist)
		}
		flags = os.O_WRONLY
	}

	// create dst file
	dstFile, err := os.OpenFile(path, flags, mode.Perm())
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		dstFile.Close()
	}()

	// lock before truncating an existing file
	if err := lockFile(dstFile); err != nil {
		return 0, fmt.Errorf("failed to lock file: %w", err)
	}
	defer unlockFile(dstFile)
	if err := dstFile.Truncate(0); err != nil {
		return 0, fmt.Errorf("failed to truncate file: %w", err)
	}

	// write data to file
	writer := limitWriter(dstFile, maxSize)
	n, err := io.Copy(writer, src)
	if err != nil {
		return n, fmt.Errorf("failed to write file: %w", err)
	}

	return n, nil
}

// Lstat returns the FileInfo structure describing the named file.
// If there is an error, it will be of type *PathError.
func (d *TargetDisk) Lstat(name string) (fs.FileInfo, error) {
	return os.Lstat(name)
}

// Stat returns the FileInfo structure describing the named file.
// If there is an error, it will be of type *PathError.
func (d *TargetDisk) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}
