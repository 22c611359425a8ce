// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package arkit

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Target specifies all function that are needed to be implemented to write the decoded content of an archive
type Target interface {
	// CreateFile creates a file at the specified path with src as content. The mode parameter is the file mode that
	// should be set on the file. If the file already exists and overwrite is false, an error should be returned. If the
	// file does not exist, it should be created. The size of the file should not exceed maxSize. If the file is created
	// successfully, the number of bytes written should be returned. If an error occurs, the number of bytes written
	// should be returned along with the error. If maxSize < 0, the file size is not limited.
	CreateFile(path string, src io.Reader, mode fs.FileMode, overwrite bool, maxSize int64) (int64, error)

	// CreateDir creates at the specified path with the specified mode. If the directory already exists, nothing is done.
	// The function returns an error if there's a problem creating the directory. If the function completes successfully,
	// it returns nil.
	CreateDir(path string, mode fs.FileMode) error

	// Lstat see docs for os.Lstat. Main purpose is to check if the destination exists.
	Lstat(path string) (fs.FileInfo, error)

	// Stat see docs for os.Stat. Main purpose is to check if the destination is a directory.
	Stat(path string) (fs.FileInfo, error)
}

const (
	// defaultDecompressionName is the default name for the decoded content
	defaultDecompressionName = "arkit-decompressed-content"

	// defaultDecompressedSuffix is the suffix for the decoded content if
	// the archive name does not end with the archive file extension
	defaultDecompressedSuffix = "decompressed"
)

// determineOutputPath determines the path of the decoded file. If dst is an
// existing directory, the file is placed inside of it and named after the
// archive without its extension.
func determineOutputPath(t Target, dst string, inputName string) string {
	if len(dst) == 0 {
		dst = "."
	}

	// check if dst is NOT an existing directory, then use it as file name
	stat, err := t.Stat(dst)
	if err != nil || !stat.IsDir() {
		return dst
	}

	return filepath.Join(dst, outputName(inputName))
}

// outputName derives the name of the decoded file from the archive name.
func outputName(inputName string) string {
	inputName = filepath.Base(inputName)
	if len(inputName) == 0 || inputName == "." || inputName == string(filepath.Separator) {
		return defaultDecompressionName
	}

	// remove file extension
	ext := "." + fileExtensionArk
	newName := inputName
	if strings.HasSuffix(strings.ToLower(inputName), ext) {
		newName = newName[:len(newName)-len(ext)]
	}

	// check if file extension has been removed, if not, add a suffix
	if newName == inputName {
		newName = fmt.Sprintf("%s.%s", inputName, defaultDecompressedSuffix)
	}

	// check newName is usable
	if !utf8.ValidString(newName) || newName == "." || newName == ".." || len(newName) > 255 {
		return defaultDecompressionName
	}

	return newName
}

// createFile is a wrapper around the CreateFile function
//
// If the path is empty, the function returns an error.
//
// If the directory for the file does not exist, it will be created with the
// config.CustomCreateDirMode() if config.CreateDestination() returns true.
//
// If the path points to a directory, the function returns an error.
//
// If the file is created successfully, the function returns the number of bytes written and nil.
func createFile(t Target, path string, src io.Reader, cfg *Config) (int64, error) {
	// check if a path is provided
	if len(path) == 0 {
		return 0, fmt.Errorf("cannot create file without name")
	}

	// ensure the directory exists
	if err := createDir(t, filepath.Dir(path), cfg); err != nil {
		return 0, fmt.Errorf("cannot create directory: %w", err)
	}

	// refuse to replace a directory
	if stat, err := t.Lstat(path); err == nil && stat.IsDir() {
		return 0, fmt.Errorf("destination is a directory: %s", path)
	}

	return t.CreateFile(path, src, cfg.CustomDecompressFileMode(), cfg.Overwrite(), cfg.MaxExtractionSize())
}

// createDir ensures that the directory dir exists. If it does not exist and
// config.CreateDestination() returns true, it is created, otherwise an error is returned.
func createDir(t Target, dir string, cfg *Config) error {
	// no action needed
	if len(dir) == 0 || dir == "." {
		return nil
	}

	// check if dir exists
	stat, err := t.Lstat(dir)
	if err == nil {
		if stat.Mode()&fs.ModeSymlink != 0 {
			stat, err = t.Stat(dir)
		}
		if err == nil && !stat.IsDir() {
			return fmt.Errorf("not a directory: %s", dir)
		}
	}
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("invalid path: %w", err)
	}

	// create if allowed
	if !cfg.CreateDestination() {
		return fmt.Errorf("destination does not exist")
	}
	if err := t.CreateDir(dir, cfg.CustomCreateDirMode()); err != nil {
		return fmt.Errorf("failed to create destination directory %w", err)
	}
	cfg.Logger().Info("created destination directory", "path", dir)
	return nil
}
