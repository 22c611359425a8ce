// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package arkit

import "os"

// lockFile is a no-op, advisory locks are only available on unix as of now.
func lockFile(_ *os.File) error {
	return nil
}

// unlockFile is a no-op, see lockFile.
func unlockFile(_ *os.File) error {
	return nil
}
