// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2026 The spkrepo authors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package osutil

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
)

// AtomicWriteFile updates the filename with the given content: it
// writes to a temporary file in the same directory first and renames
// it into place only once the write succeeded. Either the previous
// content or the new content ends up on disk, never a truncated mix.
func AtomicWriteFile(filename string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(filename)
	fd, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp-")
	if err != nil {
		return err
	}
	tmpname := fd.Name()
	defer func() {
		if err != nil {
			fd.Close()
			os.Remove(tmpname)
		}
	}()

	if _, err = fd.Write(data); err != nil {
		return err
	}
	if err = fd.Chmod(perm); err != nil {
		return err
	}
	if err = fd.Sync(); err != nil {
		return err
	}
	if err = fd.Close(); err != nil {
		return err
	}
	return os.Rename(tmpname, filename)
}

// FileExists reports whether the given path exists and is a regular file.
func FileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// IsDirectory reports whether the given path exists and is a directory.
func IsDirectory(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// MD5Sum returns the hex MD5 digest of the given bytes.
func MD5Sum(data []byte) string {
	h := md5.Sum(data)
	return hex.EncodeToString(h[:])
}

// MD5SumFile returns the hex MD5 digest of the file content.
func MD5SumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
