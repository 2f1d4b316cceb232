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

// Package dirs holds the process-wide layout of the repository data
// directory. Everything the server stores on disk (icons, screenshots,
// SPK files) lives under DataDir, partitioned by package name and
// version number.
package dirs

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// DataDir is the root of the repository data directory.
var DataDir string

func init() {
	SetDataDir("/var/lib/spkrepo/data")
}

// SetDataDir changes the data root. Don't call after startup.
func SetDataDir(dir string) {
	if dir == "" {
		dir = "/var/lib/spkrepo/data"
	}
	DataDir = filepath.Clean(dir)
}

// PackageDir returns the directory for the given package.
func PackageDir(name string) string {
	return filepath.Join(DataDir, name)
}

// VersionDir returns the directory for the given package version.
func VersionDir(name string, version int) string {
	return filepath.Join(DataDir, name, strconv.Itoa(version))
}

// DataFile resolves a repository-relative path against DataDir. It
// fails on anything that would escape the data root, so paths coming
// from the database or from URLs can be resolved without further
// checks.
func DataFile(rel string) (string, error) {
	if strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("path %q is not relative", rel)
	}
	p := filepath.Join(DataDir, filepath.Clean("/"+rel))
	if p == DataDir || !strings.HasPrefix(p, DataDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the data directory", rel)
	}
	if strings.Contains(rel, "..") {
		return "", fmt.Errorf("path %q escapes the data directory", rel)
	}
	return p, nil
}
