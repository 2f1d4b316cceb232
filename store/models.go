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

package store

import (
	"strconv"
	"time"
)

// User is an authenticated principal. The api key doubles as the
// upload credential (Basic auth username).
type User struct {
	ID       int64
	Username string
	Email    string
	APIKey   *string
	Active   bool
	Roles    []string
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Architecture is a repository CPU identifier. The special code
// "noarch" matches any query architecture.
type Architecture struct {
	ID   int64
	Code string
}

// fromSyno normalizes appliance-reported architecture codes to
// repository codes; toSyno is the inverse for rendering.
var fromSyno = map[string]string{
	"88f6281": "88f628x",
	"88f6282": "88f628x",
}

var toSyno = map[string]string{
	"88f628x": "88f6281",
}

// NormalizeArch maps an appliance-reported architecture code to the
// repository code.
func NormalizeArch(code string) string {
	if repo, ok := fromSyno[code]; ok {
		return repo
	}
	return code
}

// SynoArch maps a repository architecture code back to the canonical
// appliance code.
func SynoArch(code string) string {
	if syno, ok := toSyno[code]; ok {
		return syno
	}
	return code
}

// Language is a three-letter display language; "enu" is the mandatory
// default.
type Language struct {
	ID   int64
	Code string
	Name string
}

// Firmware identifies a DSM or SRM release by its monotonic build
// number.
type Firmware struct {
	ID      int64
	Version string
	Build   int
	Type    string
}

// String returns the "version-build" form, e.g. "3.1-1594".
func (f *Firmware) String() string {
	return f.Version + "-" + strconv.Itoa(f.Build)
}

// Service is an installable service packages may depend on.
type Service struct {
	ID   int64
	Code string
}

// Package is the top-level repository entity, unique by name. It owns
// its versions and screenshots; deleting it removes <data>/<name>.
type Package struct {
	ID         int64
	Name       string
	AuthorID   *int64
	InsertDate time.Time
}

// Version is one upstream release of a package, unique by
// (package, version number). It owns localized display names and
// descriptions, icons, service dependencies and builds.
type Version struct {
	ID              int64
	PackageID       int64
	Version         int
	UpstreamVersion string
	Changelog       *string
	ReportURL       *string
	Distributor     *string
	DistributorURL  *string
	Maintainer      *string
	MaintainerURL   *string
	InstallWizard   *bool
	UpgradeWizard   *bool
	Startable       *bool
	License         *string
	InsertDate      time.Time
}

// VersionString returns the "upstream-number" form, e.g. "13.0-11".
func (v *Version) VersionString() string {
	return v.UpstreamVersion + "-" + strconv.Itoa(v.Version)
}

// Beta reports whether the version is on the beta channel, which is
// the derived predicate "report_url is non-empty".
func (v *Version) Beta() bool {
	return v.ReportURL != nil && *v.ReportURL != ""
}

// Build is one compiled artifact of a version for a set of
// architectures and a firmware range. It owns exactly one
// BuildManifest.
type Build struct {
	ID            int64
	VersionID     int64
	FirmwareMinID int64
	FirmwareMaxID *int64
	PublisherID   *int64
	Checksum      *string
	Path          string
	MD5           *string
	Active        bool
	InsertDate    time.Time

	// Joined data, filled by the loaders that need it.
	Architectures    []Architecture
	FirmwareMinBuild int
	FirmwareMaxBuild *int
}

// BuildManifest carries the per-build dependency and conf blobs,
// separated from the version so distinct builds of the same version
// may advertise different compatibility data.
type BuildManifest struct {
	BuildID          int64
	Dependencies     *string
	ConfDependencies *string
	Conflicts        *string
	ConfConflicts    *string
	ConfPrivilege    *string
	ConfResource     *string
}

// Download is one append-only download log entry.
type Download struct {
	ID             int64
	BuildID        int64
	ArchitectureID int64
	FirmwareBuild  int
	IPAddress      string
	UserAgent      *string
	Date           time.Time
}

// Screenshot is a package screenshot stored under the data root.
type Screenshot struct {
	ID        int64
	PackageID int64
	Path      string
}
