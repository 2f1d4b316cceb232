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

// Package repo implements the upload reconciliation engine: it maps a
// parsed SPK onto the package, version and build entities, with the
// matching filesystem side effects under the data directory.
package repo

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/SynoCommunity/spkrepo/store"
)

// Tx is the transactional store surface the reconciler drives. It is
// implemented by *store.Tx and by the fakes in the tests.
type Tx interface {
	ArchitectureBySynoCode(ctx context.Context, code string) (*store.Architecture, error)
	FirmwareByBuild(ctx context.Context, build int) (*store.Firmware, error)
	LanguageByCode(ctx context.Context, code string) (*store.Language, error)
	ServiceByCode(ctx context.Context, code string) (*store.Service, error)
	CreateService(ctx context.Context, code string) (*store.Service, error)

	PackageByName(ctx context.Context, name string) (*store.Package, error)
	PackageByID(ctx context.Context, id int64) (*store.Package, error)
	CreatePackage(ctx context.Context, name string, authorID int64) (*store.Package, error)
	IsMaintainer(ctx context.Context, packageID, userID int64) (bool, error)

	VersionByNumber(ctx context.Context, packageID int64, number int) (*store.Version, error)
	VersionByID(ctx context.Context, id int64) (*store.Version, error)
	CreateVersion(ctx context.Context, v *store.Version) error
	UpdateVersionMetadata(ctx context.Context, v *store.Version) error

	SetDisplayName(ctx context.Context, versionID, languageID int64, name string) error
	ClearDisplayNames(ctx context.Context, versionID int64) error
	SetDescription(ctx context.Context, versionID, languageID int64, description string) error
	ClearDescriptions(ctx context.Context, versionID int64) error
	UpsertIcon(ctx context.Context, versionID int64, size, path string) error
	DeleteIcon(ctx context.Context, versionID int64, size string) (string, error)
	IconsByVersion(ctx context.Context, versionID int64) (map[string]string, error)
	AddServiceDependency(ctx context.Context, versionID, serviceID int64) error
	ClearServiceDependencies(ctx context.Context, versionID int64) error

	DeletePackage(ctx context.Context, id int64) error
	DeleteVersion(ctx context.Context, id int64) error
	DeleteBuild(ctx context.Context, id int64) error

	ConflictingArchitectures(ctx context.Context, versionID, firmwareMinID int64, archIDs []int64) ([]string, error)
	CreateBuild(ctx context.Context, b *store.Build, archIDs []int64) error
	SetBuildManifest(ctx context.Context, m *store.BuildManifest) error
	BuildByID(ctx context.Context, id int64) (*store.Build, error)
	SetBuildActive(ctx context.Context, buildID int64, active bool) error
	SetBuildMD5(ctx context.Context, buildID int64, md5 *string) error
	SetBuildChecksum(ctx context.Context, buildID int64, checksum *string) error
	SetBuildFirmware(ctx context.Context, buildID, firmwareMinID int64, firmwareMaxID *int64) error
	ReplaceBuildArchitectures(ctx context.Context, buildID int64, archIDs []int64) error
}

// Store runs transactions over the Tx surface.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Signer produces detached signatures over canonical SPK bytes. Nil
// or inactive means signing is disabled.
type Signer interface {
	Active() bool
	Sign(ctx context.Context, canonical []byte) (signature string, err error)
}

// Manager ties the store, the signer and the data directory together.
type Manager struct {
	store  Store
	signer Signer
	log    *logrus.Entry
}

// NewManager builds a Manager over a live store.
func NewManager(st *store.Store, signer Signer) *Manager {
	return newManager(txRunner{st}, signer)
}

func newManager(st Store, signer Signer) *Manager {
	return &Manager{
		store:  st,
		signer: signer,
		log:    logrus.WithField("component", "repo"),
	}
}

// txRunner adapts *store.Store to the Store interface.
type txRunner struct {
	st *store.Store
}

func (r txRunner) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return r.st.WithTx(ctx, func(tx *store.Tx) error {
		return fn(tx)
	})
}

// BuildFilename returns the deterministic artifact filename, e.g.
// "nzbget.v11.f1594[88f628x].spk".
func BuildFilename(packageName string, versionNumber, firmwareBuild int, archCodes []string) string {
	return packageName +
		".v" + strconv.Itoa(versionNumber) +
		".f" + strconv.Itoa(firmwareBuild) +
		"[" + strings.Join(archCodes, "-") + "].spk"
}

// BuildPath returns the repo-relative path of the artifact.
func BuildPath(packageName string, versionNumber, firmwareBuild int, archCodes []string) string {
	return packageName + "/" + strconv.Itoa(versionNumber) + "/" +
		BuildFilename(packageName, versionNumber, firmwareBuild, archCodes)
}

func iconPath(packageName string, versionNumber int, size string) string {
	return packageName + "/" + strconv.Itoa(versionNumber) + "/icon_" + size + ".png"
}
