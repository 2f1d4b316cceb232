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

package repo

import (
	"context"
	"sort"
	"time"

	"github.com/SynoCommunity/spkrepo/store"
)

// fakeTx is an in-memory stand-in for *store.Tx.
type fakeTx struct {
	nextID int64

	architectures map[string]*store.Architecture
	firmwares     map[int]*store.Firmware
	languages     map[string]*store.Language
	services      map[string]*store.Service

	packages    map[int64]*store.Package
	maintainers map[int64][]int64
	versions    map[int64]*store.Version

	displaynames map[int64]map[int64]string
	descriptions map[int64]map[int64]string
	icons        map[int64]map[string]string
	serviceDeps  map[int64][]int64

	builds     map[int64]*store.Build
	buildArchs map[int64][]int64
	manifests  map[int64]*store.BuildManifest

	// failSetMD5 forces SetBuildMD5 to fail, to exercise cleanup.
	failSetMD5 error
}

func newFakeTx() *fakeTx {
	tx := &fakeTx{
		architectures: make(map[string]*store.Architecture),
		firmwares:     make(map[int]*store.Firmware),
		languages:     make(map[string]*store.Language),
		services:      make(map[string]*store.Service),
		packages:      make(map[int64]*store.Package),
		maintainers:   make(map[int64][]int64),
		versions:      make(map[int64]*store.Version),
		displaynames:  make(map[int64]map[int64]string),
		descriptions:  make(map[int64]map[int64]string),
		icons:         make(map[int64]map[string]string),
		serviceDeps:   make(map[int64][]int64),
		builds:        make(map[int64]*store.Build),
		buildArchs:    make(map[int64][]int64),
		manifests:     make(map[int64]*store.BuildManifest),
	}
	for _, code := range []string{"noarch", "cedarview", "88f628x", "qoriq"} {
		tx.architectures[code] = &store.Architecture{ID: tx.id(), Code: code}
	}
	tx.firmwares[1594] = &store.Firmware{ID: tx.id(), Version: "3.1", Build: 1594, Type: "dsm"}
	tx.firmwares[4458] = &store.Firmware{ID: tx.id(), Version: "5.0", Build: 4458, Type: "dsm"}
	for _, code := range []string{"enu", "fre"} {
		tx.languages[code] = &store.Language{ID: tx.id(), Code: code}
	}
	tx.services["apache-web"] = &store.Service{ID: tx.id(), Code: "apache-web"}
	return tx
}

func (tx *fakeTx) id() int64 {
	tx.nextID++
	return tx.nextID
}

func (tx *fakeTx) ArchitectureBySynoCode(_ context.Context, code string) (*store.Architecture, error) {
	if a, ok := tx.architectures[store.NormalizeArch(code)]; ok {
		return a, nil
	}
	return nil, store.ErrNotFound
}

func (tx *fakeTx) FirmwareByBuild(_ context.Context, build int) (*store.Firmware, error) {
	if f, ok := tx.firmwares[build]; ok {
		return f, nil
	}
	return nil, store.ErrNotFound
}

func (tx *fakeTx) LanguageByCode(_ context.Context, code string) (*store.Language, error) {
	if l, ok := tx.languages[code]; ok {
		return l, nil
	}
	return nil, store.ErrNotFound
}

func (tx *fakeTx) ServiceByCode(_ context.Context, code string) (*store.Service, error) {
	if svc, ok := tx.services[code]; ok {
		return svc, nil
	}
	return nil, store.ErrNotFound
}

func (tx *fakeTx) CreateService(_ context.Context, code string) (*store.Service, error) {
	if svc, ok := tx.services[code]; ok {
		return svc, nil
	}
	svc := &store.Service{ID: tx.id(), Code: code}
	tx.services[code] = svc
	return svc, nil
}

func (tx *fakeTx) PackageByName(_ context.Context, name string) (*store.Package, error) {
	for _, p := range tx.packages {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (tx *fakeTx) PackageByID(_ context.Context, id int64) (*store.Package, error) {
	if p, ok := tx.packages[id]; ok {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (tx *fakeTx) CreatePackage(_ context.Context, name string, authorID int64) (*store.Package, error) {
	p := &store.Package{ID: tx.id(), Name: name, AuthorID: &authorID, InsertDate: time.Now()}
	tx.packages[p.ID] = p
	return p, nil
}

func (tx *fakeTx) IsMaintainer(_ context.Context, packageID, userID int64) (bool, error) {
	for _, id := range tx.maintainers[packageID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (tx *fakeTx) VersionByNumber(_ context.Context, packageID int64, number int) (*store.Version, error) {
	for _, v := range tx.versions {
		if v.PackageID == packageID && v.Version == number {
			return v, nil
		}
	}
	return nil, store.ErrNotFound
}

func (tx *fakeTx) VersionByID(_ context.Context, id int64) (*store.Version, error) {
	if v, ok := tx.versions[id]; ok {
		return v, nil
	}
	return nil, store.ErrNotFound
}

func (tx *fakeTx) CreateVersion(_ context.Context, v *store.Version) error {
	v.ID = tx.id()
	v.InsertDate = time.Now()
	tx.versions[v.ID] = v
	return nil
}

func (tx *fakeTx) UpdateVersionMetadata(_ context.Context, v *store.Version) error {
	tx.versions[v.ID] = v
	return nil
}

func (tx *fakeTx) SetDisplayName(_ context.Context, versionID, languageID int64, name string) error {
	if tx.displaynames[versionID] == nil {
		tx.displaynames[versionID] = make(map[int64]string)
	}
	tx.displaynames[versionID][languageID] = name
	return nil
}

func (tx *fakeTx) ClearDisplayNames(_ context.Context, versionID int64) error {
	delete(tx.displaynames, versionID)
	return nil
}

func (tx *fakeTx) SetDescription(_ context.Context, versionID, languageID int64, description string) error {
	if tx.descriptions[versionID] == nil {
		tx.descriptions[versionID] = make(map[int64]string)
	}
	tx.descriptions[versionID][languageID] = description
	return nil
}

func (tx *fakeTx) ClearDescriptions(_ context.Context, versionID int64) error {
	delete(tx.descriptions, versionID)
	return nil
}

func (tx *fakeTx) UpsertIcon(_ context.Context, versionID int64, size, path string) error {
	if tx.icons[versionID] == nil {
		tx.icons[versionID] = make(map[string]string)
	}
	tx.icons[versionID][size] = path
	return nil
}

func (tx *fakeTx) DeleteIcon(_ context.Context, versionID int64, size string) (string, error) {
	path, ok := tx.icons[versionID][size]
	if !ok {
		return "", store.ErrNotFound
	}
	delete(tx.icons[versionID], size)
	return path, nil
}

func (tx *fakeTx) IconsByVersion(_ context.Context, versionID int64) (map[string]string, error) {
	out := make(map[string]string, len(tx.icons[versionID]))
	for size, path := range tx.icons[versionID] {
		out[size] = path
	}
	return out, nil
}

func (tx *fakeTx) AddServiceDependency(_ context.Context, versionID, serviceID int64) error {
	tx.serviceDeps[versionID] = append(tx.serviceDeps[versionID], serviceID)
	return nil
}

func (tx *fakeTx) ClearServiceDependencies(_ context.Context, versionID int64) error {
	delete(tx.serviceDeps, versionID)
	return nil
}

func (tx *fakeTx) DeletePackage(_ context.Context, id int64) error {
	if _, ok := tx.packages[id]; !ok {
		return store.ErrNotFound
	}
	for vid, v := range tx.versions {
		if v.PackageID == id {
			tx.deleteVersion(vid)
		}
	}
	delete(tx.packages, id)
	delete(tx.maintainers, id)
	return nil
}

func (tx *fakeTx) DeleteVersion(_ context.Context, id int64) error {
	if _, ok := tx.versions[id]; !ok {
		return store.ErrNotFound
	}
	tx.deleteVersion(id)
	return nil
}

func (tx *fakeTx) deleteVersion(id int64) {
	for bid, b := range tx.builds {
		if b.VersionID == id {
			delete(tx.builds, bid)
			delete(tx.buildArchs, bid)
			delete(tx.manifests, bid)
		}
	}
	delete(tx.versions, id)
	delete(tx.displaynames, id)
	delete(tx.descriptions, id)
	delete(tx.icons, id)
	delete(tx.serviceDeps, id)
}

func (tx *fakeTx) DeleteBuild(_ context.Context, id int64) error {
	if _, ok := tx.builds[id]; !ok {
		return store.ErrNotFound
	}
	delete(tx.builds, id)
	delete(tx.buildArchs, id)
	delete(tx.manifests, id)
	return nil
}

func (tx *fakeTx) ConflictingArchitectures(_ context.Context, versionID, firmwareMinID int64, archIDs []int64) ([]string, error) {
	requested := make(map[int64]bool, len(archIDs))
	for _, id := range archIDs {
		requested[id] = true
	}
	seen := make(map[string]bool)
	for _, b := range tx.builds {
		if b.VersionID != versionID || b.FirmwareMinID != firmwareMinID {
			continue
		}
		for _, archID := range tx.buildArchs[b.ID] {
			if !requested[archID] {
				continue
			}
			for _, a := range tx.architectures {
				if a.ID == archID {
					seen[a.Code] = true
				}
			}
		}
	}
	var codes []string
	for code := range seen {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

func (tx *fakeTx) CreateBuild(_ context.Context, b *store.Build, archIDs []int64) error {
	b.ID = tx.id()
	b.InsertDate = time.Now()
	tx.builds[b.ID] = b
	tx.buildArchs[b.ID] = append([]int64(nil), archIDs...)
	return nil
}

func (tx *fakeTx) SetBuildManifest(_ context.Context, m *store.BuildManifest) error {
	tx.manifests[m.BuildID] = m
	return nil
}

func (tx *fakeTx) BuildByID(_ context.Context, id int64) (*store.Build, error) {
	b, ok := tx.builds[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *b
	out.Architectures = nil
	for _, archID := range tx.buildArchs[id] {
		for _, a := range tx.architectures {
			if a.ID == archID {
				out.Architectures = append(out.Architectures, *a)
			}
		}
	}
	for _, f := range tx.firmwares {
		if f.ID == b.FirmwareMinID {
			out.FirmwareMinBuild = f.Build
		}
		if b.FirmwareMaxID != nil && f.ID == *b.FirmwareMaxID {
			v := f.Build
			out.FirmwareMaxBuild = &v
		}
	}
	return &out, nil
}

func (tx *fakeTx) SetBuildActive(_ context.Context, buildID int64, active bool) error {
	tx.builds[buildID].Active = active
	return nil
}

func (tx *fakeTx) SetBuildMD5(_ context.Context, buildID int64, md5 *string) error {
	if tx.failSetMD5 != nil {
		return tx.failSetMD5
	}
	tx.builds[buildID].MD5 = md5
	return nil
}

func (tx *fakeTx) SetBuildChecksum(_ context.Context, buildID int64, checksum *string) error {
	tx.builds[buildID].Checksum = checksum
	return nil
}

func (tx *fakeTx) SetBuildFirmware(_ context.Context, buildID, firmwareMinID int64, firmwareMaxID *int64) error {
	tx.builds[buildID].FirmwareMinID = firmwareMinID
	tx.builds[buildID].FirmwareMaxID = firmwareMaxID
	return nil
}

func (tx *fakeTx) ReplaceBuildArchitectures(_ context.Context, buildID int64, archIDs []int64) error {
	tx.buildArchs[buildID] = append([]int64(nil), archIDs...)
	return nil
}

// fakeStore runs every transaction against the same fakeTx.
type fakeStore struct {
	tx *fakeTx
}

func (s fakeStore) WithTx(_ context.Context, fn func(tx Tx) error) error {
	return fn(s.tx)
}

// fakeSigner returns a fixed armored signature.
type fakeSigner struct {
	active bool
	err    error
	calls  int
}

func (s *fakeSigner) Active() bool {
	return s.active
}

func (s *fakeSigner) Sign(_ context.Context, canonical []byte) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "-----BEGIN PGP SIGNATURE-----\nfake\n-----END PGP SIGNATURE-----", nil
}
