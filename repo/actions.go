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
	"errors"
	"net/http"
	"os"

	"github.com/SynoCommunity/spkrepo/dirs"
	"github.com/SynoCommunity/spkrepo/osutil"
	"github.com/SynoCommunity/spkrepo/spk"
	"github.com/SynoCommunity/spkrepo/store"
)

var errSigningDisabled = &UploadError{
	Status:  http.StatusInternalServerError,
	Message: "Signing is not configured",
}

// ActivateBuild flips the activation flag of a build. Inactive builds
// never appear in the catalog.
func (m *Manager) ActivateBuild(ctx context.Context, buildID int64, active bool) error {
	return m.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.BuildByID(ctx, buildID); err != nil {
			return err
		}
		return tx.SetBuildActive(ctx, buildID, active)
	})
}

// SignBuild attaches a detached signature to the stored artifact of a
// build and refreshes its md5.
func (m *Manager) SignBuild(ctx context.Context, buildID int64) error {
	if m.signer == nil || !m.signer.Active() {
		return errSigningDisabled
	}
	return m.store.WithTx(ctx, func(tx Tx) error {
		b, s, _, err := loadBuildArtifact(ctx, tx, buildID)
		if err != nil {
			return err
		}
		if s.Signature != nil {
			return spk.ErrAlreadySigned
		}
		signature, err := m.signer.Sign(ctx, s.CanonicalBytes())
		if err != nil {
			m.log.WithError(err).Error("cannot sign build")
			return &UploadError{Status: http.StatusInternalServerError, Message: "Failed to sign package"}
		}
		signed, err := s.WithSignature(signature)
		if err != nil {
			return err
		}
		return writeBuildArtifact(ctx, tx, b, signed)
	})
}

// UnsignBuild strips the signature from the stored artifact of a build
// and refreshes its md5.
func (m *Manager) UnsignBuild(ctx context.Context, buildID int64) error {
	return m.store.WithTx(ctx, func(tx Tx) error {
		b, s, _, err := loadBuildArtifact(ctx, tx, buildID)
		if err != nil {
			return err
		}
		if s.Signature == nil {
			return spk.ErrNotSigned
		}
		unsigned, err := s.WithoutSignature()
		if err != nil {
			return err
		}
		return writeBuildArtifact(ctx, tx, b, unsigned)
	})
}

// ResyncBuild re-reads the stored artifact of a build and re-applies
// its metadata over the existing entities: localized names and
// descriptions are replaced wholesale, icons regenerated, the firmware
// range and architecture set refreshed and the manifest overwritten.
// Packages, versions and builds are never created or deleted here.
func (m *Manager) ResyncBuild(ctx context.Context, buildID int64) error {
	return m.store.WithTx(ctx, func(tx Tx) error {
		b, s, data, err := loadBuildArtifact(ctx, tx, buildID)
		if err != nil {
			return err
		}
		ver, err := tx.VersionByID(ctx, b.VersionID)
		if err != nil {
			return err
		}
		pkg, err := tx.PackageByID(ctx, ver.PackageID)
		if err != nil {
			return err
		}

		archs, err := resolveArchitectures(ctx, tx, s.Info["arch"])
		if err != nil {
			return err
		}
		fwMin, fwMax, err := resolveFirmware(ctx, tx, s)
		if err != nil {
			return err
		}

		upstream, _, err := parseVersionString(s.Info["version"])
		if err != nil {
			return err
		}
		refreshed := versionFromSPK(pkg.ID, ver.Version, upstream, s)
		refreshed.ID = ver.ID
		if err := tx.UpdateVersionMetadata(ctx, refreshed); err != nil {
			return err
		}

		if err := tx.ClearDisplayNames(ctx, ver.ID); err != nil {
			return err
		}
		if err := tx.ClearDescriptions(ctx, ver.ID); err != nil {
			return err
		}
		if err := tx.ClearServiceDependencies(ctx, ver.ID); err != nil {
			return err
		}
		if err := applyVersionMetadata(ctx, tx, refreshed, pkg.Name, s); err != nil {
			return err
		}
		if err := m.resyncIcons(ctx, tx, refreshed, pkg.Name, s); err != nil {
			return err
		}

		var fwMaxID *int64
		if fwMax != nil {
			fwMaxID = &fwMax.ID
		}
		if err := tx.SetBuildFirmware(ctx, b.ID, fwMin.ID, fwMaxID); err != nil {
			return err
		}
		if err := tx.ReplaceBuildArchitectures(ctx, b.ID, architectureIDs(archs)); err != nil {
			return err
		}
		if err := tx.SetBuildChecksum(ctx, b.ID, infoPtr(s, "checksum")); err != nil {
			return err
		}
		if err := tx.SetBuildManifest(ctx, manifestFromSPK(b.ID, s)); err != nil {
			return err
		}
		md5 := osutil.MD5Sum(data)
		return tx.SetBuildMD5(ctx, b.ID, &md5)
	})
}

// resyncIcons regenerates the icon files and rows from the artifact,
// removing sizes the artifact no longer carries.
func (m *Manager) resyncIcons(ctx context.Context, tx Tx, ver *store.Version, packageName string, s *spk.SPK) error {
	existing, err := tx.IconsByVersion(ctx, ver.ID)
	if err != nil {
		return err
	}
	for size, icon := range s.Icons {
		rel := iconPath(packageName, ver.Version, size)
		if err := tx.UpsertIcon(ctx, ver.ID, size, rel); err != nil {
			return err
		}
		name, err := dirs.DataFile(rel)
		if err != nil {
			return err
		}
		if err := osutil.AtomicWriteFile(name, icon, 0644); err != nil {
			return err
		}
	}
	for size := range existing {
		if _, ok := s.Icons[size]; ok {
			continue
		}
		rel, err := tx.DeleteIcon(ctx, ver.ID, size)
		if err != nil {
			return err
		}
		if name, err := dirs.DataFile(rel); err == nil {
			os.Remove(name)
		}
	}
	return nil
}

func loadBuildArtifact(ctx context.Context, tx Tx, buildID int64) (*store.Build, *spk.SPK, []byte, error) {
	b, err := tx.BuildByID(ctx, buildID)
	if err != nil {
		return nil, nil, nil, err
	}
	name, err := dirs.DataFile(b.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	data, err := os.ReadFile(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil, store.ErrNotFound
	}
	if err != nil {
		return nil, nil, nil, err
	}
	s, err := spk.Parse(data)
	if err != nil {
		return nil, nil, nil, err
	}
	return b, s, data, nil
}

func writeBuildArtifact(ctx context.Context, tx Tx, b *store.Build, data []byte) error {
	name, err := dirs.DataFile(b.Path)
	if err != nil {
		return err
	}
	if err := osutil.AtomicWriteFile(name, data, 0644); err != nil {
		return err
	}
	md5 := osutil.MD5Sum(data)
	return tx.SetBuildMD5(ctx, b.ID, &md5)
}
