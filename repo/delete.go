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
	"os"

	"github.com/SynoCommunity/spkrepo/dirs"
)

// The filesystem side of a delete runs after the transaction commits:
// a delete that fails mid-transaction leaves the files where they were,
// and a file that outlives its rows is invisible to the catalog while
// the inverse would serve dead links.

// DeletePackage removes a package with all its versions and builds,
// then removes the package data directory.
func (m *Manager) DeletePackage(ctx context.Context, packageID int64) error {
	var name string
	err := m.store.WithTx(ctx, func(tx Tx) error {
		pkg, err := tx.PackageByID(ctx, packageID)
		if err != nil {
			return err
		}
		name = pkg.Name
		return tx.DeletePackage(ctx, packageID)
	})
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dirs.PackageDir(name)); err != nil {
		m.log.WithError(err).Error("cannot remove package directory")
	}
	return nil
}

// DeleteVersion removes a version with its builds and localized
// metadata, then removes the version directory (builds and icons).
func (m *Manager) DeleteVersion(ctx context.Context, versionID int64) error {
	var name string
	var number int
	err := m.store.WithTx(ctx, func(tx Tx) error {
		ver, err := tx.VersionByID(ctx, versionID)
		if err != nil {
			return err
		}
		pkg, err := tx.PackageByID(ctx, ver.PackageID)
		if err != nil {
			return err
		}
		name = pkg.Name
		number = ver.Version
		return tx.DeleteVersion(ctx, versionID)
	})
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dirs.VersionDir(name, number)); err != nil {
		m.log.WithError(err).Error("cannot remove version directory")
	}
	return nil
}

// DeleteBuild removes a build with its manifest and download log, then
// unlinks its SPK file. Sibling builds and the version icons stay.
func (m *Manager) DeleteBuild(ctx context.Context, buildID int64) error {
	var path string
	err := m.store.WithTx(ctx, func(tx Tx) error {
		b, err := tx.BuildByID(ctx, buildID)
		if err != nil {
			return err
		}
		path = b.Path
		return tx.DeleteBuild(ctx, buildID)
	})
	if err != nil {
		return err
	}
	name, err := dirs.DataFile(path)
	if err != nil {
		return err
	}
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		m.log.WithError(err).Error("cannot remove build file")
	}
	return nil
}
