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
	"context"

	"github.com/jackc/pgtype"
)

// CreateBuild inserts the build and its architecture links, filling in
// the build id.
func (t *Tx) CreateBuild(ctx context.Context, b *Build, archIDs []int64) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO build (version_id, firmware_min_id, firmware_max_id, publisher_user_id,
		                   checksum, path, md5, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, insert_date`,
		b.VersionID, b.FirmwareMinID, b.FirmwareMaxID, b.PublisherID,
		b.Checksum, b.Path, b.MD5, b.Active).Scan(&b.ID, &b.InsertDate)
	if err != nil {
		return err
	}
	for _, archID := range archIDs {
		if _, err := t.tx.Exec(ctx,
			`INSERT INTO build_architecture (build_id, architecture_id) VALUES ($1, $2)`,
			b.ID, archID); err != nil {
			return err
		}
	}
	return nil
}

// SetBuildManifest upserts the per-build manifest blob row.
func (t *Tx) SetBuildManifest(ctx context.Context, m *BuildManifest) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO buildmanifest (build_id, dependencies, conf_dependencies, conflicts,
		                           conf_conflicts, conf_privilege, conf_resource)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (build_id) DO UPDATE SET
			dependencies = EXCLUDED.dependencies,
			conf_dependencies = EXCLUDED.conf_dependencies,
			conflicts = EXCLUDED.conflicts,
			conf_conflicts = EXCLUDED.conf_conflicts,
			conf_privilege = EXCLUDED.conf_privilege,
			conf_resource = EXCLUDED.conf_resource`,
		m.BuildID, m.Dependencies, m.ConfDependencies, m.Conflicts,
		m.ConfConflicts, m.ConfPrivilege, m.ConfResource)
	return err
}

func buildByID(ctx context.Context, q querier, id int64) (*Build, error) {
	var b Build
	var fmaxBuild pgtype.Int4
	err := q.QueryRow(ctx, `
		SELECT b.id, b.version_id, b.firmware_min_id, b.firmware_max_id,
		       b.publisher_user_id, b.checksum, b.path, b.md5, b.active, b.insert_date,
		       fmin.build, fmax.build
		FROM build b
		JOIN firmware fmin ON fmin.id = b.firmware_min_id
		LEFT JOIN firmware fmax ON fmax.id = b.firmware_max_id
		WHERE b.id = $1`,
		id).Scan(
		&b.ID, &b.VersionID, &b.FirmwareMinID, &b.FirmwareMaxID,
		&b.PublisherID, &b.Checksum, &b.Path, &b.MD5, &b.Active, &b.InsertDate,
		&b.FirmwareMinBuild, &fmaxBuild)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if fmaxBuild.Status == pgtype.Present {
		v := int(fmaxBuild.Int)
		b.FirmwareMaxBuild = &v
	}
	rows, err := q.Query(ctx, `
		SELECT a.id, a.code FROM architecture a
		JOIN build_architecture ba ON ba.architecture_id = a.id
		WHERE ba.build_id = $1 ORDER BY a.code`,
		id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a Architecture
		if err := rows.Scan(&a.ID, &a.Code); err != nil {
			return nil, err
		}
		b.Architectures = append(b.Architectures, a)
	}
	return &b, rows.Err()
}

// BuildByID loads a build with its firmware builds and architectures
// joined in.
func (s *Store) BuildByID(ctx context.Context, id int64) (*Build, error) {
	return buildByID(ctx, s.pool, id)
}

// BuildByID is the transactional variant, used by the admin actions.
func (t *Tx) BuildByID(ctx context.Context, id int64) (*Build, error) {
	return buildByID(ctx, t.tx, id)
}

// VersionByID loads a version by primary key.
func (t *Tx) VersionByID(ctx context.Context, id int64) (*Version, error) {
	var v Version
	err := t.tx.QueryRow(ctx, `
		SELECT id, package_id, version, upstream_version, changelog, report_url,
		       distributor, distributor_url, maintainer, maintainer_url,
		       install_wizard, upgrade_wizard, startable, license, insert_date
		FROM version WHERE id = $1`,
		id).Scan(
		&v.ID, &v.PackageID, &v.Version, &v.UpstreamVersion, &v.Changelog, &v.ReportURL,
		&v.Distributor, &v.DistributorURL, &v.Maintainer, &v.MaintainerURL,
		&v.InstallWizard, &v.UpgradeWizard, &v.Startable, &v.License, &v.InsertDate)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &v, nil
}

// PackageByID loads a package by primary key.
func (t *Tx) PackageByID(ctx context.Context, id int64) (*Package, error) {
	var p Package
	err := t.tx.QueryRow(ctx,
		`SELECT id, name, author_user_id, insert_date FROM package WHERE id = $1`,
		id).Scan(&p.ID, &p.Name, &p.AuthorID, &p.InsertDate)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &p, nil
}

// SetBuildActive flips the activation flag.
func (t *Tx) SetBuildActive(ctx context.Context, buildID int64, active bool) error {
	_, err := t.tx.Exec(ctx, `UPDATE build SET active = $2 WHERE id = $1`, buildID, active)
	return err
}

// SetBuildMD5 records the md5 of the artifact currently on disk. A nil
// value clears it, forcing recomputation on the next catalog render.
func (t *Tx) SetBuildMD5(ctx context.Context, buildID int64, md5 *string) error {
	_, err := t.tx.Exec(ctx, `UPDATE build SET md5 = $2 WHERE id = $1`, buildID, md5)
	return err
}

// SetBuildChecksum updates the extracted INFO checksum.
func (t *Tx) SetBuildChecksum(ctx context.Context, buildID int64, checksum *string) error {
	_, err := t.tx.Exec(ctx, `UPDATE build SET checksum = $2 WHERE id = $1`, buildID, checksum)
	return err
}

// SetBuildFirmware repoints the firmware range, used by re-sync when
// the artifact on disk disagrees with the stored range.
func (t *Tx) SetBuildFirmware(ctx context.Context, buildID, firmwareMinID int64, firmwareMaxID *int64) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE build SET firmware_min_id = $2, firmware_max_id = $3 WHERE id = $1`,
		buildID, firmwareMinID, firmwareMaxID)
	return err
}

// ReplaceBuildArchitectures swaps the architecture set of a build.
func (t *Tx) ReplaceBuildArchitectures(ctx context.Context, buildID int64, archIDs []int64) error {
	if _, err := t.tx.Exec(ctx,
		`DELETE FROM build_architecture WHERE build_id = $1`, buildID); err != nil {
		return err
	}
	for _, archID := range archIDs {
		if _, err := t.tx.Exec(ctx,
			`INSERT INTO build_architecture (build_id, architecture_id) VALUES ($1, $2)`,
			buildID, archID); err != nil {
			return err
		}
	}
	return nil
}
