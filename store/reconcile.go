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
)

// PackageByName finds a package by its unique name.
func (t *Tx) PackageByName(ctx context.Context, name string) (*Package, error) {
	var p Package
	err := t.tx.QueryRow(ctx,
		`SELECT id, name, author_user_id, insert_date FROM package WHERE name = $1`,
		name).Scan(&p.ID, &p.Name, &p.AuthorID, &p.InsertDate)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &p, nil
}

// CreatePackage inserts a new package authored by the given user.
func (t *Tx) CreatePackage(ctx context.Context, name string, authorID int64) (*Package, error) {
	p := &Package{Name: name, AuthorID: &authorID}
	err := t.tx.QueryRow(ctx,
		`INSERT INTO package (name, author_user_id) VALUES ($1, $2) RETURNING id, insert_date`,
		name, authorID).Scan(&p.ID, &p.InsertDate)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// IsMaintainer reports whether the user maintains the package.
func (t *Tx) IsMaintainer(ctx context.Context, packageID, userID int64) (bool, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT count(*) FROM package_user_maintainer WHERE package_id = $1 AND user_id = $2`,
		packageID, userID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// VersionByNumber finds the version with the given number under a
// package.
func (t *Tx) VersionByNumber(ctx context.Context, packageID int64, number int) (*Version, error) {
	var v Version
	err := t.tx.QueryRow(ctx, `
		SELECT id, package_id, version, upstream_version, changelog, report_url,
		       distributor, distributor_url, maintainer, maintainer_url,
		       install_wizard, upgrade_wizard, startable, license, insert_date
		FROM version WHERE package_id = $1 AND version = $2`,
		packageID, number).Scan(
		&v.ID, &v.PackageID, &v.Version, &v.UpstreamVersion, &v.Changelog, &v.ReportURL,
		&v.Distributor, &v.DistributorURL, &v.Maintainer, &v.MaintainerURL,
		&v.InstallWizard, &v.UpgradeWizard, &v.Startable, &v.License, &v.InsertDate)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &v, nil
}

// CreateVersion inserts the version and fills in its id.
func (t *Tx) CreateVersion(ctx context.Context, v *Version) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO version (package_id, version, upstream_version, changelog, report_url,
		                     distributor, distributor_url, maintainer, maintainer_url,
		                     install_wizard, upgrade_wizard, startable, license)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, insert_date`,
		v.PackageID, v.Version, v.UpstreamVersion, v.Changelog, v.ReportURL,
		v.Distributor, v.DistributorURL, v.Maintainer, v.MaintainerURL,
		v.InstallWizard, v.UpgradeWizard, v.Startable, v.License).Scan(&v.ID, &v.InsertDate)
}

// UpdateVersionMetadata replaces the mutable version fields, used by
// the re-sync path.
func (t *Tx) UpdateVersionMetadata(ctx context.Context, v *Version) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE version SET upstream_version = $2, changelog = $3, report_url = $4,
		       distributor = $5, distributor_url = $6, maintainer = $7, maintainer_url = $8,
		       install_wizard = $9, upgrade_wizard = $10, startable = $11, license = $12
		WHERE id = $1`,
		v.ID, v.UpstreamVersion, v.Changelog, v.ReportURL,
		v.Distributor, v.DistributorURL, v.Maintainer, v.MaintainerURL,
		v.InstallWizard, v.UpgradeWizard, v.Startable, v.License)
	return err
}

// SetDisplayName upserts a localized display name.
func (t *Tx) SetDisplayName(ctx context.Context, versionID, languageID int64, name string) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO displayname (version_id, language_id, displayname) VALUES ($1, $2, $3)
		ON CONFLICT (version_id, language_id) DO UPDATE SET displayname = EXCLUDED.displayname`,
		versionID, languageID, name)
	return err
}

// ClearDisplayNames removes all localized display names of a version.
func (t *Tx) ClearDisplayNames(ctx context.Context, versionID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM displayname WHERE version_id = $1`, versionID)
	return err
}

// SetDescription upserts a localized description.
func (t *Tx) SetDescription(ctx context.Context, versionID, languageID int64, description string) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO description (version_id, language_id, description) VALUES ($1, $2, $3)
		ON CONFLICT (version_id, language_id) DO UPDATE SET description = EXCLUDED.description`,
		versionID, languageID, description)
	return err
}

// ClearDescriptions removes all localized descriptions of a version.
func (t *Tx) ClearDescriptions(ctx context.Context, versionID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM description WHERE version_id = $1`, versionID)
	return err
}

// UpsertIcon records the stored path of an icon size.
func (t *Tx) UpsertIcon(ctx context.Context, versionID int64, size, path string) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO icon (version_id, size, path) VALUES ($1, $2, $3)
		ON CONFLICT (version_id, size) DO UPDATE SET path = EXCLUDED.path`,
		versionID, size, path)
	return err
}

// DeleteIcon removes the icon row for a size, returning its path so
// the caller can unlink the file.
func (t *Tx) DeleteIcon(ctx context.Context, versionID int64, size string) (string, error) {
	var path string
	err := t.tx.QueryRow(ctx,
		`DELETE FROM icon WHERE version_id = $1 AND size = $2 RETURNING path`,
		versionID, size).Scan(&path)
	if err != nil {
		return "", notFoundOr(err)
	}
	return path, nil
}

// IconsByVersion returns size → stored path for a version.
func (t *Tx) IconsByVersion(ctx context.Context, versionID int64) (map[string]string, error) {
	rows, err := t.tx.Query(ctx, `SELECT size, path FROM icon WHERE version_id = $1`, versionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	icons := make(map[string]string)
	for rows.Next() {
		var size, path string
		if err := rows.Scan(&size, &path); err != nil {
			return nil, err
		}
		icons[size] = path
	}
	return icons, rows.Err()
}

// AddServiceDependency links a service to a version.
func (t *Tx) AddServiceDependency(ctx context.Context, versionID, serviceID int64) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO version_service_dependency (version_id, service_id) VALUES ($1, $2)`,
		versionID, serviceID)
	return err
}

// ClearServiceDependencies unlinks all services from a version.
func (t *Tx) ClearServiceDependencies(ctx context.Context, versionID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM version_service_dependency WHERE version_id = $1`, versionID)
	return err
}

// CreateService inserts a service code, returning the existing row
// when the code is already known.
func (t *Tx) CreateService(ctx context.Context, code string) (*Service, error) {
	svc := &Service{Code: code}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO service (code) VALUES ($1)
		ON CONFLICT (code) DO UPDATE SET code = EXCLUDED.code
		RETURNING id`,
		code).Scan(&svc.ID)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// ConflictingArchitectures returns the codes of architectures already
// bound to an active-or-not build of the version with the same
// minimum firmware. This backs the only 409 in the upload pipeline.
func (t *Tx) ConflictingArchitectures(ctx context.Context, versionID, firmwareMinID int64, archIDs []int64) ([]string, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT DISTINCT a.code
		FROM build b
		JOIN build_architecture ba ON ba.build_id = b.id
		JOIN architecture a ON a.id = ba.architecture_id
		WHERE b.version_id = $1 AND b.firmware_min_id = $2 AND a.id = ANY($3)
		ORDER BY a.code`,
		versionID, firmwareMinID, archIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
