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
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CatalogRow is one chosen build with everything the catalog renderer
// needs joined in.
type CatalogRow struct {
	Package  Package
	Version  Version
	Build    Build
	Manifest *BuildManifest

	DisplayNames map[string]string
	Descriptions map[string]string
	IconPaths    []string
	Screenshots  []string
	ServiceCodes []string

	DownloadCount       int64
	RecentDownloadCount int64
}

// catalogQuery selects one build id per package in three stages:
// candidate builds first, then the highest version per package, then
// the highest minimum firmware on that version. DISTINCT ON breaks
// remaining ties by build id.
const catalogQuery = `
WITH candidate AS (
	SELECT DISTINCT p.id AS package_id, v.id AS version_id, v.version,
	       b.id AS build_id, fmin.build AS firmware_build
	FROM build b
	JOIN version v ON v.id = b.version_id
	JOIN package p ON p.id = v.package_id
	JOIN firmware fmin ON fmin.id = b.firmware_min_id
	LEFT JOIN firmware fmax ON fmax.id = b.firmware_max_id
	JOIN build_architecture ba ON ba.build_id = b.id
	JOIN architecture a ON a.id = ba.architecture_id
	WHERE b.active
	  AND a.code IN ('noarch', $1)
	  AND fmin.build <= $2
	  AND (b.firmware_max_id IS NULL OR fmax.build >= $2)
	  AND (fmin.version LIKE $3 OR ($4 AND a.code = 'noarch' AND fmin.version LIKE '3.%'))
	  AND ($5 OR v.report_url IS NULL OR v.report_url = '')
), latest_version AS (
	SELECT package_id, max(version) AS version
	FROM candidate GROUP BY package_id
), latest_firmware AS (
	SELECT c.package_id, c.version, max(c.firmware_build) AS firmware_build
	FROM candidate c
	JOIN latest_version lv ON lv.package_id = c.package_id AND lv.version = c.version
	GROUP BY c.package_id, c.version
)
SELECT DISTINCT ON (c.package_id) c.build_id
FROM candidate c
JOIN latest_firmware lf ON lf.package_id = c.package_id
	AND lf.version = c.version AND lf.firmware_build = c.firmware_build
ORDER BY c.package_id, c.build_id`

// CatalogBuilds resolves the catalog selection for a normalized
// architecture, an appliance firmware build and a firmware major, and
// loads each chosen build into a render-ready row.
func (s *Store) CatalogBuilds(ctx context.Context, arch string, build, major int, beta bool) ([]*CatalogRow, error) {
	majorPattern := strconv.Itoa(major) + ".%"
	rows, err := s.pool.Query(ctx, catalogQuery, arch, build, majorPattern, major < 6, beta)
	if err != nil {
		return nil, errors.Wrap(err, "cannot run catalog selection")
	}
	defer rows.Close()

	var buildIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		buildIDs = append(buildIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	catalog := make([]*CatalogRow, 0, len(buildIDs))
	for _, id := range buildIDs {
		row, err := s.catalogRow(ctx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot load catalog build %d", id)
		}
		catalog = append(catalog, row)
	}
	return catalog, nil
}

func (s *Store) catalogRow(ctx context.Context, buildID int64) (*CatalogRow, error) {
	b, err := buildByID(ctx, s.pool, buildID)
	if err != nil {
		return nil, err
	}
	row := &CatalogRow{Build: *b}

	err = s.pool.QueryRow(ctx, `
		SELECT v.id, v.package_id, v.version, v.upstream_version, v.changelog, v.report_url,
		       v.distributor, v.distributor_url, v.maintainer, v.maintainer_url,
		       v.install_wizard, v.upgrade_wizard, v.startable, v.license, v.insert_date,
		       p.id, p.name, p.author_user_id, p.insert_date
		FROM version v JOIN package p ON p.id = v.package_id
		WHERE v.id = $1`,
		b.VersionID).Scan(
		&row.Version.ID, &row.Version.PackageID, &row.Version.Version,
		&row.Version.UpstreamVersion, &row.Version.Changelog, &row.Version.ReportURL,
		&row.Version.Distributor, &row.Version.DistributorURL,
		&row.Version.Maintainer, &row.Version.MaintainerURL,
		&row.Version.InstallWizard, &row.Version.UpgradeWizard,
		&row.Version.Startable, &row.Version.License, &row.Version.InsertDate,
		&row.Package.ID, &row.Package.Name, &row.Package.AuthorID, &row.Package.InsertDate)
	if err != nil {
		return nil, notFoundOr(err)
	}

	row.DisplayNames, err = s.localizedStrings(ctx,
		`SELECT l.code, d.displayname FROM displayname d JOIN language l ON l.id = d.language_id WHERE d.version_id = $1`,
		b.VersionID)
	if err != nil {
		return nil, err
	}
	row.Descriptions, err = s.localizedStrings(ctx,
		`SELECT l.code, d.description FROM description d JOIN language l ON l.id = d.language_id WHERE d.version_id = $1`,
		b.VersionID)
	if err != nil {
		return nil, err
	}

	row.IconPaths, err = s.stringColumn(ctx,
		`SELECT path FROM icon WHERE version_id = $1 ORDER BY size`, b.VersionID)
	if err != nil {
		return nil, err
	}
	row.Screenshots, err = s.stringColumn(ctx,
		`SELECT path FROM screenshot WHERE package_id = $1 ORDER BY path`, row.Package.ID)
	if err != nil {
		return nil, err
	}
	row.ServiceCodes, err = s.stringColumn(ctx, `
		SELECT s.code FROM service s
		JOIN version_service_dependency vsd ON vsd.service_id = s.id
		WHERE vsd.version_id = $1 ORDER BY s.code`, b.VersionID)
	if err != nil {
		return nil, err
	}

	row.Manifest, err = s.manifestByBuild(ctx, b.ID)
	if err != nil && err != ErrNotFound {
		return nil, err
	}

	row.DownloadCount, row.RecentDownloadCount, err = s.downloadCounts(ctx, row.Package.ID)
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *Store) localizedStrings(ctx context.Context, query string, versionID int64) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, query, versionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var code, value string
		if err := rows.Scan(&code, &value); err != nil {
			return nil, err
		}
		m[code] = value
	}
	return m, rows.Err()
}

func (s *Store) stringColumn(ctx context.Context, query string, arg interface{}) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (s *Store) manifestByBuild(ctx context.Context, buildID int64) (*BuildManifest, error) {
	var m BuildManifest
	err := s.pool.QueryRow(ctx, `
		SELECT build_id, dependencies, conf_dependencies, conflicts,
		       conf_conflicts, conf_privilege, conf_resource
		FROM buildmanifest WHERE build_id = $1`,
		buildID).Scan(
		&m.BuildID, &m.Dependencies, &m.ConfDependencies, &m.Conflicts,
		&m.ConfConflicts, &m.ConfPrivilege, &m.ConfResource)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &m, nil
}

// majorOfVersion extracts the integer prefix of a firmware version
// string, e.g. 5 for "5.0".
func majorOfVersion(version string) (int, error) {
	head := version
	if i := strings.IndexByte(version, '.'); i >= 0 {
		head = version[:i]
	}
	major, err := strconv.Atoi(head)
	if err != nil {
		return 0, errors.Errorf("invalid firmware version %q", version)
	}
	return major, nil
}
