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

// RecordDownload appends one download log row.
func (s *Store) RecordDownload(ctx context.Context, d *Download) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO download (build_id, architecture_id, firmware_build, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, date`,
		d.BuildID, d.ArchitectureID, d.FirmwareBuild, d.IPAddress, d.UserAgent).Scan(&d.ID, &d.Date)
}

// downloadCounts returns the all-time and the trailing-90-day download
// totals of a package, across all its builds.
func (s *Store) downloadCounts(ctx context.Context, packageID int64) (total, recent int64, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE d.date >= now() - interval '90 days')
		FROM download d
		JOIN build b ON b.id = d.build_id
		JOIN version v ON v.id = b.version_id
		WHERE v.package_id = $1`,
		packageID).Scan(&total, &recent)
	return total, recent, err
}
