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

import "context"

// The schema cascades from package down to version, build and their
// child tables, so each delete is a single statement.

func deleteRow(ctx context.Context, q querier, query string, id int64) error {
	tag, err := q.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePackage removes a package row with all its versions, builds,
// screenshots and maintainer links.
func (tx *Tx) DeletePackage(ctx context.Context, id int64) error {
	return deleteRow(ctx, tx.tx, `DELETE FROM package WHERE id = $1`, id)
}

// DeleteVersion removes a version row with its localized metadata,
// icons, service dependencies and builds.
func (tx *Tx) DeleteVersion(ctx context.Context, id int64) error {
	return deleteRow(ctx, tx.tx, `DELETE FROM version WHERE id = $1`, id)
}

// DeleteBuild removes a build row with its architecture links, manifest
// and download log.
func (tx *Tx) DeleteBuild(ctx context.Context, id int64) error {
	return deleteRow(ctx, tx.tx, `DELETE FROM build WHERE id = $1`, id)
}
