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

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

// querier is satisfied by both the pool and a transaction, so lookups
// can run in either context.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func architectureByCode(ctx context.Context, q querier, code string) (*Architecture, error) {
	var a Architecture
	err := q.QueryRow(ctx, `SELECT id, code FROM architecture WHERE code = $1`, code).Scan(&a.ID, &a.Code)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &a, nil
}

func architectureByID(ctx context.Context, q querier, id int64) (*Architecture, error) {
	var a Architecture
	err := q.QueryRow(ctx, `SELECT id, code FROM architecture WHERE id = $1`, id).Scan(&a.ID, &a.Code)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &a, nil
}

func languageByCode(ctx context.Context, q querier, code string) (*Language, error) {
	var l Language
	err := q.QueryRow(ctx, `SELECT id, code, COALESCE(name, '') FROM language WHERE code = $1`, code).Scan(&l.ID, &l.Code, &l.Name)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &l, nil
}

func firmwareByBuild(ctx context.Context, q querier, build int) (*Firmware, error) {
	var f Firmware
	err := q.QueryRow(ctx, `SELECT id, version, build, type FROM firmware WHERE build = $1`, build).Scan(&f.ID, &f.Version, &f.Build, &f.Type)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &f, nil
}

func serviceByCode(ctx context.Context, q querier, code string) (*Service, error) {
	var svc Service
	err := q.QueryRow(ctx, `SELECT id, code FROM service WHERE code = $1`, code).Scan(&svc.ID, &svc.Code)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &svc, nil
}

// ArchitectureByCode finds an architecture by its repository code.
func (s *Store) ArchitectureByCode(ctx context.Context, code string) (*Architecture, error) {
	return architectureByCode(ctx, s.pool, code)
}

// ArchitectureByID finds an architecture by primary key.
func (s *Store) ArchitectureByID(ctx context.Context, id int64) (*Architecture, error) {
	return architectureByID(ctx, s.pool, id)
}

// LanguageByCode finds a language by its three-letter code.
func (s *Store) LanguageByCode(ctx context.Context, code string) (*Language, error) {
	return languageByCode(ctx, s.pool, code)
}

// FirmwareByBuild finds a firmware by its build number.
func (s *Store) FirmwareByBuild(ctx context.Context, build int) (*Firmware, error) {
	return firmwareByBuild(ctx, s.pool, build)
}

// LatestDSMMajor derives the firmware major for a query that did not
// send one: the integer version prefix of the most recent dsm
// firmware with build ≤ the requested build.
func (s *Store) LatestDSMMajor(ctx context.Context, build int) (int, error) {
	var version string
	err := s.pool.QueryRow(ctx,
		`SELECT version FROM firmware WHERE type = 'dsm' AND build <= $1 ORDER BY build DESC LIMIT 1`,
		build).Scan(&version)
	if err != nil {
		return 0, notFoundOr(err)
	}
	return majorOfVersion(version)
}

// Tx variants used by the reconciler.

// ArchitectureBySynoCode resolves an appliance-reported architecture
// code, applying the syno normalization mapping first.
func (t *Tx) ArchitectureBySynoCode(ctx context.Context, code string) (*Architecture, error) {
	return architectureByCode(ctx, t.tx, NormalizeArch(code))
}

// FirmwareByBuild finds a firmware by its build number.
func (t *Tx) FirmwareByBuild(ctx context.Context, build int) (*Firmware, error) {
	return firmwareByBuild(ctx, t.tx, build)
}

// LanguageByCode finds a language by its three-letter code.
func (t *Tx) LanguageByCode(ctx context.Context, code string) (*Language, error) {
	return languageByCode(ctx, t.tx, code)
}

// ServiceByCode finds a service by code.
func (t *Tx) ServiceByCode(ctx context.Context, code string) (*Service, error) {
	return serviceByCode(ctx, t.tx, code)
}
