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

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS "user" (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(50) UNIQUE NOT NULL,
		email VARCHAR(254) UNIQUE NOT NULL,
		api_key VARCHAR(64) UNIQUE,
		active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS role (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(50) UNIQUE NOT NULL,
		description VARCHAR(255)
	)`,
	`CREATE TABLE IF NOT EXISTS user_role (
		user_id BIGINT NOT NULL REFERENCES "user"(id) ON DELETE CASCADE,
		role_id BIGINT NOT NULL REFERENCES role(id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, role_id)
	)`,
	`CREATE TABLE IF NOT EXISTS architecture (
		id BIGSERIAL PRIMARY KEY,
		code VARCHAR(20) UNIQUE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS language (
		id BIGSERIAL PRIMARY KEY,
		code VARCHAR(3) UNIQUE NOT NULL,
		name VARCHAR(50)
	)`,
	`CREATE TABLE IF NOT EXISTS firmware (
		id BIGSERIAL PRIMARY KEY,
		version VARCHAR(8) NOT NULL,
		build INTEGER UNIQUE NOT NULL,
		type VARCHAR(4) NOT NULL DEFAULT 'dsm'
	)`,
	`CREATE TABLE IF NOT EXISTS service (
		id BIGSERIAL PRIMARY KEY,
		code VARCHAR(30) UNIQUE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS package (
		id BIGSERIAL PRIMARY KEY,
		author_user_id BIGINT REFERENCES "user"(id) ON DELETE SET NULL,
		name VARCHAR(50) UNIQUE NOT NULL,
		insert_date TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS package_user_maintainer (
		package_id BIGINT NOT NULL REFERENCES package(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL REFERENCES "user"(id) ON DELETE CASCADE,
		PRIMARY KEY (package_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS screenshot (
		id BIGSERIAL PRIMARY KEY,
		package_id BIGINT NOT NULL REFERENCES package(id) ON DELETE CASCADE,
		path VARCHAR(200) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS version (
		id BIGSERIAL PRIMARY KEY,
		package_id BIGINT NOT NULL REFERENCES package(id) ON DELETE CASCADE,
		version INTEGER NOT NULL,
		upstream_version VARCHAR(40) NOT NULL,
		changelog TEXT,
		report_url VARCHAR(255),
		distributor VARCHAR(50),
		distributor_url VARCHAR(255),
		maintainer VARCHAR(50),
		maintainer_url VARCHAR(255),
		install_wizard BOOLEAN,
		upgrade_wizard BOOLEAN,
		startable BOOLEAN,
		license TEXT,
		insert_date TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (package_id, version)
	)`,
	`CREATE INDEX IF NOT EXISTS version_version_idx ON version (version)`,
	`CREATE TABLE IF NOT EXISTS displayname (
		version_id BIGINT NOT NULL REFERENCES version(id) ON DELETE CASCADE,
		language_id BIGINT NOT NULL REFERENCES language(id),
		displayname VARCHAR(50) NOT NULL,
		PRIMARY KEY (version_id, language_id)
	)`,
	`CREATE TABLE IF NOT EXISTS description (
		version_id BIGINT NOT NULL REFERENCES version(id) ON DELETE CASCADE,
		language_id BIGINT NOT NULL REFERENCES language(id),
		description TEXT NOT NULL,
		PRIMARY KEY (version_id, language_id)
	)`,
	`CREATE TABLE IF NOT EXISTS icon (
		id BIGSERIAL PRIMARY KEY,
		version_id BIGINT NOT NULL REFERENCES version(id) ON DELETE CASCADE,
		size VARCHAR(3) NOT NULL CHECK (size IN ('72', '120', '256')),
		path VARCHAR(100) NOT NULL,
		UNIQUE (version_id, size)
	)`,
	`CREATE TABLE IF NOT EXISTS version_service_dependency (
		version_id BIGINT NOT NULL REFERENCES version(id) ON DELETE CASCADE,
		service_id BIGINT NOT NULL REFERENCES service(id)
	)`,
	`CREATE TABLE IF NOT EXISTS build (
		id BIGSERIAL PRIMARY KEY,
		version_id BIGINT NOT NULL REFERENCES version(id) ON DELETE CASCADE,
		firmware_min_id BIGINT NOT NULL REFERENCES firmware(id),
		firmware_max_id BIGINT REFERENCES firmware(id),
		publisher_user_id BIGINT REFERENCES "user"(id) ON DELETE SET NULL,
		checksum VARCHAR(32),
		path VARCHAR(2048) NOT NULL,
		md5 VARCHAR(32),
		active BOOLEAN NOT NULL DEFAULT FALSE,
		insert_date TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS build_architecture (
		build_id BIGINT NOT NULL REFERENCES build(id) ON DELETE CASCADE,
		architecture_id BIGINT NOT NULL REFERENCES architecture(id),
		PRIMARY KEY (build_id, architecture_id)
	)`,
	`CREATE TABLE IF NOT EXISTS buildmanifest (
		id BIGSERIAL PRIMARY KEY,
		build_id BIGINT UNIQUE NOT NULL REFERENCES build(id) ON DELETE CASCADE,
		dependencies VARCHAR(255),
		conf_dependencies TEXT,
		conflicts VARCHAR(255),
		conf_conflicts TEXT,
		conf_privilege TEXT,
		conf_resource TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS download (
		id BIGSERIAL PRIMARY KEY,
		build_id BIGINT NOT NULL REFERENCES build(id) ON DELETE CASCADE,
		architecture_id BIGINT NOT NULL REFERENCES architecture(id),
		firmware_build INTEGER NOT NULL,
		ip_address VARCHAR(46) NOT NULL,
		user_agent VARCHAR(255),
		date TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS download_date_idx ON download (date)`,
}

// CreateTables issues the schema DDL. Statements are idempotent so
// this is safe to run at every startup with --init-db.
func (s *Store) CreateTables(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Populate seeds the lookup tables with the well-known rows. Existing
// rows are left alone.
func (s *Store) Populate(ctx context.Context) error {
	seeds := []struct {
		query string
		args  [][]interface{}
	}{
		{
			query: `INSERT INTO architecture (code) VALUES ($1) ON CONFLICT (code) DO NOTHING`,
			args:  [][]interface{}{{"noarch"}, {"cedarview"}, {"88f628x"}, {"qoriq"}},
		},
		{
			query: `INSERT INTO firmware (version, build, type) VALUES ($1, $2, $3) ON CONFLICT (build) DO NOTHING`,
			args:  [][]interface{}{{"3.1", 1594, "dsm"}, {"5.0", 4458, "dsm"}},
		},
		{
			query: `INSERT INTO language (code, name) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`,
			args:  [][]interface{}{{"enu", "English"}, {"fre", "French"}},
		},
		{
			query: `INSERT INTO role (name, description) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
			args: [][]interface{}{
				{"admin", "Administrator"},
				{"package_admin", "Package Administrator"},
				{"developer", "Developer"},
			},
		},
		{
			query: `INSERT INTO service (code) VALUES ($1) ON CONFLICT (code) DO NOTHING`,
			args:  [][]interface{}{{"apache-web"}, {"mysql"}},
		},
	}
	for _, seed := range seeds {
		for _, args := range seed.args {
			if _, err := s.pool.Exec(ctx, seed.query, args...); err != nil {
				return err
			}
		}
	}
	return nil
}
