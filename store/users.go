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

// UserByAPIKey resolves an active user from its api key, with roles
// loaded. Used by the upload authentication path.
func (s *Store) UserByAPIKey(ctx context.Context, apiKey string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, api_key, active FROM "user" WHERE api_key = $1 AND active`,
		apiKey).Scan(&u.ID, &u.Username, &u.Email, &u.APIKey, &u.Active)
	if err != nil {
		return nil, notFoundOr(err)
	}
	roles, err := userRoles(ctx, s.pool, u.ID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return &u, nil
}

func userRoles(ctx context.Context, q querier, userID int64) ([]string, error) {
	rows, err := q.Query(ctx,
		`SELECT r.name FROM role r JOIN user_role ur ON ur.role_id = r.id WHERE ur.user_id = $1 ORDER BY r.name`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

// CreateUser inserts a user with the given roles. Mostly used by the
// bootstrap CLI and tests.
func (s *Store) CreateUser(ctx context.Context, username, email, apiKey string, roles ...string) (*User, error) {
	u := &User{Username: username, Email: email, Active: true, Roles: roles}
	if apiKey != "" {
		u.APIKey = &apiKey
	}
	err := s.WithTx(ctx, func(tx *Tx) error {
		err := tx.tx.QueryRow(ctx,
			`INSERT INTO "user" (username, email, api_key, active) VALUES ($1, $2, $3, TRUE) RETURNING id`,
			username, email, u.APIKey).Scan(&u.ID)
		if err != nil {
			return err
		}
		for _, role := range roles {
			if _, err := tx.tx.Exec(ctx,
				`INSERT INTO user_role (user_id, role_id) SELECT $1, id FROM role WHERE name = $2`,
				u.ID, role); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}
