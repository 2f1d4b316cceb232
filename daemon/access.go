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

package daemon

import (
	"errors"
	"net/http"

	"github.com/SynoCommunity/spkrepo/store"
)

// authenticate resolves the request's Basic credentials to a user. The
// api key is carried as the username, the password is ignored. A nil
// Response means access is granted.
func (c *Command) authenticate(r *http.Request) (*store.User, Response) {
	apiKey, _, ok := r.BasicAuth()
	if !ok || apiKey == "" {
		return nil, Unauthorized("Unauthorized")
	}
	user, err := c.d.store.UserByAPIKey(r.Context(), apiKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, Unauthorized("Unauthorized")
	}
	if err != nil {
		return nil, errToResponse(err)
	}
	if c.Role != "" && !user.HasRole(c.Role) {
		return nil, Unauthorized("Unauthorized")
	}
	return user, nil
}
