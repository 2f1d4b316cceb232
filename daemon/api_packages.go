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
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/SynoCommunity/spkrepo/store"
)

// postPackage ingests one SPK upload. The created build is inactive
// until a package admin activates it.
func postPackage(c *Command, r *http.Request, user *store.User) Response {
	body, err := io.ReadAll(io.LimitReader(r.Body, c.d.maxUploadBytes+1))
	if err != nil {
		return BadRequest("Cannot read request body")
	}
	if int64(len(body)) > c.d.maxUploadBytes {
		return errorResponse(http.StatusRequestEntityTooLarge, "Upload too large")
	}
	if len(body) == 0 {
		return BadRequest("No data to process")
	}

	// with the body fully read, a client disconnect must not abort the
	// sign/commit/write sequence mid-flight
	ctx := context.WithoutCancel(r.Context())
	result, err := c.d.mgr.UploadSPK(ctx, user, body)
	if err != nil {
		return errToResponse(err)
	}
	uploadsTotal.Inc()
	return CreatedResponse(result)
}

type buildActionResult struct {
	Build  int64  `json:"build"`
	Action string `json:"action"`
}

// postBuildAction runs one of the build lifecycle actions. Re-sync
// rewrites entity metadata wholesale and is restricted to admins.
func postBuildAction(c *Command, r *http.Request, user *store.User) Response {
	vars := mux.Vars(r)
	buildID, err := strconv.ParseInt(vars["build_id"], 10, 64)
	if err != nil {
		return NotFound("Not found")
	}

	action := vars["action"]
	switch action {
	case "activate":
		err = c.d.mgr.ActivateBuild(r.Context(), buildID, true)
	case "deactivate":
		err = c.d.mgr.ActivateBuild(r.Context(), buildID, false)
	case "sign":
		err = c.d.mgr.SignBuild(r.Context(), buildID)
	case "unsign":
		err = c.d.mgr.UnsignBuild(r.Context(), buildID)
	case "resync":
		// the command grants package_admin; re-sync alone also needs
		// the admin role, a missing one is 403 rather than 401
		if !user.HasRole("admin") {
			return Forbidden("Insufficient permissions")
		}
		err = c.d.mgr.ResyncBuild(r.Context(), buildID)
	default:
		return NotFound("Unknown action %q", action)
	}
	if err != nil {
		return errToResponse(err)
	}
	return SyncResponse(&buildActionResult{Build: buildID, Action: action})
}

type deleteResult struct {
	Deleted string `json:"deleted"`
	ID      int64  `json:"id"`
}

// deletePackage removes a whole package tree, rows and files. Like
// re-sync this needs the admin role on top of package_admin.
func deletePackage(c *Command, r *http.Request, user *store.User) Response {
	id, err := strconv.ParseInt(mux.Vars(r)["package_id"], 10, 64)
	if err != nil {
		return NotFound("Not found")
	}
	if !user.HasRole("admin") {
		return Forbidden("Insufficient permissions")
	}
	if err := c.d.mgr.DeletePackage(r.Context(), id); err != nil {
		return errToResponse(err)
	}
	return SyncResponse(&deleteResult{Deleted: "package", ID: id})
}

// deleteVersion removes one version with its builds and metadata.
func deleteVersion(c *Command, r *http.Request, _ *store.User) Response {
	id, err := strconv.ParseInt(mux.Vars(r)["version_id"], 10, 64)
	if err != nil {
		return NotFound("Not found")
	}
	if err := c.d.mgr.DeleteVersion(r.Context(), id); err != nil {
		return errToResponse(err)
	}
	return SyncResponse(&deleteResult{Deleted: "version", ID: id})
}

// deleteBuild removes one build and unlinks its SPK file.
func deleteBuild(c *Command, r *http.Request, _ *store.User) Response {
	id, err := strconv.ParseInt(mux.Vars(r)["build_id"], 10, 64)
	if err != nil {
		return NotFound("Not found")
	}
	if err := c.d.mgr.DeleteBuild(r.Context(), id); err != nil {
		return errToResponse(err)
	}
	return SyncResponse(&deleteResult{Deleted: "build", ID: id})
}
