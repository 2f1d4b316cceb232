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
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/SynoCommunity/spkrepo/catalog"
	"github.com/SynoCommunity/spkrepo/dirs"
	"github.com/SynoCommunity/spkrepo/osutil"
	"github.com/SynoCommunity/spkrepo/store"
)

// dsm7Build is the first firmware build that no longer supports the
// beta channel.
const dsm7Build = 40000

// getCatalog answers an appliance catalog query. Parameters arrive as
// query values or a POST form, both are accepted.
func getCatalog(c *Command, r *http.Request, _ *store.User) Response {
	for _, field := range []string{"arch", "build", "language"} {
		if r.FormValue(field) == "" {
			return BadRequest("Missing %s field", field)
		}
	}

	ctx := r.Context()
	language := r.FormValue("language")
	if _, err := c.d.store.LanguageByCode(ctx, language); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Unprocessable("Unknown language")
		}
		return errToResponse(err)
	}

	arch := store.NormalizeArch(r.FormValue("arch"))
	if _, err := c.d.store.ArchitectureByCode(ctx, arch); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Unprocessable("Unknown architecture")
		}
		return errToResponse(err)
	}

	build, err := strconv.Atoi(r.FormValue("build"))
	if err != nil {
		return Unprocessable("Invalid build")
	}

	beta := r.FormValue("package_update_channel") == "beta"
	if build >= dsm7Build {
		beta = false
	}

	var major int
	if v := r.FormValue("major"); v != "" {
		major, err = strconv.Atoi(v)
		if err != nil {
			return Unprocessable("Invalid major")
		}
	} else {
		major, err = c.d.store.LatestDSMMajor(ctx, build)
		if errors.Is(err, store.ErrNotFound) {
			return Unprocessable("Unknown firmware")
		}
		if err != nil {
			return errToResponse(err)
		}
	}

	payload, err := c.d.resolver.Resolve(ctx, catalog.Query{
		Arch:     arch,
		Build:    build,
		Major:    major,
		Language: language,
		Beta:     beta,
	})
	if err != nil {
		return errToResponse(err)
	}
	return SyncResponse(payload)
}

// getDownload records one download and redirects to the static file.
func getDownload(c *Command, r *http.Request, _ *store.User) Response {
	vars := mux.Vars(r)
	archID, err := strconv.ParseInt(vars["architecture_id"], 10, 64)
	if err != nil {
		return NotFound("Not found")
	}
	firmwareBuild, err := strconv.Atoi(vars["firmware_build"])
	if err != nil {
		return NotFound("Not found")
	}
	buildID, err := strconv.ParseInt(vars["build_id"], 10, 64)
	if err != nil {
		return NotFound("Not found")
	}

	ctx := r.Context()
	b, err := c.d.store.BuildByID(ctx, buildID)
	if err != nil {
		return errToResponse(err)
	}
	if !b.Active {
		return Forbidden("Build is not active")
	}

	arch, err := c.d.store.ArchitectureByID(ctx, archID)
	if err != nil {
		return errToResponse(err)
	}
	found := false
	for _, a := range b.Architectures {
		if a.ID == arch.ID {
			found = true
			break
		}
	}
	if !found {
		return BadRequest("Architecture mismatch")
	}
	if firmwareBuild < b.FirmwareMinBuild {
		return BadRequest("Firmware mismatch")
	}
	if b.FirmwareMaxBuild != nil && firmwareBuild > *b.FirmwareMaxBuild {
		return BadRequest("Firmware mismatch")
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	d := &store.Download{
		BuildID:        b.ID,
		ArchitectureID: arch.ID,
		FirmwareBuild:  firmwareBuild,
		IPAddress:      host,
	}
	if ua := r.UserAgent(); ua != "" {
		d.UserAgent = &ua
	}
	if err := c.d.store.RecordDownload(ctx, d); err != nil {
		return errToResponse(err)
	}
	downloadsTotal.Inc()

	u := url.URL{Path: "/nas/" + b.Path}
	return redirectResponse(u.EscapedPath())
}

// getData streams a file from the data directory.
func getData(c *Command, r *http.Request, _ *store.User) Response {
	name, err := dirs.DataFile(mux.Vars(r)["path"])
	if err != nil {
		return NotFound("Not found")
	}
	if !osutil.FileExists(name) || osutil.IsDirectory(name) {
		return NotFound("Not found")
	}
	return fileResponse(name)
}
