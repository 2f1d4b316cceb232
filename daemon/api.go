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

var api = []*Command{
	packagesCmd,
	packageCmd,
	versionCmd,
	buildCmd,
	buildActionCmd,
	downloadCmd,
	catalogCmd,
	dataCmd,
}

var (
	packagesCmd = &Command{
		Path: "/api/packages",
		POST: postPackage,
		Role: "developer",
	}

	packageCmd = &Command{
		Path:   "/api/packages/{package_id:[0-9]+}",
		DELETE: deletePackage,
		Role:   "package_admin",
	}

	versionCmd = &Command{
		Path:   "/api/versions/{version_id:[0-9]+}",
		DELETE: deleteVersion,
		Role:   "package_admin",
	}

	buildCmd = &Command{
		Path:   "/api/builds/{build_id:[0-9]+}",
		DELETE: deleteBuild,
		Role:   "package_admin",
	}

	buildActionCmd = &Command{
		Path: "/api/builds/{build_id:[0-9]+}/{action}",
		POST: postBuildAction,
		Role: "package_admin",
	}

	catalogCmd = &Command{
		Path:    "/nas/",
		GET:     getCatalog,
		POST:    getCatalog,
		GuestOK: true,
	}

	downloadCmd = &Command{
		Path:    "/nas/download/{architecture_id:[0-9]+}/{firmware_build:[0-9]+}/{build_id:[0-9]+}",
		GET:     getDownload,
		GuestOK: true,
	}

	dataCmd = &Command{
		Path:    "/nas/{path:.+}",
		GET:     getData,
		GuestOK: true,
	}
)
