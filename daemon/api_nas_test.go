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

package daemon_test

import (
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	. "gopkg.in/check.v1"

	"github.com/SynoCommunity/spkrepo/dirs"
	"github.com/SynoCommunity/spkrepo/store"
)

func (s *daemonSuite) catalog(values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/nas/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func catalogForm(arch, build, language string) url.Values {
	return url.Values{
		"arch":     {arch},
		"build":    {build},
		"language": {language},
	}
}

func (s *daemonSuite) TestCatalogOK(c *C) {
	rec := s.catalog(catalogForm("88f628x", "1594", "enu"))
	c.Assert(rec.Code, Equals, 200)
	c.Check(rec.Header().Get("Content-Type"), Equals, "application/json")

	c.Assert(s.resolver.queries, HasLen, 1)
	q := s.resolver.queries[0]
	c.Check(q.Arch, Equals, "88f628x")
	c.Check(q.Build, Equals, 1594)
	c.Check(q.Major, Equals, 5)
	c.Check(q.Language, Equals, "enu")
	c.Check(q.Beta, Equals, false)
}

func (s *daemonSuite) TestCatalogGetQueryValues(c *C) {
	req := httptest.NewRequest("GET", "/nas/?arch=noarch&build=1594&language=enu", nil)
	rec := s.do(req)
	c.Check(rec.Code, Equals, 200)
	c.Check(s.resolver.queries, HasLen, 1)
}

func (s *daemonSuite) TestCatalogMissingFields(c *C) {
	for _, missing := range []string{"arch", "build", "language"} {
		values := catalogForm("noarch", "1594", "enu")
		values.Del(missing)
		rec := s.catalog(values)
		c.Check(rec.Code, Equals, 400, Commentf("field %q", missing))
		c.Check(s.message(c, rec), Equals, "Missing "+missing+" field")
	}
	c.Check(s.resolver.queries, HasLen, 0)
}

func (s *daemonSuite) TestCatalogUnknownLanguage(c *C) {
	rec := s.catalog(catalogForm("noarch", "1594", "xyz"))
	c.Check(rec.Code, Equals, 422)
	c.Check(s.message(c, rec), Equals, "Unknown language")
}

func (s *daemonSuite) TestCatalogUnknownArchitecture(c *C) {
	rec := s.catalog(catalogForm("sparc", "1594", "enu"))
	c.Check(rec.Code, Equals, 422)
	c.Check(s.message(c, rec), Equals, "Unknown architecture")
}

func (s *daemonSuite) TestCatalogSynoArchNormalized(c *C) {
	rec := s.catalog(catalogForm("88f6281", "1594", "enu"))
	c.Assert(rec.Code, Equals, 200)
	c.Assert(s.resolver.queries, HasLen, 1)
	c.Check(s.resolver.queries[0].Arch, Equals, "88f628x")
}

func (s *daemonSuite) TestCatalogInvalidBuild(c *C) {
	rec := s.catalog(catalogForm("noarch", "not-a-number", "enu"))
	c.Check(rec.Code, Equals, 422)
	c.Check(s.message(c, rec), Equals, "Invalid build")
}

func (s *daemonSuite) TestCatalogBetaChannel(c *C) {
	values := catalogForm("noarch", "1594", "enu")
	values.Set("package_update_channel", "beta")
	rec := s.catalog(values)
	c.Assert(rec.Code, Equals, 200)
	c.Check(s.resolver.queries[0].Beta, Equals, true)
}

func (s *daemonSuite) TestCatalogBetaForcedOffOnDSM7(c *C) {
	values := catalogForm("noarch", "40000", "enu")
	values.Set("package_update_channel", "beta")
	rec := s.catalog(values)
	c.Assert(rec.Code, Equals, 200)
	c.Check(s.resolver.queries[0].Beta, Equals, false)
}

func (s *daemonSuite) TestCatalogExplicitMajor(c *C) {
	values := catalogForm("noarch", "1594", "enu")
	values.Set("major", "3")
	rec := s.catalog(values)
	c.Assert(rec.Code, Equals, 200)
	c.Check(s.resolver.queries[0].Major, Equals, 3)
}

func (s *daemonSuite) TestCatalogUnknownFirmware(c *C) {
	s.st.dsmMajorErr = store.ErrNotFound
	rec := s.catalog(catalogForm("noarch", "123", "enu"))
	c.Check(rec.Code, Equals, 422)
	c.Check(s.message(c, rec), Equals, "Unknown firmware")
}

func intPtr(v int) *int {
	return &v
}

func (s *daemonSuite) seedBuild() *store.Build {
	b := &store.Build{
		ID:            7,
		VersionID:     2,
		FirmwareMinID: 1,
		Path:          "nzbget/11/nzbget.v11.f1594[88f628x].spk",
		Active:        true,

		Architectures:    []store.Architecture{{ID: 2, Code: "88f628x"}},
		FirmwareMinBuild: 1594,
	}
	s.st.builds[b.ID] = b
	return b
}

func (s *daemonSuite) TestDownloadOK(c *C) {
	s.seedBuild()
	req := httptest.NewRequest("GET", "/nas/download/2/4458/7", nil)
	req.Header.Set("User-Agent", "synology_dsm")
	req.RemoteAddr = "192.0.2.10:39654"
	rec := s.do(req)

	c.Assert(rec.Code, Equals, 302)
	c.Check(rec.Header().Get("Location"), Equals, "/nas/nzbget/11/nzbget.v11.f1594%5B88f628x%5D.spk")

	c.Assert(s.st.downloads, HasLen, 1)
	d := s.st.downloads[0]
	c.Check(d.BuildID, Equals, int64(7))
	c.Check(d.ArchitectureID, Equals, int64(2))
	c.Check(d.FirmwareBuild, Equals, 4458)
	c.Check(d.IPAddress, Equals, "192.0.2.10")
	c.Assert(d.UserAgent, NotNil)
	c.Check(*d.UserAgent, Equals, "synology_dsm")
}

func (s *daemonSuite) TestDownloadUnknownBuild(c *C) {
	rec := s.do(httptest.NewRequest("GET", "/nas/download/2/4458/999", nil))
	c.Check(rec.Code, Equals, 404)
	c.Check(s.st.downloads, HasLen, 0)
}

func (s *daemonSuite) TestDownloadInactiveBuild(c *C) {
	s.seedBuild().Active = false
	rec := s.do(httptest.NewRequest("GET", "/nas/download/2/4458/7", nil))
	c.Check(rec.Code, Equals, 403)
	c.Check(s.message(c, rec), Equals, "Build is not active")
}

func (s *daemonSuite) TestDownloadArchitectureMismatch(c *C) {
	s.seedBuild()
	// noarch is not in the build's architecture set
	rec := s.do(httptest.NewRequest("GET", "/nas/download/1/4458/7", nil))
	c.Check(rec.Code, Equals, 400)
	c.Check(s.message(c, rec), Equals, "Architecture mismatch")
}

func (s *daemonSuite) TestDownloadFirmwareTooOld(c *C) {
	s.seedBuild()
	rec := s.do(httptest.NewRequest("GET", "/nas/download/2/1000/7", nil))
	c.Check(rec.Code, Equals, 400)
	c.Check(s.message(c, rec), Equals, "Firmware mismatch")
}

func (s *daemonSuite) TestDownloadFirmwareAboveMax(c *C) {
	s.seedBuild().FirmwareMaxBuild = intPtr(4000)
	rec := s.do(httptest.NewRequest("GET", "/nas/download/2/4458/7", nil))
	c.Check(rec.Code, Equals, 400)
	c.Check(s.message(c, rec), Equals, "Firmware mismatch")
}

func (s *daemonSuite) TestDataServesFile(c *C) {
	name := filepath.Join(dirs.VersionDir("nzbget", 11), "icon_72.png")
	c.Assert(os.MkdirAll(filepath.Dir(name), 0755), IsNil)
	c.Assert(os.WriteFile(name, []byte("icon bytes"), 0644), IsNil)

	rec := s.do(httptest.NewRequest("GET", "/nas/nzbget/11/icon_72.png", nil))
	c.Assert(rec.Code, Equals, 200)
	c.Check(rec.Body.String(), Equals, "icon bytes")
}

func (s *daemonSuite) TestDataMissingFile(c *C) {
	rec := s.do(httptest.NewRequest("GET", "/nas/nzbget/11/missing.spk", nil))
	c.Check(rec.Code, Equals, 404)
}

func (s *daemonSuite) TestDataDirectoryHidden(c *C) {
	c.Assert(os.MkdirAll(dirs.PackageDir("nzbget"), 0755), IsNil)
	rec := s.do(httptest.NewRequest("GET", "/nas/nzbget", nil))
	c.Check(rec.Code, Equals, 404)
}

func (s *daemonSuite) TestDataTraversalRejected(c *C) {
	secret := filepath.Join(filepath.Dir(dirs.DataDir), "secret")
	c.Assert(os.WriteFile(secret, []byte("secret bytes"), 0644), IsNil)

	// the router cleans dot segments before routing, the file never leaks
	req := httptest.NewRequest("GET", "/nas/"+url.PathEscape("../secret"), nil)
	rec := s.do(req)
	c.Check(rec.Code, Not(Equals), 200)
	c.Check(strings.Contains(rec.Body.String(), "secret bytes"), Equals, false)
}
