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

package repo

import (
	"context"
	"os"

	. "gopkg.in/check.v1"

	"github.com/SynoCommunity/spkrepo/dirs"
	"github.com/SynoCommunity/spkrepo/osutil"
	"github.com/SynoCommunity/spkrepo/spk"
	"github.com/SynoCommunity/spkrepo/spk/spktest"
	"github.com/SynoCommunity/spkrepo/store"
)

type actionsSuite struct {
	tx     *fakeTx
	signer *fakeSigner
	mgr    *Manager
	admin  *store.User
}

var _ = Suite(&actionsSuite{})

func (s *actionsSuite) SetUpTest(c *C) {
	dirs.SetDataDir(c.MkDir())
	s.tx = newFakeTx()
	s.signer = &fakeSigner{active: true}
	s.mgr = newManager(fakeStore{tx: s.tx}, s.signer)
	s.admin = &store.User{ID: 1, Username: "admin", Roles: []string{"developer", "package_admin", "admin"}}
}

func (s *actionsSuite) TearDownTest(c *C) {
	dirs.SetDataDir("")
}

// upload seeds one build through the regular path and returns it.
func (s *actionsSuite) upload(c *C, data []byte) *store.Build {
	_, err := s.mgr.UploadSPK(context.Background(), s.admin, data)
	c.Assert(err, IsNil)
	var latest *store.Build
	for _, b := range s.tx.builds {
		if latest == nil || b.ID > latest.ID {
			latest = b
		}
	}
	c.Assert(latest, NotNil)
	return latest
}

func (s *actionsSuite) artifact(c *C, b *store.Build) []byte {
	name, err := dirs.DataFile(b.Path)
	c.Assert(err, IsNil)
	data, err := os.ReadFile(name)
	c.Assert(err, IsNil)
	return data
}

func (s *actionsSuite) TestActivateBuild(c *C) {
	s.signer.active = false
	b := s.upload(c, spktest.New(spktest.ValidInfo("nzbget", "13.0-11", "noarch", "3.1-1594")).Build())
	c.Check(b.Active, Equals, false)

	c.Assert(s.mgr.ActivateBuild(context.Background(), b.ID, true), IsNil)
	c.Check(s.tx.builds[b.ID].Active, Equals, true)

	c.Assert(s.mgr.ActivateBuild(context.Background(), b.ID, false), IsNil)
	c.Check(s.tx.builds[b.ID].Active, Equals, false)
}

func (s *actionsSuite) TestActivateBuildNotFound(c *C) {
	err := s.mgr.ActivateBuild(context.Background(), 999, true)
	c.Assert(err, Equals, store.ErrNotFound)
}

func (s *actionsSuite) TestSignBuild(c *C) {
	s.signer.active = false
	b := s.upload(c, spktest.New(spktest.ValidInfo("nzbget", "13.0-11", "noarch", "3.1-1594")).Build())
	before := *s.tx.builds[b.ID].MD5

	s.signer.active = true
	c.Assert(s.mgr.SignBuild(context.Background(), b.ID), IsNil)
	c.Check(s.signer.calls, Equals, 1)

	p, err := spk.Parse(s.artifact(c, b))
	c.Assert(err, IsNil)
	c.Assert(p.Signature, NotNil)

	after := s.tx.builds[b.ID].MD5
	c.Assert(after, NotNil)
	c.Check(*after, Not(Equals), before)
	c.Check(*after, Equals, osutil.MD5Sum(s.artifact(c, b)))
}

func (s *actionsSuite) TestSignBuildAlreadySigned(c *C) {
	b := s.upload(c, spktest.New(spktest.ValidInfo("nzbget", "13.0-11", "noarch", "3.1-1594")).Build())

	err := s.mgr.SignBuild(context.Background(), b.ID)
	c.Assert(err, Equals, spk.ErrAlreadySigned)
}

func (s *actionsSuite) TestSignBuildSigningDisabled(c *C) {
	s.signer.active = false
	b := s.upload(c, spktest.New(spktest.ValidInfo("nzbget", "13.0-11", "noarch", "3.1-1594")).Build())

	err := s.mgr.SignBuild(context.Background(), b.ID)
	c.Assert(err, ErrorMatches, "Signing is not configured")
}

func (s *actionsSuite) TestSignBuildMissingArtifact(c *C) {
	s.signer.active = false
	b := s.upload(c, spktest.New(spktest.ValidInfo("nzbget", "13.0-11", "noarch", "3.1-1594")).Build())
	name, err := dirs.DataFile(b.Path)
	c.Assert(err, IsNil)
	c.Assert(os.Remove(name), IsNil)

	s.signer.active = true
	err = s.mgr.SignBuild(context.Background(), b.ID)
	c.Assert(err, Equals, store.ErrNotFound)
}

func (s *actionsSuite) TestUnsignBuild(c *C) {
	b := s.upload(c, spktest.New(spktest.ValidInfo("nzbget", "13.0-11", "noarch", "3.1-1594")).Build())

	c.Assert(s.mgr.UnsignBuild(context.Background(), b.ID), IsNil)

	p, err := spk.Parse(s.artifact(c, b))
	c.Assert(err, IsNil)
	c.Check(p.Signature, IsNil)
	c.Check(*s.tx.builds[b.ID].MD5, Equals, osutil.MD5Sum(s.artifact(c, b)))
}

func (s *actionsSuite) TestUnsignBuildNotSigned(c *C) {
	s.signer.active = false
	b := s.upload(c, spktest.New(spktest.ValidInfo("nzbget", "13.0-11", "noarch", "3.1-1594")).Build())

	err := s.mgr.UnsignBuild(context.Background(), b.ID)
	c.Assert(err, Equals, spk.ErrNotSigned)
}

func (s *actionsSuite) TestResyncBuildMetadata(c *C) {
	s.signer.active = false
	b := s.upload(c, spktest.New(spktest.ValidInfo("nzbget", "13.0-11", "noarch", "3.1-1594")).Build())
	ver := s.tx.builds[b.ID].VersionID

	// rewrite the stored artifact with changed metadata
	info := spktest.ValidInfo("nzbget", "13.0-11", "cedarview qoriq", "5.0-4458")
	info["displayname"] = "NZBGet"
	info["displayname_fre"] = "NZBGet FR"
	info["description_fre"] = "desc fr"
	info["changelog"] = "fixed things"
	info["install_dep_services"] = "apache-web"
	info["install_dep_packages"] = "php"
	modified := spktest.New(info).WithChecksum().Build()
	name, err := dirs.DataFile(b.Path)
	c.Assert(err, IsNil)
	c.Assert(os.WriteFile(name, modified, 0644), IsNil)

	c.Assert(s.mgr.ResyncBuild(context.Background(), b.ID), IsNil)

	v := s.tx.versions[ver]
	c.Assert(v.Changelog, NotNil)
	c.Check(*v.Changelog, Equals, "fixed things")

	enu := s.tx.languages["enu"]
	fre := s.tx.languages["fre"]
	c.Check(s.tx.displaynames[ver][enu.ID], Equals, "NZBGet")
	c.Check(s.tx.displaynames[ver][fre.ID], Equals, "NZBGet FR")
	c.Check(s.tx.descriptions[ver][fre.ID], Equals, "desc fr")
	c.Check(s.tx.serviceDeps[ver], HasLen, 1)

	// firmware range and architectures track the artifact
	refreshed, err := s.tx.BuildByID(context.Background(), b.ID)
	c.Assert(err, IsNil)
	c.Check(refreshed.FirmwareMinBuild, Equals, 4458)
	codes := make([]string, 0, 2)
	for _, a := range refreshed.Architectures {
		codes = append(codes, a.Code)
	}
	c.Check(codes, HasLen, 2)

	c.Assert(refreshed.Checksum, NotNil)
	c.Check(*refreshed.MD5, Equals, osutil.MD5Sum(modified))

	m := s.tx.manifests[b.ID]
	c.Assert(m.Dependencies, NotNil)
	c.Check(*m.Dependencies, Equals, "php")
}

func (s *actionsSuite) TestResyncBuildIcons(c *C) {
	s.signer.active = false
	data := spktest.New(spktest.ValidInfo("nzbget", "13.0-11", "noarch", "3.1-1594")).
		WithIcon("120", spktest.IconPNG(120)).Build()
	b := s.upload(c, data)
	ver := s.tx.builds[b.ID].VersionID
	c.Assert(s.tx.icons[ver], HasLen, 2)

	// the new artifact drops the 120px icon and changes the 72px one
	modified := spktest.New(spktest.ValidInfo("nzbget", "13.0-11", "noarch", "3.1-1594")).
		WithIcon("72", []byte("fresh 72px icon")).Build()
	name, err := dirs.DataFile(b.Path)
	c.Assert(err, IsNil)
	c.Assert(os.WriteFile(name, modified, 0644), IsNil)

	c.Assert(s.mgr.ResyncBuild(context.Background(), b.ID), IsNil)

	c.Assert(s.tx.icons[ver], HasLen, 1)
	icon72, err := dirs.DataFile(s.tx.icons[ver]["72"])
	c.Assert(err, IsNil)
	content, err := os.ReadFile(icon72)
	c.Assert(err, IsNil)
	c.Check(string(content), Equals, "fresh 72px icon")

	icon120, err := dirs.DataFile("nzbget/11/icon_120.png")
	c.Assert(err, IsNil)
	c.Check(osutil.FileExists(icon120), Equals, false)
}

func (s *actionsSuite) TestResyncBuildKeepsPath(c *C) {
	s.signer.active = false
	b := s.upload(c, spktest.New(spktest.ValidInfo("nzbget", "13.0-11", "noarch", "3.1-1594")).Build())
	path := b.Path

	modified := spktest.New(spktest.ValidInfo("nzbget", "13.0-11", "cedarview", "5.0-4458")).Build()
	name, err := dirs.DataFile(path)
	c.Assert(err, IsNil)
	c.Assert(os.WriteFile(name, modified, 0644), IsNil)

	c.Assert(s.mgr.ResyncBuild(context.Background(), b.ID), IsNil)
	c.Check(s.tx.builds[b.ID].Path, Equals, path)
	c.Check(osutil.FileExists(name), Equals, true)
}
