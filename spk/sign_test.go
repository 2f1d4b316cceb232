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

package spk_test

import (
	"bytes"

	. "gopkg.in/check.v1"

	"github.com/SynoCommunity/spkrepo/spk"
	"github.com/SynoCommunity/spkrepo/spk/spktest"
)

type signSuite struct{}

var _ = Suite(&signSuite{})

const armoredSig = "-----BEGIN PGP SIGNATURE-----\nfake\n-----END PGP SIGNATURE-----"

func (s *signSuite) TestCanonicalBytesOrder(c *C) {
	data := spktest.New(spktest.ValidInfo("p", "1.0-1", "noarch", "3.1-1594")).
		WithLicense([]byte("LIC")).
		WithIcon("120", []byte("ICON120")).
		WithWizard("install").
		WithInfoLine(`support_conf_folder="yes"`).
		WithConfFile("privilege", []byte(`{"a":1}`)).
		WithScripts().
		WithPackage([]byte("PAYLOAD")).Build()

	p, err := spk.Parse(data)
	c.Assert(err, IsNil)

	canonical := p.CanonicalBytes()

	// INFO first, then LICENSE, icons, wizards, conf, payload, scripts.
	info := bytes.Index(canonical, []byte(`package="p"`))
	lic := bytes.Index(canonical, []byte("LIC"))
	icon := bytes.Index(canonical, []byte("ICON120"))
	wizard := bytes.Index(canonical, []byte("install"))
	conf := bytes.Index(canonical, []byte(`{"a":1}`))
	payload := bytes.Index(canonical, []byte("PAYLOAD"))
	script := bytes.Index(canonical, []byte("start-stop-status"))

	c.Assert(info, Not(Equals), -1)
	c.Assert(lic, Not(Equals), -1)
	c.Assert(icon, Not(Equals), -1)
	c.Assert(wizard, Not(Equals), -1)
	c.Assert(conf, Not(Equals), -1)
	c.Assert(payload, Not(Equals), -1)
	c.Assert(script, Not(Equals), -1)
	c.Check(info < lic, Equals, true)
	c.Check(lic < icon, Equals, true)
	c.Check(icon < wizard, Equals, true)
	c.Check(wizard < conf, Equals, true)
	c.Check(conf < payload, Equals, true)
	c.Check(payload < script, Equals, true)
}

func (s *signSuite) TestCanonicalBytesStable(c *C) {
	data := spktest.New(spktest.ValidInfo("p", "1.0-1", "noarch", "3.1-1594")).Build()
	p, err := spk.Parse(data)
	c.Assert(err, IsNil)
	c.Check(p.CanonicalBytes(), DeepEquals, p.CanonicalBytes())
}

func (s *signSuite) TestSignRoundTrip(c *C) {
	data := spktest.New(spktest.ValidInfo("p", "1.0-1", "noarch", "3.1-1594")).Build()
	p, err := spk.Parse(data)
	c.Assert(err, IsNil)

	signed, err := p.WithSignature(armoredSig)
	c.Assert(err, IsNil)

	p2, err := spk.Parse(signed)
	c.Assert(err, IsNil)
	c.Assert(p2.Signature, NotNil)
	c.Check(*p2.Signature, Equals, armoredSig)
	c.Check(p2.Info, DeepEquals, p.Info)

	unsigned, err := p2.WithoutSignature()
	c.Assert(err, IsNil)
	p3, err := spk.Parse(unsigned)
	c.Assert(err, IsNil)
	c.Check(p3.Signature, IsNil)
	c.Check(p3.Info, DeepEquals, p.Info)
	c.Check(p3.CanonicalBytes(), DeepEquals, p.CanonicalBytes())
}

func (s *signSuite) TestSignAlreadySigned(c *C) {
	data := spktest.New(spktest.ValidInfo("p", "1.0-1", "noarch", "3.1-1594")).
		WithSignature([]byte(armoredSig)).Build()
	p, err := spk.Parse(data)
	c.Assert(err, IsNil)

	_, err = p.WithSignature(armoredSig)
	c.Assert(err, Equals, spk.ErrAlreadySigned)
}

func (s *signSuite) TestUnsignNotSigned(c *C) {
	data := spktest.New(spktest.ValidInfo("p", "1.0-1", "noarch", "3.1-1594")).Build()
	p, err := spk.Parse(data)
	c.Assert(err, IsNil)

	_, err = p.WithoutSignature()
	c.Assert(err, Equals, spk.ErrNotSigned)
}

func (s *signSuite) TestSignatureNotInCanonicalBytes(c *C) {
	base := spktest.New(spktest.ValidInfo("p", "1.0-1", "noarch", "3.1-1594")).Build()
	p, err := spk.Parse(base)
	c.Assert(err, IsNil)
	signed, err := p.WithSignature(armoredSig)
	c.Assert(err, IsNil)
	p2, err := spk.Parse(signed)
	c.Assert(err, IsNil)

	c.Check(p2.CanonicalBytes(), DeepEquals, p.CanonicalBytes())
}
