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

// Package spktest assembles SPK archives for use in tests.
package spktest

import (
	"archive/tar"
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// Builder accumulates SPK members and produces the archive bytes.
// The zero value is not useful, start from New.
type Builder struct {
	infoLines []string
	infoRaw   []byte
	noInfo    bool

	packageTGZ   []byte
	noPackage    bool
	withChecksum bool

	icons     map[string][]byte
	infoIcons map[string][]byte
	license   []byte
	signature []byte
	wizards   []string
	scripts   bool

	confFiles map[string][]byte
}

// New starts a builder from the given INFO key/value pairs. Keys are
// written one KEY="VALUE" per line in sorted order.
func New(info map[string]string) *Builder {
	b := &Builder{
		packageTGZ: []byte("payload-tarball"),
		icons:      map[string][]byte{"72": IconPNG(72)},
		confFiles:  map[string][]byte{},
		infoIcons:  map[string][]byte{},
	}
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.infoLines = append(b.infoLines, fmt.Sprintf("%s=%q", k, info[k]))
	}
	return b
}

// ValidInfo returns the minimal INFO for an acceptable upload.
func ValidInfo(name, version, arch, firmware string) map[string]string {
	return map[string]string{
		"package":     name,
		"version":     version,
		"arch":        arch,
		"firmware":    firmware,
		"displayname": name,
		"description": "Description of " + name,
	}
}

// IconPNG returns deterministic fake icon bytes for the given size.
func IconPNG(size int) []byte {
	return []byte(fmt.Sprintf("\x89PNG fake icon %dpx", size))
}

// WithInfoLine appends a raw line to the INFO member.
func (b *Builder) WithInfoLine(line string) *Builder {
	b.infoLines = append(b.infoLines, line)
	return b
}

// WithRawInfo replaces the INFO member content entirely.
func (b *Builder) WithRawInfo(raw []byte) *Builder {
	b.infoRaw = raw
	return b
}

// WithoutInfo drops the INFO member.
func (b *Builder) WithoutInfo() *Builder {
	b.noInfo = true
	return b
}

// WithoutPackage drops the package.tgz member.
func (b *Builder) WithoutPackage() *Builder {
	b.noPackage = true
	return b
}

// WithPackage replaces the payload bytes.
func (b *Builder) WithPackage(data []byte) *Builder {
	b.packageTGZ = data
	return b
}

// WithChecksum adds a correct checksum INFO key for the payload.
func (b *Builder) WithChecksum() *Builder {
	b.withChecksum = true
	return b
}

// WithIcon adds a PACKAGE_ICON*.PNG member ("72", "120" or "256").
func (b *Builder) WithIcon(size string, data []byte) *Builder {
	b.icons[size] = data
	return b
}

// WithoutIcons drops all icon file members.
func (b *Builder) WithoutIcons() *Builder {
	b.icons = map[string][]byte{}
	return b
}

// WithInfoIcon embeds a base64 icon in INFO instead of a file member.
func (b *Builder) WithInfoIcon(size string, data []byte) *Builder {
	b.infoIcons[size] = data
	return b
}

// WithLicense adds a LICENSE member.
func (b *Builder) WithLicense(text []byte) *Builder {
	b.license = text
	return b
}

// WithSignature adds a syno_signature.asc member.
func (b *Builder) WithSignature(sig []byte) *Builder {
	b.signature = sig
	return b
}

// WithWizard adds a WIZARD_UIFILES/<kind>_uifile member.
func (b *Builder) WithWizard(kind string) *Builder {
	b.wizards = append(b.wizards, kind)
	return b
}

// WithScripts adds the scripts/ folder with the usual install hooks.
func (b *Builder) WithScripts() *Builder {
	b.scripts = true
	return b
}

// WithConfFile adds a member under conf/ ("PKG_DEPS", "PKG_CONX",
// "privilege", "resource" are the recognized names).
func (b *Builder) WithConfFile(name string, data []byte) *Builder {
	b.confFiles[name] = data
	return b
}

// Build produces the SPK archive bytes.
func (b *Builder) Build() []byte {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	addFile := func(name string, data []byte) {
		hdr := &tar.Header{
			Name:    name,
			Mode:    0644,
			Size:    int64(len(data)),
			ModTime: time.Unix(1000000000, 0),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			panic(err)
		}
		if _, err := tw.Write(data); err != nil {
			panic(err)
		}
	}
	addDir := func(name string) {
		hdr := &tar.Header{
			Name:     name,
			Mode:     0755,
			Typeflag: tar.TypeDir,
			ModTime:  time.Unix(1000000000, 0),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			panic(err)
		}
	}

	if b.license != nil {
		addFile("LICENSE", b.license)
	}
	if b.signature != nil {
		addFile("syno_signature.asc", b.signature)
	}

	if len(b.confFiles) > 0 {
		addDir("conf")
		names := make([]string, 0, len(b.confFiles))
		for name := range b.confFiles {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			addFile("conf/"+name, b.confFiles[name])
		}
	}

	if len(b.wizards) > 0 {
		addDir("WIZARD_UIFILES")
		for _, kind := range b.wizards {
			addFile("WIZARD_UIFILES/"+kind+"_uifile", []byte(kind))
		}
	}

	if b.scripts {
		addDir("scripts")
		for _, script := range []string{"preinst", "postinst", "preuninst", "postuninst", "start-stop-status"} {
			addFile("scripts/"+script, []byte(script))
		}
	}

	if !b.noPackage {
		addFile("package.tgz", b.packageTGZ)
	}

	sizes := make([]string, 0, len(b.icons))
	for size := range b.icons {
		sizes = append(sizes, size)
	}
	sort.Strings(sizes)
	for _, size := range sizes {
		suffix := ""
		if size != "72" {
			suffix = "_" + size
		}
		addFile("PACKAGE_ICON"+suffix+".PNG", b.icons[size])
	}

	if !b.noInfo {
		content := b.infoRaw
		if content == nil {
			lines := b.infoLines
			if b.withChecksum {
				sum := md5.Sum(b.packageTGZ)
				lines = append(lines, fmt.Sprintf("checksum=%q", hex.EncodeToString(sum[:])))
			}
			for size, icon := range b.infoIcons {
				key := "package_icon"
				if size != "72" {
					key += "_" + size
				}
				lines = append(lines, fmt.Sprintf("%s=%q", key, base64.StdEncoding.EncodeToString(icon)))
			}
			content = []byte(joinLines(lines))
		}
		addFile("INFO", content)
	}

	if err := tw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func joinLines(lines []string) string {
	out := ""
	for i, line := range lines {
		if i > 0 {
			out += "\n"
		}
		out += line
	}
	return out
}
