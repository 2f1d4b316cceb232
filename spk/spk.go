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

// Package spk decodes and re-encodes Synology packages. An SPK is an
// uncompressed POSIX tar archive with a fixed inner layout: a text
// INFO manifest, the compressed payload package.tgz, and optional
// icons, wizard ui files, license, conf metadata and a detached
// signature.
//
// Parsing is pure: it touches neither the database nor the
// filesystem, and a parsed SPK retains the raw archive members so the
// signer can rewrite the container without loss.
package spk

import (
	"archive/tar"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/ini.v1"

	"github.com/SynoCommunity/spkrepo/osutil"
)

// SignatureFilename is the archive member holding the detached signature.
const SignatureFilename = "syno_signature.asc"

// Required keys in the INFO manifest.
var requiredInfo = []string{"package", "version", "arch", "displayname", "description"}

// INFO keys that only accept yes/no.
var booleanInfo = map[string]bool{
	"ctl_stop":            true,
	"startable":           true,
	"support_conf_folder": true,
}

var (
	infoLineRe       = regexp.MustCompile(`^(\w+)="(.*)"$`)
	packageRe        = regexp.MustCompile(`^[\w-]+$`)
	wizardFilenameRe = regexp.MustCompile(`^WIZARD_UIFILES/(install|upgrade|uninstall)_uifile(?:_[a-z]{3})?(?:\.sh)?$`)
	iconInfoRe       = regexp.MustCompile(`^package_icon(?:_(120|256))?$`)
	iconFilenameRe   = regexp.MustCompile(`^PACKAGE_ICON(?:_(120|256))?\.PNG$`)
	scriptFilenameRe = regexp.MustCompile(`^scripts/.+$`)
	confFilenameRe   = regexp.MustCompile(`^conf/.+$`)
)

type member struct {
	hdr  *tar.Header
	data []byte
}

// SPK is a parsed Synology package.
type SPK struct {
	// Info holds the string-valued INFO keys.
	Info map[string]string
	// BoolInfo holds the yes/no INFO keys (ctl_stop, startable,
	// support_conf_folder).
	BoolInfo map[string]bool
	// Icons maps icon size ("72", "120", "256") to PNG bytes.
	Icons map[string][]byte
	// Wizards is the set of wizard kinds present (install, upgrade,
	// uninstall).
	Wizards map[string]bool
	// License is the LICENSE text, nil when absent.
	License *string
	// Signature is the detached ASCII signature, nil when absent.
	Signature *string

	// Conf metadata, nil when the corresponding conf/ file is absent.
	// PKG_DEPS and PKG_CONX are re-encoded from INI to compact JSON
	// ({section: {key: value}}) preserving insertion order.
	ConfDependencies *string
	ConfConflicts    *string
	ConfPrivilege    *string
	ConfResource     *string

	members []member
}

// Parse decodes the given SPK archive bytes and validates the inner
// layout and the INFO grammar. Any malformation is reported as a
// *ParseError.
func Parse(data []byte) (*SPK, error) {
	s := &SPK{
		Info:     make(map[string]string),
		BoolInfo: make(map[string]bool),
		Icons:    make(map[string][]byte),
		Wizards:  make(map[string]bool),
	}

	files := make(map[string][]byte)
	tr := tar.NewReader(bytes.NewReader(data))
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, parseErrorf("Invalid SPK")
		}
		var content []byte
		// pre-POSIX archives mark regular files with a zero type byte
		if hdr.Typeflag == tar.TypeReg || hdr.Typeflag == 0 {
			content, err = io.ReadAll(tr)
			if err != nil {
				return nil, parseErrorf("Invalid SPK")
			}
		}
		s.members = append(s.members, member{hdr: hdr, data: content})
		files[hdr.Name] = content
	}

	has := func(name string) bool {
		_, ok := files[name]
		return ok
	}

	if !has("INFO") {
		return nil, parseErrorf("Missing INFO file")
	}
	if !has("package.tgz") {
		return nil, parseErrorf("Missing package.tgz file")
	}

	if raw, ok := files["LICENSE"]; ok {
		if !utf8.Valid(raw) {
			return nil, parseErrorf("Wrong LICENSE encoding")
		}
		license := strings.TrimSpace(string(raw))
		s.License = &license
	}

	if raw, ok := files[SignatureFilename]; ok {
		if !isASCII(raw) {
			return nil, parseErrorf("Wrong %s encoding", SignatureFilename)
		}
		sig := strings.TrimSpace(string(raw))
		s.Signature = &sig
	}

	if err := s.parseInfo(files["INFO"]); err != nil {
		return nil, err
	}

	var missing []string
	for _, key := range requiredInfo {
		if _, ok := s.Info[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, parseErrorf("Missing INFO: %s", strings.Join(missing, ", "))
	}

	if s.BoolInfo["support_conf_folder"] {
		if err := s.parseConf(files); err != nil {
			return nil, err
		}
	}

	if checksum, ok := s.Info["checksum"]; ok {
		if osutil.MD5Sum(files["package.tgz"]) != checksum {
			return nil, parseErrorf("Checksum mismatch")
		}
	}

	// icon files win over INFO-embedded icons
	for name, content := range files {
		if m := iconFilenameRe.FindStringSubmatch(name); m != nil {
			size := m[1]
			if size == "" {
				size = "72"
			}
			s.Icons[size] = content
		}
	}
	if _, ok := s.Icons["72"]; !ok {
		return nil, parseErrorf("Missing 72px icon")
	}

	for name := range files {
		if m := wizardFilenameRe.FindStringSubmatch(name); m != nil {
			s.Wizards[m[1]] = true
		}
	}

	return s, nil
}

func (s *SPK) parseInfo(raw []byte) error {
	if !utf8.Valid(raw) {
		return parseErrorf("Wrong INFO encoding")
	}
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := infoLineRe.FindStringSubmatch(line)
		if m == nil {
			return parseErrorf("Invalid INFO")
		}
		key, value := m[1], m[2]

		switch {
		case iconInfoRe.MatchString(key):
			im := iconInfoRe.FindStringSubmatch(key)
			size := im[1]
			if size == "" {
				size = "72"
			}
			icon, err := base64.StdEncoding.DecodeString(value)
			if err != nil {
				return parseErrorf("Invalid INFO icon: %s", key)
			}
			s.Icons[size] = icon
		case booleanInfo[key]:
			switch value {
			case "yes":
				s.BoolInfo[key] = true
			case "no":
				s.BoolInfo[key] = false
			default:
				return parseErrorf("Invalid INFO boolean: %s", key)
			}
		case key == "package":
			if !packageRe.MatchString(value) {
				return parseErrorf("Invalid INFO package")
			}
			s.Info[key] = value
		default:
			s.Info[key] = value
		}
	}
	return nil
}

func (s *SPK) parseConf(files map[string][]byte) error {
	hasConf := false
	for name := range files {
		if name == "conf" || strings.HasPrefix(name, "conf/") {
			hasConf = true
			break
		}
	}
	if !hasConf {
		return parseErrorf("Missing conf folder")
	}
	if raw, ok := files["conf/PKG_DEPS"]; ok {
		out, err := iniToJSON(raw)
		if err != nil {
			return parseErrorf("Wrong conf/PKG_DEPS encoding")
		}
		s.ConfDependencies = &out
	}
	if raw, ok := files["conf/PKG_CONX"]; ok {
		out, err := iniToJSON(raw)
		if err != nil {
			return parseErrorf("Wrong conf/PKG_CONX encoding")
		}
		s.ConfConflicts = &out
	}
	if raw, ok := files["conf/privilege"]; ok {
		if !utf8.Valid(raw) {
			return parseErrorf("Wrong conf/privilege encoding")
		}
		if !json.Valid(raw) {
			return parseErrorf("File conf/privilege is not valid JSON")
		}
		content := string(raw)
		s.ConfPrivilege = &content
	}
	if raw, ok := files["conf/resource"]; ok {
		if !utf8.Valid(raw) {
			return parseErrorf("Wrong conf/resource encoding")
		}
		if !json.Valid(raw) {
			return parseErrorf("File conf/resource is not valid JSON")
		}
		content := string(raw)
		s.ConfResource = &content
	}
	if s.ConfDependencies == nil && s.ConfConflicts == nil && s.ConfPrivilege == nil && s.ConfResource == nil {
		return parseErrorf("Empty conf folder")
	}
	return nil
}

// iniToJSON re-encodes INI data as {section: {key: value}} compact
// JSON, preserving section and key insertion order. The output is
// observable wire format and must stay stable.
func iniToJSON(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", parseErrorf("invalid encoding")
	}
	cfg, err := ini.Load(raw)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, sec := range cfg.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		writeJSONString(&buf, sec.Name())
		buf.WriteString(":{")
		for i, key := range sec.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(&buf, key.Name())
			buf.WriteByte(':')
			writeJSONString(&buf, key.Value())
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.String(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b > 0x7f {
			return false
		}
	}
	return true
}
