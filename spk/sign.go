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

package spk

import (
	"archive/tar"
	"bytes"
	"errors"
	"sort"
	"time"
)

var (
	// ErrAlreadySigned is returned when signing an SPK that already
	// carries a signature member.
	ErrAlreadySigned = errors.New("already signed")
	// ErrNotSigned is returned when unsigning an SPK without one.
	ErrNotSigned = errors.New("not signed")
)

// CanonicalBytes assembles the byte sequence covered by the detached
// signature: INFO, LICENSE, the icons, the wizard ui files, the conf
// files, package.tgz and the scripts, concatenated in lexicographic
// filename order within each group.
func (s *SPK) CanonicalBytes() []byte {
	byName := make(map[string][]byte, len(s.members))
	names := make([]string, 0, len(s.members))
	for _, m := range s.members {
		if _, ok := byName[m.hdr.Name]; !ok {
			names = append(names, m.hdr.Name)
		}
		byName[m.hdr.Name] = m.data
	}
	sort.Strings(names)

	var buf bytes.Buffer
	write := func(name string) {
		buf.Write(byName[name])
	}
	writeMatching := func(match func(string) bool) {
		for _, name := range names {
			if match(name) {
				write(name)
			}
		}
	}

	if _, ok := byName["INFO"]; ok {
		write("INFO")
	}
	if _, ok := byName["LICENSE"]; ok {
		write("LICENSE")
	}
	writeMatching(iconFilenameRe.MatchString)
	writeMatching(wizardFilenameRe.MatchString)
	writeMatching(confFilenameRe.MatchString)
	if _, ok := byName["package.tgz"]; ok {
		write("package.tgz")
	}
	writeMatching(scriptFilenameRe.MatchString)

	return buf.Bytes()
}

// WithSignature returns the archive rewritten with the given ASCII
// armored signature appended as syno_signature.asc. The existing
// members are carried over unchanged.
func (s *SPK) WithSignature(signature string) ([]byte, error) {
	if s.Signature != nil {
		return nil, ErrAlreadySigned
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := s.writeMembers(tw, nil); err != nil {
		return nil, err
	}
	sig := []byte(signature)
	hdr := &tar.Header{
		Name:    SignatureFilename,
		Mode:    0644,
		Size:    int64(len(sig)),
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, err
	}
	if _, err := tw.Write(sig); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WithoutSignature returns the archive rewritten without the
// signature member.
func (s *SPK) WithoutSignature() ([]byte, error) {
	if s.Signature == nil {
		return nil, ErrNotSigned
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	skip := map[string]bool{SignatureFilename: true}
	if err := s.writeMembers(tw, skip); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *SPK) writeMembers(tw *tar.Writer, skip map[string]bool) error {
	for _, m := range s.members {
		if skip[m.hdr.Name] {
			continue
		}
		if err := tw.WriteHeader(m.hdr); err != nil {
			return err
		}
		if len(m.data) > 0 {
			if _, err := tw.Write(m.data); err != nil {
				return err
			}
		}
	}
	return nil
}
