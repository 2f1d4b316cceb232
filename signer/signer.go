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

// Package signer produces detached armored signatures with an external
// gpg and has them countersigned by a remote timestamp service.
package signer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/SynoCommunity/spkrepo/spk"
)

// timestampTimeout bounds the whole timestamp round trip.
const timestampTimeout = 2 * time.Second

// Config carries the signing settings. An empty GnupgHome disables
// signing entirely.
type Config struct {
	GnupgHome    string
	Fingerprint  string
	TimestampURL string
}

// Signer signs canonical SPK byte sequences. The zero value is an
// inactive signer.
type Signer struct {
	cfg    Config
	client *retryablehttp.Client
	log    *logrus.Entry
}

// New builds a Signer from the configuration.
func New(cfg Config) *Signer {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.HTTPClient.Timeout = timestampTimeout
	client.Logger = nil
	return &Signer{
		cfg:    cfg,
		client: client,
		log:    logrus.WithField("component", "signer"),
	}
}

// Active reports whether signing is configured.
func (s *Signer) Active() bool {
	return s != nil && s.cfg.GnupgHome != ""
}

// Sign produces a detached armored signature over the canonical bytes,
// submits it for timestamping and verifies the countersigned reply.
// The returned string is the timestamped signature as served by the
// timestamp service.
func (s *Signer) Sign(ctx context.Context, canonical []byte) (string, error) {
	signature, err := s.detachSign(ctx, canonical)
	if err != nil {
		return "", err
	}
	timestamped, err := s.timestamp(ctx, signature)
	if err != nil {
		return "", err
	}
	if err := s.verify(ctx, timestamped); err != nil {
		return "", err
	}
	return string(timestamped), nil
}

func (s *Signer) gpg(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	base := []string{"--homedir", s.cfg.GnupgHome, "--batch", "--yes"}
	cmd := exec.CommandContext(ctx, "gpg", append(base, args...)...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		s.log.WithError(err).WithField("stderr", stderr.String()).Error("gpg failed")
		return nil, &spk.SignError{Message: "Cannot generate signature"}
	}
	return stdout.Bytes(), nil
}

func (s *Signer) detachSign(ctx context.Context, canonical []byte) ([]byte, error) {
	args := []string{"--detach-sign", "--armor", "--output", "-"}
	if s.cfg.Fingerprint != "" {
		args = append(args, "--local-user", s.cfg.Fingerprint)
	}
	return s.gpg(ctx, canonical, args...)
}

// timestamp posts the signature as a multipart file upload and returns
// the countersigned body.
func (s *Signer) timestamp(ctx context.Context, signature []byte) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "signature.asc")
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(signature); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timestampTimeout)
	defer cancel()
	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", s.cfg.TimestampURL, body.Bytes())
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &spk.SignError{Message: "Timestamp server did not respond in time"}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &spk.SignError{Message: fmt.Sprintf("Timestamp server returned with status code %d", resp.StatusCode)}
	}
	timestamped, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &spk.SignError{Message: "Timestamp server did not respond in time"}
	}
	return timestamped, nil
}

func (s *Signer) verify(ctx context.Context, timestamped []byte) error {
	if _, err := s.gpg(ctx, timestamped, "--verify", "-"); err != nil {
		return &spk.SignError{Message: "Cannot verify timestamp"}
	}
	return nil
}

// Keyrings exports the configured public key, armored and trimmed, for
// the catalog envelope. An inactive signer exports nothing.
func (s *Signer) Keyrings(ctx context.Context) ([]string, error) {
	if !s.Active() {
		return nil, nil
	}
	out, err := s.gpg(ctx, nil, "--armor", "--export", s.cfg.Fingerprint)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(string(out))
	if key == "" {
		return nil, nil
	}
	return []string{key}, nil
}
