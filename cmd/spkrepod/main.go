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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/SynoCommunity/spkrepo/catalog"
	"github.com/SynoCommunity/spkrepo/daemon"
	"github.com/SynoCommunity/spkrepo/dirs"
	"github.com/SynoCommunity/spkrepo/repo"
	"github.com/SynoCommunity/spkrepo/signer"
	"github.com/SynoCommunity/spkrepo/store"
)

var version = "unknown"

type options struct {
	ListenAddr  string `long:"listen" env:"LISTEN_ADDR" default:":5000" description:"Address to listen on"`
	BaseURL     string `long:"base-url" env:"BASE_URL" default:"http://localhost:5000" description:"Absolute URL prefix used in catalog links"`
	DataPath    string `long:"data-path" env:"DATA_PATH" default:"/var/lib/spkrepo/data" description:"Root of the package data directory"`
	DatabaseURL string `long:"database-url" env:"DATABASE_URL" default:"postgres://localhost/spkrepo" description:"PostgreSQL connection URL"`

	GnupgPath         string `long:"gnupg-path" env:"GNUPG_PATH" description:"GnuPG home directory; empty disables signing"`
	GnupgTimestampURL string `long:"gnupg-timestamp-url" env:"GNUPG_TIMESTAMP_URL" description:"Remote timestamp service URL"`
	GnupgFingerprint  string `long:"gnupg-fingerprint" env:"GNUPG_FINGERPRINT" description:"Fingerprint of the signing key"`

	CacheTTLSeconds int   `long:"cache-ttl" env:"CACHE_TTL_SECONDS" default:"600" description:"Catalog cache lifetime in seconds"`
	MaxUploadBytes  int64 `long:"max-upload-bytes" env:"MAX_UPLOAD_BYTES" default:"178257920" description:"Maximum accepted upload size"`

	InitDB bool `long:"init-db" description:"Create and seed the database schema on startup"`
	Debug  bool `long:"debug" env:"SPKREPO_DEBUG" description:"Enable debug logging"`
}

func run() error {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return nil
		}
		return err
	}

	if opts.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	dirs.SetDataDir(opts.DataPath)
	if err := os.MkdirAll(dirs.DataDir, 0755); err != nil {
		return err
	}

	ctx := context.Background()
	st, err := store.Open(ctx, opts.DatabaseURL)
	if err != nil {
		return fmt.Errorf("cannot open database: %v", err)
	}
	defer st.Close()

	if opts.InitDB {
		if err := st.CreateTables(ctx); err != nil {
			return fmt.Errorf("cannot create tables: %v", err)
		}
		if err := st.Populate(ctx); err != nil {
			return fmt.Errorf("cannot seed database: %v", err)
		}
		logrus.Info("database initialized")
	}

	sg := signer.New(signer.Config{
		GnupgHome:    opts.GnupgPath,
		Fingerprint:  opts.GnupgFingerprint,
		TimestampURL: opts.GnupgTimestampURL,
	})
	mgr := repo.NewManager(st, sg)
	resolver := catalog.NewResolver(st, sg, opts.BaseURL, time.Duration(opts.CacheTTLSeconds)*time.Second)

	d := daemon.New(daemon.Options{
		Version:        version,
		ListenAddr:     opts.ListenAddr,
		MaxUploadBytes: opts.MaxUploadBytes,
		Store:          st,
		Manager:        mgr,
		Resolver:       resolver,
	})
	if err := d.Init(); err != nil {
		return err
	}
	d.Start()

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-ch:
		logrus.Infof("exiting on %s", sig)
	case <-d.Dying():
	}
	return d.Stop()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
