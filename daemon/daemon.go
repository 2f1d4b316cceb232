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

// Package daemon exposes the repository over HTTP: the upload API for
// developers, the catalog and download endpoints for appliances, and
// the static data tree.
package daemon

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"gopkg.in/tomb.v2"

	"github.com/SynoCommunity/spkrepo/catalog"
	"github.com/SynoCommunity/spkrepo/repo"
	"github.com/SynoCommunity/spkrepo/store"
)

// Manager is the build lifecycle surface the API drives.
type Manager interface {
	UploadSPK(ctx context.Context, user *store.User, data []byte) (*repo.UploadResult, error)
	ActivateBuild(ctx context.Context, buildID int64, active bool) error
	SignBuild(ctx context.Context, buildID int64) error
	UnsignBuild(ctx context.Context, buildID int64) error
	ResyncBuild(ctx context.Context, buildID int64) error
	DeletePackage(ctx context.Context, packageID int64) error
	DeleteVersion(ctx context.Context, versionID int64) error
	DeleteBuild(ctx context.Context, buildID int64) error
}

// Resolver answers catalog queries.
type Resolver interface {
	Resolve(ctx context.Context, q catalog.Query) (interface{}, error)
}

// Storer is the read side the handlers need directly.
type Storer interface {
	UserByAPIKey(ctx context.Context, apiKey string) (*store.User, error)
	ArchitectureByCode(ctx context.Context, code string) (*store.Architecture, error)
	ArchitectureByID(ctx context.Context, id int64) (*store.Architecture, error)
	LanguageByCode(ctx context.Context, code string) (*store.Language, error)
	LatestDSMMajor(ctx context.Context, build int) (int, error)
	BuildByID(ctx context.Context, id int64) (*store.Build, error)
	RecordDownload(ctx context.Context, d *store.Download) error
}

// Options configures a Daemon.
type Options struct {
	Version        string
	ListenAddr     string
	MaxUploadBytes int64

	Store    Storer
	Manager  Manager
	Resolver Resolver
}

// A Daemon listens for requests and routes them to the right command.
type Daemon struct {
	Version        string
	listenAddr     string
	maxUploadBytes int64

	store    Storer
	mgr      Manager
	resolver Resolver

	listener net.Listener
	tomb     tomb.Tomb
	router   *mux.Router
	log      *logrus.Entry
}

// New creates a Daemon with its routes set up.
func New(opts Options) *Daemon {
	d := &Daemon{
		Version:        opts.Version,
		listenAddr:     opts.ListenAddr,
		maxUploadBytes: opts.MaxUploadBytes,
		store:          opts.Store,
		mgr:            opts.Manager,
		resolver:       opts.Resolver,
		log:            logrus.WithField("component", "daemon"),
	}
	d.addRoutes()
	return d
}

// A ResponseFunc handles one of the individual verbs for a command.
type ResponseFunc func(*Command, *http.Request, *store.User) Response

// A Command routes a request to an individual per-verb ResponseFunc.
type Command struct {
	Path string

	GET    ResponseFunc
	POST   ResponseFunc
	DELETE ResponseFunc

	// GuestOK skips authentication entirely.
	GuestOK bool
	// Role is the role the authenticated user must carry.
	Role string

	d *Daemon
}

func (c *Command) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var user *store.User
	if !c.GuestOK {
		var rsp Response
		user, rsp = c.authenticate(r)
		if rsp != nil {
			rsp.ServeHTTP(w, r)
			return
		}
	}

	var rspf ResponseFunc
	var rsp = BadMethod("method %q not allowed", r.Method)

	switch r.Method {
	case "GET":
		rspf = c.GET
	case "POST":
		rspf = c.POST
	case "DELETE":
		rspf = c.DELETE
	}

	if rspf != nil {
		rsp = rspf(c, r, user)
	}

	rsp.ServeHTTP(w, r)
}

func (d *Daemon) addRoutes() {
	d.router = mux.NewRouter()
	for _, c := range api {
		c.d = d
		d.router.Handle(c.Path, c).Name(c.Path)
	}
	d.router.Handle("/metrics", metricsHandler())
}

// Router exposes the handler, mainly for the tests.
func (d *Daemon) Router() http.Handler {
	return logit(d.router)
}

// Init opens the listening socket.
func (d *Daemon) Init() error {
	listener, err := net.Listen("tcp", d.listenAddr)
	if err != nil {
		return err
	}
	d.listener = listener
	d.log.Infof("started %v on %v", d.Version, listener.Addr())
	return nil
}

// Start serves requests until Stop is called.
func (d *Daemon) Start() {
	d.tomb.Go(func() error {
		if err := http.Serve(d.listener, logit(d.router)); err != nil && d.tomb.Err() == tomb.ErrStillAlive {
			return err
		}
		return nil
	})
}

// Stop shuts down the Daemon.
func (d *Daemon) Stop() error {
	d.tomb.Kill(nil)
	if d.listener != nil {
		d.listener.Close()
	}
	return d.tomb.Wait()
}

// Dying exposes the tomb's dying channel.
func (d *Daemon) Dying() <-chan struct{} {
	return d.tomb.Dying()
}

type wrappedWriter struct {
	w http.ResponseWriter
	s int
}

func (w *wrappedWriter) Header() http.Header {
	return w.w.Header()
}

func (w *wrappedWriter) Write(bs []byte) (int, error) {
	if w.s == 0 {
		w.s = http.StatusOK
	}
	return w.w.Write(bs)
}

func (w *wrappedWriter) WriteHeader(s int) {
	w.w.WriteHeader(s)
	w.s = s
}

func logit(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := &wrappedWriter{w: w}
		t0 := time.Now()
		handler.ServeHTTP(ww, r)
		logrus.WithFields(logrus.Fields{
			"remote":   r.RemoteAddr,
			"method":   r.Method,
			"url":      r.URL.String(),
			"status":   ww.s,
			"duration": time.Since(t0),
		}).Debug("request")
		observeRequest(r.Method, ww.s, time.Since(t0))
	})
}
