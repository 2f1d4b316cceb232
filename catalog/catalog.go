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

// Package catalog renders the per-appliance package catalog: for each
// package the single best active build for the querying architecture,
// firmware build and major, localized to the requested language.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/SynoCommunity/spkrepo/store"
)

// dsm51Build is the first firmware build that expects the
// {packages, keyrings} envelope.
const dsm51Build = 5004

// Store is the selection surface the resolver reads from.
type Store interface {
	CatalogBuilds(ctx context.Context, arch string, build, major int, beta bool) ([]*store.CatalogRow, error)
}

// Keyringer exports the signing public keys for the envelope.
type Keyringer interface {
	Keyrings(ctx context.Context) ([]string, error)
}

// Query identifies one catalog variant. It doubles as the cache key.
type Query struct {
	Arch     string
	Build    int
	Major    int
	Language string
	Beta     bool
}

// Entry is one rendered catalog entry.
type Entry map[string]interface{}

// Envelope is the response form expected from DSM 5.1 on.
type Envelope struct {
	Packages []Entry  `json:"packages"`
	Keyrings []string `json:"keyrings"`
}

type cacheEntry struct {
	payload interface{}
	expires time.Time
}

// Resolver answers catalog queries, memoizing each variant for the
// configured TTL. Concurrent misses on the same variant are collapsed
// into one database pass.
type Resolver struct {
	st      Store
	keys    Keyringer
	baseURL string
	ttl     time.Duration
	log     *logrus.Entry

	group singleflight.Group
	mu    sync.Mutex
	cache map[Query]cacheEntry
}

// NewResolver builds a Resolver. baseURL is the absolute URL prefix
// used for link, thumbnail and snapshot fields, without trailing
// slash.
func NewResolver(st Store, keys Keyringer, baseURL string, ttl time.Duration) *Resolver {
	return &Resolver{
		st:      st,
		keys:    keys,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		ttl:     ttl,
		log:     logrus.WithField("component", "catalog"),
		cache:   make(map[Query]cacheEntry),
	}
}

// Resolve returns the catalog payload for the query: a bare entry list
// for firmware builds before DSM 5.1, the keyring envelope from then
// on. The payload is shared between requests, callers must not
// mutate it.
func (r *Resolver) Resolve(ctx context.Context, q Query) (interface{}, error) {
	r.mu.Lock()
	if e, ok := r.cache[q]; ok && time.Now().Before(e.expires) {
		r.mu.Unlock()
		return e.payload, nil
	}
	r.mu.Unlock()

	key := fmt.Sprintf("%s|%d|%d|%s|%t", q.Arch, q.Build, q.Major, q.Language, q.Beta)
	payload, err, _ := r.group.Do(key, func() (interface{}, error) {
		payload, err := r.resolve(ctx, q)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[q] = cacheEntry{payload: payload, expires: time.Now().Add(r.ttl)}
		r.mu.Unlock()
		return payload, nil
	})
	return payload, err
}

func (r *Resolver) resolve(ctx context.Context, q Query) (interface{}, error) {
	rows, err := r.st.CatalogBuilds(ctx, q.Arch, q.Build, q.Major, q.Beta)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, r.renderEntry(row, q))
	}

	if q.Build >= dsm51Build {
		keyrings := []string{}
		if r.keys != nil {
			keys, err := r.keys.Keyrings(ctx)
			if err != nil {
				return nil, err
			}
			keyrings = append(keyrings, keys...)
		}
		return &Envelope{Packages: entries, Keyrings: keyrings}, nil
	}
	return entries, nil
}

func (r *Resolver) renderEntry(row *store.CatalogRow, q Query) Entry {
	v := &row.Version

	entry := Entry{
		"package":               row.Package.Name,
		"version":               v.VersionString(),
		"dname":                 localized(row.DisplayNames, q.Language),
		"desc":                  localized(row.Descriptions, q.Language),
		"link":                  r.downloadLink(row.Build.Path, q),
		"thumbnail":             r.dataURLs(row.IconPaths),
		"qinst":                 quietInstallable(v.License, v.InstallWizard),
		"qupgrade":              quietInstallable(v.License, v.UpgradeWizard),
		"qstart":                quietInstallable(v.License, v.InstallWizard) && boolOrTrue(v.Startable),
		"deppkgs":               manifestField(row.Manifest, func(m *store.BuildManifest) *string { return m.Dependencies }),
		"conflictpkgs":          manifestField(row.Manifest, func(m *store.BuildManifest) *string { return m.Conflicts }),
		"download_count":        row.DownloadCount,
		"recent_download_count": row.RecentDownloadCount,
	}

	if len(row.Screenshots) > 0 {
		entry["snapshot"] = r.dataURLs(row.Screenshots)
	}
	if v.Beta() {
		entry["report_url"] = *v.ReportURL
		entry["beta"] = true
	}
	setIfPresent(entry, "changelog", v.Changelog)
	setIfPresent(entry, "distributor", v.Distributor)
	setIfPresent(entry, "distributor_url", v.DistributorURL)
	setIfPresent(entry, "maintainer", v.Maintainer)
	setIfPresent(entry, "maintainer_url", v.MaintainerURL)
	if len(row.ServiceCodes) > 0 {
		entry["depsers"] = strings.Join(row.ServiceCodes, " ")
	}
	setIfPresent(entry, "md5", row.Build.MD5)
	if m := row.Manifest; m != nil {
		setIfPresent(entry, "conf_deppkgs", m.ConfDependencies)
		setIfPresent(entry, "conf_conxpkgs", m.ConfConflicts)
		setIfPresent(entry, "conf_privilege", m.ConfPrivilege)
		setIfPresent(entry, "conf_resource", m.ConfResource)
	}
	return entry
}

func localized(values map[string]string, language string) string {
	if v, ok := values[language]; ok {
		return v
	}
	return values["enu"]
}

// quietInstallable is true when the version needs neither a license
// acceptance nor a wizard. The wizard flag must be known to be false.
func quietInstallable(license *string, wizard *bool) bool {
	return license == nil && wizard != nil && !*wizard
}

func boolOrTrue(v *bool) bool {
	return v == nil || *v
}

func manifestField(m *store.BuildManifest, pick func(*store.BuildManifest) *string) interface{} {
	if m == nil {
		return nil
	}
	if v := pick(m); v != nil {
		return *v
	}
	return nil
}

func setIfPresent(entry Entry, key string, value *string) {
	if value != nil && *value != "" {
		entry[key] = *value
	}
}

func (r *Resolver) dataURL(rel string) string {
	u := url.URL{Path: "/nas/" + rel}
	return r.baseURL + u.EscapedPath()
}

func (r *Resolver) dataURLs(rels []string) []string {
	urls := make([]string, len(rels))
	for i, rel := range rels {
		urls[i] = r.dataURL(rel)
	}
	return urls
}

func (r *Resolver) downloadLink(buildPath string, q Query) string {
	values := url.Values{}
	values.Set("arch", q.Arch)
	values.Set("build", strconv.Itoa(q.Build))
	return r.dataURL(buildPath) + "?" + values.Encode()
}
