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

package daemon

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spkrepo",
		Name:      "http_requests_total",
		Help:      "Number of HTTP requests served, by method and status.",
	}, []string{"method", "status"})

	requestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "spkrepo",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
	})

	uploadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "spkrepo",
		Name:      "uploads_total",
		Help:      "Number of accepted SPK uploads.",
	})

	downloadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "spkrepo",
		Name:      "downloads_total",
		Help:      "Number of recorded SPK downloads.",
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, uploadsTotal, downloadsTotal)
}

func observeRequest(method string, status int, d time.Duration) {
	requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	requestDuration.Observe(d.Seconds())
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
