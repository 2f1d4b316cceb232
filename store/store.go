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

// Package store persists the repository metadata in PostgreSQL.
// Entity ownership follows a strict tree (package → version → build →
// manifest) with cascade deletes; the matching filesystem side
// effects are the caller's business, the store only reports what was
// removed.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sirupsen/logrus"
	"gopkg.in/retry.v1"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store wraps the connection pool.
type Store struct {
	pool *pgxpool.Pool
	log  *logrus.Entry
}

// Open connects to the database identified by the given URL.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{
		pool: pool,
		log:  logrus.WithField("component", "store"),
	}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Tx is one database transaction. All entity operations hang off it
// so that a request's writes commit or roll back as a unit.
type Tx struct {
	tx pgx.Tx
}

// serialization failures are retried once before surfacing
var txRetryStrategy = retry.LimitCount(2, retry.Regular{
	Total: 5 * time.Second,
	Delay: 100 * time.Millisecond,
})

// WithTx runs fn inside a transaction, committing when fn returns nil
// and rolling back otherwise. A serialization failure (SQLSTATE
// 40001) is retried once.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	var lastErr error
	for a := retry.Start(txRetryStrategy, nil); a.Next(); {
		lastErr = s.runTx(ctx, fn)
		if !isSerializationFailure(lastErr) {
			return lastErr
		}
		s.log.WithError(lastErr).Warn("retrying transaction after serialization failure")
	}
	return lastErr
}

func (s *Store) runTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func notFoundOr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
