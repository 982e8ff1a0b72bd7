/*
 * LatticeDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package db is LatticeDB's top-level facade: DB opens a store.Store and
hands out a single Writer (enforcing spec.md §4.1's single-writer rule)
or any number of concurrent Readers.
*/
package db

import (
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/krotik/latticedb/store"
)

/*
Options tunes a DB instance. The zero value is usable: no worker-pool
cap beyond runtime defaults, no caching, a no-op logger.
*/
type Options struct {
	// WorkerPoolSize bounds SaveGraphsParallel's concurrency. Zero means
	// let golang.org/x/sync/errgroup use as many goroutines as there are
	// graphs to diff.
	WorkerPoolSize int

	// GraphCacheSize is the capacity of the LRU cache of encoded
	// PreparedGraph bytes shared by every Reader. Zero disables the cache.
	GraphCacheSize int

	// BitmapCacheSize is the capacity of the LRU cache of encoded index
	// bitmap bytes shared by every Reader. Zero disables the cache.
	BitmapCacheSize int

	// Logger receives structured debug logs on writer commits. Defaults
	// to zap.NewNop() (silent) if nil.
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

/*
DB is an opened LatticeDB database.
*/
type DB struct {
	store   *store.Store
	opts    Options
	graphLU *lru.Cache[uint64, []byte]
	bmapLU  *lru.Cache[bitmapKey, []byte]
}

type bitmapKey struct {
	bucket string
	a, b   uint64
}

/*
cachedGraph/cacheGraph/invalidateGraph front PreparedGraph's encoded
bytes with an LRU keyed by graph id, so a hot graph skips the bbolt
page lookup on every LoadGraph. The decode step itself still runs -
only the I/O is elided - since a cached, already-decoded PreparedGraph
would alias Builder.FromPrepared's copies across callers.
*/
func (d *DB) cachedGraph(id uint64) ([]byte, bool) {
	if d.graphLU == nil {
		return nil, false
	}
	return d.graphLU.Get(id)
}

func (d *DB) cacheGraph(id uint64, raw []byte) {
	if d.graphLU != nil {
		d.graphLU.Add(id, raw)
	}
}

func (d *DB) invalidateGraph(id uint64) {
	if d.graphLU != nil {
		d.graphLU.Remove(id)
	}
}

func (d *DB) cachedBitmap(bucket []byte, a, b uint64) ([]byte, bool) {
	if d.bmapLU == nil {
		return nil, false
	}
	return d.bmapLU.Get(bitmapKey{string(bucket), a, b})
}

func (d *DB) cacheBitmap(bucket []byte, a, b uint64, raw []byte) {
	if d.bmapLU != nil {
		d.bmapLU.Add(bitmapKey{string(bucket), a, b}, raw)
	}
}

func (d *DB) invalidateBitmap(bucket []byte, a, b uint64) {
	if d.bmapLU != nil {
		d.bmapLU.Remove(bitmapKey{string(bucket), a, b})
	}
}

/*
Open opens (creating if necessary) the database file at path with
default Options.
*/
func Open(path string) (*DB, error) {
	return OpenWithOptions(path, Options{})
}

/*
OpenWithOptions opens (creating if necessary) the database file at path.
*/
func OpenWithOptions(path string, opts Options) (*DB, error) {
	s, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	return newDB(s, opts), nil
}

/*
CreateTemporary opens a scratch database backed by a fresh temp file.
The returned cleanup func removes the backing file; callers should
defer it.
*/
func CreateTemporary(opts Options) (db *DB, cleanup func(), err error) {
	s, path, err := store.OpenTemporary()
	if err != nil {
		return nil, nil, err
	}
	return newDB(s, opts), func() { _ = s.Close(); _ = os.Remove(path) }, nil
}

func newDB(s *store.Store, opts Options) *DB {
	d := &DB{store: s, opts: opts}
	if opts.GraphCacheSize > 0 {
		d.graphLU, _ = lru.New[uint64, []byte](opts.GraphCacheSize)
	}
	if opts.BitmapCacheSize > 0 {
		d.bmapLU, _ = lru.New[bitmapKey, []byte](opts.BitmapCacheSize)
	}
	return d
}

/*
Close releases the underlying store.
*/
func (d *DB) Close() error {
	return d.store.Close()
}

/*
BeginRead opens a read-only Reader. Many Readers may be open at once,
concurrently with the single Writer (spec.md §4.1).
*/
func (d *DB) BeginRead() *Reader {
	return &Reader{db: d}
}

/*
BeginWrite opens the database's single Writer, reading the current
sequence cursors so new ids allocate past whatever is already
committed. Only one Writer may be open at a time; a second concurrent
BeginWrite blocks until the first Commits or Rollbacks, since it is
backed by store.Store.BeginWrite's single bbolt write transaction.
*/
func (d *DB) BeginWrite() (*Writer, error) {
	txn, err := d.store.BeginWrite()
	if err != nil {
		return nil, err
	}

	w := &Writer{db: d, txn: txn}
	if err := w.loadCursors(); err != nil {
		_ = txn.Rollback()
		return nil, err
	}
	return w, nil
}
