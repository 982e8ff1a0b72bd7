/*
 * LatticeDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package db

import (
	"bytes"
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/krotik/latticedb/errs"
	"github.com/krotik/latticedb/graph"
	"github.com/krotik/latticedb/properties"
	"github.com/krotik/latticedb/query"
	"github.com/krotik/latticedb/query/compile"
	"github.com/krotik/latticedb/store"
)

/*
Writer is LatticeDB's single read-write handle (spec.md §4.1). It wraps
one bbolt write transaction and the four monotonic id sequences, and
accumulates index updates in a write-back bitmap cache that is only
flushed to the backing buckets on Commit.
*/
type Writer struct {
	db  *DB
	txn *store.WriteTxn

	graphIDCursor    uint64
	vertexIDCursor   uint64
	propertyIDCursor uint64
	queryIDCursor    uint64

	scalarCache  map[pairKey]*roaring64.Bitmap
	forwardCache map[pairKey]*roaring64.Bitmap
	reverseCache map[pairKey]*roaring64.Bitmap

	touchedGraphs  []uint64
	touchedBitmaps []bitmapTouch
}

type bitmapTouch struct {
	bucket []byte
	a, b   uint64
}

type pairKey struct{ a, b uint64 }

func (w *Writer) loadCursors() error {
	load := func(seq byte) (uint64, error) {
		raw := w.txn.Get(store.BucketSequences, []byte{seq})
		if raw == nil {
			return 0, nil
		}
		return store.DecodeU64(raw), nil
	}

	var err error
	if w.graphIDCursor, err = load(store.SeqGraphID); err != nil {
		return err
	}
	if w.vertexIDCursor, err = load(store.SeqVertexID); err != nil {
		return err
	}
	if w.propertyIDCursor, err = load(store.SeqPropertyID); err != nil {
		return err
	}
	if w.queryIDCursor, err = load(store.SeqQueryID); err != nil {
		return err
	}

	w.scalarCache = make(map[pairKey]*roaring64.Bitmap)
	w.forwardCache = make(map[pairKey]*roaring64.Bitmap)
	w.reverseCache = make(map[pairKey]*roaring64.Bitmap)
	return nil
}

func (w *Writer) reserveVertexIDs(count uint64) uint64 {
	id := w.vertexIDCursor
	w.vertexIDCursor += count
	return id
}

/*
RegisterProperty allocates a new property (or edge label) id, storing
meta as its opaque metadata blob and, if alias is non-empty, binding it
to that alias. Returns ErrAliasAlreadyExists if alias is already taken.
*/
func (w *Writer) RegisterProperty(alias string, meta any) (properties.ID, error) {
	if alias != "" {
		if w.txn.Get(store.BucketPropNames, []byte(alias)) != nil {
			return 0, errs.New(errs.ErrAliasAlreadyExists, "")
		}
	}

	id := w.propertyIDCursor
	w.propertyIDCursor++

	blob, err := properties.EncodeMeta(meta)
	if err != nil {
		return 0, err
	}
	if err := w.txn.Put(store.BucketProperties, store.U64Key(id), blob); err != nil {
		return 0, err
	}
	if alias != "" {
		if err := w.txn.Put(store.BucketPropNames, []byte(alias), store.U64Key(id)); err != nil {
			return 0, err
		}
	}
	return id, nil
}

/*
SaveQuery compiles b, stores the resulting PreparedQuery and its
metadata, and optionally binds it to alias. Returns ErrAliasAlreadyExists
if alias is already taken.
*/
func (w *Writer) SaveQuery(b *query.Builder, alias string, meta any) (uint64, error) {
	if alias != "" {
		if w.txn.Get(store.BucketQueryNames, []byte(alias)) != nil {
			return 0, errs.New(errs.ErrAliasAlreadyExists, "")
		}
	}

	id := w.queryIDCursor
	w.queryIDCursor++

	pq, err := compile.Compile(b)
	if err != nil {
		return 0, err
	}

	metaBlob, err := properties.EncodeMeta(meta)
	if err != nil {
		return 0, err
	}
	if err := w.txn.Put(store.BucketQueryMetas, store.U64Key(id), metaBlob); err != nil {
		return 0, err
	}
	if err := w.txn.Put(store.BucketQueries, store.U64Key(id), pq.Encode()); err != nil {
		return 0, err
	}
	if alias != "" {
		if err := w.txn.Put(store.BucketQueryNames, []byte(alias), store.U64Key(id)); err != nil {
			return 0, err
		}
	}
	return id, nil
}

/*
SaveGraphsParallel diffs every builder against the PreparedGraph it was
loaded from (or treats it as wholly new), storing the resulting
PreparedGraph and staging every index delta in the write-back cache.
Diffing runs data-parallel across builders, bounded by
Options.WorkerPoolSize (spec.md §4.3, §4.4): builders are independent,
so their diffs have no shared mutable state until the single-threaded
cache-update pass below.
*/
func (w *Writer) SaveGraphsParallel(builders []*graph.Builder) error {
	type reservation struct {
		startID uint64
		graphID uint64
		newCnt  uint64
	}
	reservations := make([]reservation, len(builders))
	for i, b := range builders {
		newCnt := b.CountNewVertices()
		var graphID uint64
		if old, ok := b.OldGraphID(); ok {
			graphID = old
		} else {
			graphID = w.graphIDCursor
			w.graphIDCursor++
		}
		reservations[i] = reservation{
			startID: w.reserveVertexIDs(newCnt),
			graphID: graphID,
			newCnt:  newCnt,
		}
	}

	for _, r := range reservations {
		for vID := r.startID; vID < r.startID+r.newCnt; vID++ {
			if err := w.txn.Put(store.BucketVertexGraphMap, store.U64Key(vID), store.U64Key(r.graphID)); err != nil {
				return err
			}
		}
	}

	results := make([]*graph.GraphCommitData, len(builders))
	var g errgroup.Group
	if w.db.opts.WorkerPoolSize > 0 {
		g.SetLimit(w.db.opts.WorkerPoolSize)
	}
	for i := range builders {
		i := i
		g.Go(func() error {
			results[i] = graph.CommitDataFromBuilder(builders[i], reservations[i].startID, reservations[i].graphID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, data := range results {
		if err := w.txn.Put(store.BucketGraphs, store.U64Key(data.GraphID), data.PreparedGraph.Encode()); err != nil {
			return err
		}
		w.touchedGraphs = append(w.touchedGraphs, data.GraphID)

		for _, vID := range data.DeletedVertices {
			if err := w.txn.Delete(store.BucketVertexGraphMap, store.U64Key(vID)); err != nil {
				return err
			}
		}

		for _, d := range data.AddAttrs {
			if err := w.updateBitmap(w.scalarCache, store.BucketIndexScalar, pairKey{d.Property, d.Hash}, d.Vertex, true); err != nil {
				return err
			}
		}
		for _, d := range data.RemAttrs {
			if err := w.updateBitmap(w.scalarCache, store.BucketIndexScalar, pairKey{d.Property, d.Hash}, d.Vertex, false); err != nil {
				return err
			}
		}
		for _, d := range data.AddEdges {
			if err := w.updateBitmap(w.forwardCache, store.BucketIndexForward, pairKey{d.From, d.Label}, d.To, true); err != nil {
				return err
			}
			if err := w.updateBitmap(w.reverseCache, store.BucketIndexReverse, pairKey{d.To, d.Label}, d.From, true); err != nil {
				return err
			}
		}
		for _, d := range data.RemEdges {
			if err := w.updateBitmap(w.forwardCache, store.BucketIndexForward, pairKey{d.From, d.Label}, d.To, false); err != nil {
				return err
			}
			if err := w.updateBitmap(w.reverseCache, store.BucketIndexReverse, pairKey{d.To, d.Label}, d.From, false); err != nil {
				return err
			}
		}
	}

	return nil
}

func (w *Writer) updateBitmap(cache map[pairKey]*roaring64.Bitmap, bucket []byte, key pairKey, id uint64, add bool) error {
	bm, ok := cache[key]
	if !ok {
		raw := w.txn.Get(bucket, store.PairKey(key.a, key.b))
		bm = roaring64.New()
		if raw != nil {
			if _, err := bm.ReadFrom(bytes.NewReader(raw)); err != nil {
				return errs.New(errs.ErrDecode, err.Error())
			}
		}
		cache[key] = bm
	}
	if add {
		bm.Add(id)
	} else {
		bm.Remove(id)
	}
	return nil
}

/*
Commit flushes every cached bitmap (in ascending key order, to avoid
scattering writes across the backing B+tree - spec.md §4.4), persists
the id sequence cursors, and commits the underlying transaction.
*/
func (w *Writer) Commit() error {
	if err := w.flushCache(store.BucketIndexScalar, w.scalarCache); err != nil {
		return err
	}
	if err := w.flushCache(store.BucketIndexForward, w.forwardCache); err != nil {
		return err
	}
	if err := w.flushCache(store.BucketIndexReverse, w.reverseCache); err != nil {
		return err
	}

	seqs := []struct {
		key byte
		val uint64
	}{
		{store.SeqGraphID, w.graphIDCursor},
		{store.SeqVertexID, w.vertexIDCursor},
		{store.SeqPropertyID, w.propertyIDCursor},
		{store.SeqQueryID, w.queryIDCursor},
	}
	for _, s := range seqs {
		if err := w.txn.Put(store.BucketSequences, []byte{s.key}, store.U64Key(s.val)); err != nil {
			return err
		}
	}

	w.db.opts.logger().Debug("latticedb: write transaction committed",
		zap.Uint64("graph_id_cursor", w.graphIDCursor),
		zap.Uint64("vertex_id_cursor", w.vertexIDCursor),
	)

	if err := w.txn.Commit(); err != nil {
		return err
	}

	// the write transaction is now durable; stale reader-side caches
	// must not outlive it.
	for _, id := range w.touchedGraphs {
		w.db.invalidateGraph(id)
	}
	for _, t := range w.touchedBitmaps {
		w.db.invalidateBitmap(t.bucket, t.a, t.b)
	}
	return nil
}

func (w *Writer) flushCache(bucket []byte, cache map[pairKey]*roaring64.Bitmap) error {
	if len(cache) == 0 {
		return nil
	}

	keys := make([]pairKey, 0, len(cache))
	for k := range cache {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})

	for _, k := range keys {
		bm := cache[k]
		rawKey := store.PairKey(k.a, k.b)
		w.touchedBitmaps = append(w.touchedBitmaps, bitmapTouch{bucket, k.a, k.b})
		if bm.IsEmpty() {
			if err := w.txn.Delete(bucket, rawKey); err != nil {
				return err
			}
			continue
		}
		var buf bytes.Buffer
		if _, err := bm.WriteTo(&buf); err != nil {
			return errs.New(errs.ErrEncode, err.Error())
		}
		if err := w.txn.Put(bucket, rawKey, buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

/*
Rollback discards every staged change without persisting anything.
*/
func (w *Writer) Rollback() error {
	return w.txn.Rollback()
}
