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

	"github.com/krotik/latticedb/errs"
	"github.com/krotik/latticedb/graph"
	"github.com/krotik/latticedb/properties"
	"github.com/krotik/latticedb/query/compile"
	"github.com/krotik/latticedb/store"
)

/*
Reader is a read-only view of a DB. It holds no transaction of its
own: each method runs in its own bbolt read transaction, so one call
sees a consistent snapshot, but writes committed after BeginRead are
visible to later calls on the same Reader.
*/
type Reader struct {
	db *DB
}

/*
GraphIDForVertex returns the graph a vertex belongs to, or
ErrVertexNotFound if the vertex is unknown.
*/
func (r *Reader) GraphIDForVertex(vertexID uint64) (uint64, error) {
	var id uint64
	err := r.db.store.View(func(t *store.ReadTxn) error {
		raw := t.Get(store.BucketVertexGraphMap, store.U64Key(vertexID))
		if raw == nil {
			return errs.New(errs.ErrVertexNotFound, "")
		}
		id = store.DecodeU64(raw)
		return nil
	})
	return id, err
}

/*
LoadGraph loads the graph with the given id as a staged Builder, ready
for mutation and re-commit via Writer.SaveGraphsParallel.
*/
func (r *Reader) LoadGraph(graphID uint64) (*graph.Builder, error) {
	var b *graph.Builder
	err := r.db.store.View(func(t *store.ReadTxn) error {
		raw, cached := r.db.cachedGraph(graphID)
		if !cached {
			raw = t.Get(store.BucketGraphs, store.U64Key(graphID))
			if raw == nil {
				return errs.New(errs.ErrGraphNotFound, "")
			}
			cp := append([]byte(nil), raw...)
			r.db.cacheGraph(graphID, cp)
		}
		g, err := graph.DecodePreparedGraph(raw)
		if err != nil {
			return err
		}
		b = graph.FromPrepared(graphID, g)
		return nil
	})
	return b, err
}

/*
PropertyIDByName resolves a registered property's alias to its id.
*/
func (r *Reader) PropertyIDByName(name string) (properties.ID, error) {
	var id properties.ID
	err := r.db.store.View(func(t *store.ReadTxn) error {
		raw := t.Get(store.BucketPropNames, []byte(name))
		if raw == nil {
			return errs.New(errs.ErrPropertyNotFound, "")
		}
		id = store.DecodeU64(raw)
		return nil
	})
	return id, err
}

/*
PropertyMeta decodes the metadata blob registered for a property id
into out.
*/
func (r *Reader) PropertyMeta(id properties.ID, out any) error {
	return r.db.store.View(func(t *store.ReadTxn) error {
		raw := t.Get(store.BucketProperties, store.U64Key(id))
		if raw == nil {
			return errs.New(errs.ErrPropertyNotFound, "")
		}
		return properties.DecodeMeta(raw, out)
	})
}

/*
QueryIDByAlias resolves a saved query's alias to its id.
*/
func (r *Reader) QueryIDByAlias(alias string) (uint64, error) {
	var id uint64
	err := r.db.store.View(func(t *store.ReadTxn) error {
		raw := t.Get(store.BucketQueryNames, []byte(alias))
		if raw == nil {
			return errs.New(errs.ErrQueryNotFound, "")
		}
		id = store.DecodeU64(raw)
		return nil
	})
	return id, err
}

/*
QueryMeta decodes the metadata blob registered for a saved query id
into out.
*/
func (r *Reader) QueryMeta(id uint64, out any) error {
	return r.db.store.View(func(t *store.ReadTxn) error {
		raw := t.Get(store.BucketQueryMetas, store.U64Key(id))
		if raw == nil {
			return errs.New(errs.ErrQueryNotFound, "")
		}
		return properties.DecodeMeta(raw, out)
	})
}

/*
PreparedQuery loads and decodes a previously saved compiled query.
*/
func (r *Reader) PreparedQuery(id uint64) (*compile.PreparedQuery, error) {
	var pq *compile.PreparedQuery
	err := r.db.store.View(func(t *store.ReadTxn) error {
		raw := t.Get(store.BucketQueries, store.U64Key(id))
		if raw == nil {
			return errs.New(errs.ErrQueryNotFound, "")
		}
		q, err := compile.Decode(raw)
		if err != nil {
			return err
		}
		pq = q
		return nil
	})
	return pq, err
}

/*
Search evaluates a compiled query and returns the matching vertex ids
(spec.md §4.6). Each node is evaluated exactly once: Union takes the
bitwise OR of its children, Intersect ANDs its children smallest-first
(spec.md §4.6's cardinality-aware ordering, so large operands are only
ever touched by the already-narrowed running result), Difference is
ANDNOT, and Edge unions the FORWARD/REVERSE index entry for every
vertex currently matching its target.
*/
func (r *Reader) Search(pq *compile.PreparedQuery) ([]uint64, error) {
	results := make([]*roaring64.Bitmap, len(pq.Nodes))

	err := r.db.store.View(func(t *store.ReadTxn) error {
		for idx, n := range pq.Nodes {
			bm, err := evalNode(r.db, t, n, results)
			if err != nil {
				return err
			}
			results[idx] = bm
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if pq.Root < 0 || pq.Root >= len(results) {
		return nil, errs.New(errs.ErrQueryNodeNotFound, "")
	}
	root := results[pq.Root]
	if root == nil {
		return nil, nil
	}
	out := make([]uint64, 0, root.GetCardinality())
	it := root.Iterator()
	for it.HasNext() {
		out = append(out, it.Next())
	}
	return out, nil
}

func evalNode(d *DB, t *store.ReadTxn, n compile.Node, results []*roaring64.Bitmap) (*roaring64.Bitmap, error) {
	switch n.Kind {
	case compile.NodeUnion:
		res := roaring64.New()
		for _, c := range n.Children {
			if child := results[c]; child != nil {
				res.Or(child)
			}
		}
		return res, nil

	case compile.NodeIntersect:
		return intersectSmallestFirst(n.Children, results), nil

	case compile.NodeDifference:
		res := roaring64.New()
		if inc := results[n.Include]; inc != nil {
			res = inc.Clone()
		}
		if exc := results[n.Exclude]; exc != nil {
			res.AndNot(exc)
		}
		return res, nil

	case compile.NodeAttribute:
		return loadBitmap(d, t, store.BucketIndexScalar, n.Property, n.Value.Hash())

	case compile.NodeEdgeOut, compile.NodeEdgeIn:
		bucket := store.BucketIndexForward
		if n.Kind == compile.NodeEdgeIn {
			bucket = store.BucketIndexReverse
		}
		res := roaring64.New()
		target := results[n.Target]
		if target == nil {
			return res, nil
		}
		it := target.Iterator()
		for it.HasNext() {
			connected, err := loadBitmap(d, t, bucket, it.Next(), n.Label)
			if err != nil {
				return nil, err
			}
			res.Or(connected)
		}
		return res, nil

	case compile.NodeSavedQuery:
		return loadBitmap(d, t, store.BucketIndexScalar, properties.QueryMatchID, n.SavedQueryID)

	default:
		return roaring64.New(), nil
	}
}

func intersectSmallestFirst(children []int, results []*roaring64.Bitmap) *roaring64.Bitmap {
	bitmaps := make([]*roaring64.Bitmap, 0, len(children))
	for _, c := range children {
		if b := results[c]; b != nil {
			bitmaps = append(bitmaps, b)
		}
	}
	if len(bitmaps) == 0 {
		return roaring64.New()
	}

	sort.Slice(bitmaps, func(i, j int) bool {
		return bitmaps[i].GetCardinality() < bitmaps[j].GetCardinality()
	})

	res := bitmaps[0].Clone()
	for _, other := range bitmaps[1:] {
		res.And(other)
		if res.IsEmpty() {
			break
		}
	}
	return res
}

func loadBitmap(d *DB, t *store.ReadTxn, bucket []byte, a, b uint64) (*roaring64.Bitmap, error) {
	raw, cached := d.cachedBitmap(bucket, a, b)
	if !cached {
		raw = t.Get(bucket, store.PairKey(a, b))
		if raw != nil {
			d.cacheBitmap(bucket, a, b, append([]byte(nil), raw...))
		}
	}

	bm := roaring64.New()
	if raw == nil {
		return bm, nil
	}
	if _, err := bm.ReadFrom(bytes.NewReader(raw)); err != nil {
		return nil, errs.New(errs.ErrDecode, err.Error())
	}
	return bm, nil
}
