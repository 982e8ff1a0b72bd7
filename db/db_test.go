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
	"sort"
	"testing"

	"github.com/krotik/latticedb/graph"
	"github.com/krotik/latticedb/query"
	"github.com/krotik/latticedb/query/compile"
	"github.com/krotik/latticedb/values"
)

func openTestDB(t *testing.T, opts Options) *DB {
	t.Helper()
	d, cleanup, err := CreateTemporary(opts)
	if err != nil {
		t.Fatalf("CreateTemporary() = %v", err)
	}
	t.Cleanup(cleanup)
	return d
}

func TestRegisterPropertyRejectsDuplicateAlias(t *testing.T) {
	d := openTestDB(t, Options{})

	w, err := d.BeginWrite()
	if err != nil {
		t.Fatalf("BeginWrite() = %v", err)
	}

	if _, err := w.RegisterProperty("name", nil); err != nil {
		t.Fatalf("RegisterProperty(name) = %v", err)
	}
	if _, err := w.RegisterProperty("name", nil); err == nil {
		t.Fatalf("RegisterProperty(name) again succeeded, want ErrAliasAlreadyExists")
	}
	if err := w.Rollback(); err != nil {
		t.Fatalf("Rollback() = %v", err)
	}
}

func TestSaveGraphsParallelThenSearchAttribute(t *testing.T) {
	d := openTestDB(t, Options{WorkerPoolSize: 2})

	w, err := d.BeginWrite()
	if err != nil {
		t.Fatalf("BeginWrite() = %v", err)
	}

	nameProp, err := w.RegisterProperty("name", nil)
	if err != nil {
		t.Fatalf("RegisterProperty() = %v", err)
	}
	followsLabel, err := w.RegisterProperty("follows", nil)
	if err != nil {
		t.Fatalf("RegisterProperty() = %v", err)
	}

	b := graph.NewBuilder()
	alice := b.NewVertex()
	bob := b.NewVertex()
	if err := b.AddAttribute(alice, nameProp, values.FromString("alice")); err != nil {
		t.Fatalf("AddAttribute() = %v", err)
	}
	if err := b.AddAttribute(bob, nameProp, values.FromString("bob")); err != nil {
		t.Fatalf("AddAttribute() = %v", err)
	}
	if _, err := b.NewEdge(alice, followsLabel, bob); err != nil {
		t.Fatalf("NewEdge() = %v", err)
	}

	if err := w.SaveGraphsParallel([]*graph.Builder{b}); err != nil {
		t.Fatalf("SaveGraphsParallel() = %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit() = %v", err)
	}

	r := d.BeginRead()

	qb := query.NewBuilder()
	match, err := qb.MatchAttr(nameProp, values.FromString("alice"))
	if err != nil {
		t.Fatalf("MatchAttr() = %v", err)
	}
	qb.SetRoot(match)

	w2, err := d.BeginWrite()
	if err != nil {
		t.Fatalf("BeginWrite() = %v", err)
	}
	queryID, err := w2.SaveQuery(qb, "find-alice", nil)
	if err != nil {
		t.Fatalf("SaveQuery() = %v", err)
	}
	if err := w2.Commit(); err != nil {
		t.Fatalf("Commit() = %v", err)
	}

	pq, err := r.PreparedQuery(queryID)
	if err != nil {
		t.Fatalf("PreparedQuery() = %v", err)
	}

	ids, err := r.Search(pq)
	if err != nil {
		t.Fatalf("Search() = %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("Search(name=alice) = %v, want exactly one vertex", ids)
	}

	aliceID, err := r.GraphIDForVertex(ids[0])
	if err != nil {
		t.Fatalf("GraphIDForVertex() = %v", err)
	}
	_ = aliceID // just confirming the vertex->graph map entry exists
}

func TestSearchOutgoingEdgeTraversal(t *testing.T) {
	d := openTestDB(t, Options{})

	w, err := d.BeginWrite()
	if err != nil {
		t.Fatalf("BeginWrite() = %v", err)
	}
	nameProp, _ := w.RegisterProperty("name", nil)
	followsLabel, _ := w.RegisterProperty("follows", nil)

	b := graph.NewBuilder()
	alice := b.NewVertex()
	bob := b.NewVertex()
	carol := b.NewVertex()
	b.AddAttribute(alice, nameProp, values.FromString("alice"))
	b.AddAttribute(bob, nameProp, values.FromString("bob"))
	b.AddAttribute(carol, nameProp, values.FromString("carol"))
	b.NewEdge(alice, followsLabel, bob)
	b.NewEdge(alice, followsLabel, carol)

	if err := w.SaveGraphsParallel([]*graph.Builder{b}); err != nil {
		t.Fatalf("SaveGraphsParallel() = %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit() = %v", err)
	}

	qb := query.NewBuilder()
	source, _ := qb.MatchAttr(nameProp, values.FromString("alice"))
	followed, err := qb.MatchOutgoing(followsLabel, source)
	if err != nil {
		t.Fatalf("MatchOutgoing() = %v", err)
	}
	qb.SetRoot(followed)

	w2, _ := d.BeginWrite()
	qid, err := w2.SaveQuery(qb, "alice-follows", nil)
	if err != nil {
		t.Fatalf("SaveQuery() = %v", err)
	}
	if err := w2.Commit(); err != nil {
		t.Fatalf("Commit() = %v", err)
	}

	r := d.BeginRead()
	pq, err := r.PreparedQuery(qid)
	if err != nil {
		t.Fatalf("PreparedQuery() = %v", err)
	}
	ids, err := r.Search(pq)
	if err != nil {
		t.Fatalf("Search() = %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Search(alice follows) = %v, want two vertices", ids)
	}
}

func TestLoadGraphRoundTripAndReCommit(t *testing.T) {
	d := openTestDB(t, Options{GraphCacheSize: 16})

	w, err := d.BeginWrite()
	if err != nil {
		t.Fatalf("BeginWrite() = %v", err)
	}
	ageProp, _ := w.RegisterProperty("age", nil)

	b := graph.NewBuilder()
	v := b.NewVertex()
	b.AddAttribute(v, ageProp, values.FromUint64(30))

	if err := w.SaveGraphsParallel([]*graph.Builder{b}); err != nil {
		t.Fatalf("SaveGraphsParallel() = %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit() = %v", err)
	}

	r := d.BeginRead()
	graphID, err := r.GraphIDForVertex(0)
	if err != nil {
		t.Fatalf("GraphIDForVertex(0) = %v", err)
	}

	reloaded, err := r.LoadGraph(graphID)
	if err != nil {
		t.Fatalf("LoadGraph() = %v", err)
	}

	var attrs []uint64
	reloaded.IterVertices(func(_ graph.VertexHandle, vd *graph.VertexData) {
		for _, a := range vd.Attributes {
			attrs = append(attrs, a.Property)
		}
	})
	sort.Slice(attrs, func(i, j int) bool { return attrs[i] < attrs[j] })
	if len(attrs) != 1 || attrs[0] != ageProp {
		t.Fatalf("reloaded attrs = %v, want [%d]", attrs, ageProp)
	}

	// Loading the same graph twice exercises the read-through cache path.
	if _, err := r.LoadGraph(graphID); err != nil {
		t.Fatalf("second LoadGraph() = %v", err)
	}

	// Re-committing the reloaded builder unchanged should be a no-op.
	w2, err := d.BeginWrite()
	if err != nil {
		t.Fatalf("BeginWrite() = %v", err)
	}
	if err := w2.SaveGraphsParallel([]*graph.Builder{reloaded}); err != nil {
		t.Fatalf("SaveGraphsParallel(unchanged reload) = %v", err)
	}
	if err := w2.Commit(); err != nil {
		t.Fatalf("Commit() = %v", err)
	}
}

// TestSearchTripleIntersectionPicksSmallestSeed exercises spec.md §8's
// S2 scenario: two wide attributes and one narrow one, conjoined. The
// cardinality-aware evaluator must still land on the narrow result
// regardless of argument order.
func TestSearchTripleIntersectionPicksSmallestSeed(t *testing.T) {
	d := openTestDB(t, Options{})

	w, err := d.BeginWrite()
	if err != nil {
		t.Fatalf("BeginWrite() = %v", err)
	}
	bigA, _ := w.RegisterProperty("big_a", nil)
	bigB, _ := w.RegisterProperty("big_b", nil)
	small, _ := w.RegisterProperty("small", nil)

	const total = 200
	const narrow = 5

	b := graph.NewBuilder()
	for i := 0; i < total; i++ {
		v := b.NewVertex()
		if err := b.AddAttribute(v, bigA, values.FromUint64(1)); err != nil {
			t.Fatalf("AddAttribute(big_a) = %v", err)
		}
		if err := b.AddAttribute(v, bigB, values.FromUint64(1)); err != nil {
			t.Fatalf("AddAttribute(big_b) = %v", err)
		}
		if i < narrow {
			if err := b.AddAttribute(v, small, values.FromUint64(1)); err != nil {
				t.Fatalf("AddAttribute(small) = %v", err)
			}
		}
	}

	if err := w.SaveGraphsParallel([]*graph.Builder{b}); err != nil {
		t.Fatalf("SaveGraphsParallel() = %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit() = %v", err)
	}

	qb := query.NewBuilder()
	ma, err := qb.MatchAttr(bigA, values.FromUint64(1))
	if err != nil {
		t.Fatalf("MatchAttr(big_a) = %v", err)
	}
	mb, err := qb.MatchAttr(bigB, values.FromUint64(1))
	if err != nil {
		t.Fatalf("MatchAttr(big_b) = %v", err)
	}
	ms, err := qb.MatchAttr(small, values.FromUint64(1))
	if err != nil {
		t.Fatalf("MatchAttr(small) = %v", err)
	}
	root, err := qb.GroupAnd([]query.NodeHandle{ma, mb, ms})
	if err != nil {
		t.Fatalf("GroupAnd() = %v", err)
	}
	qb.SetRoot(root)

	pq, err := compile.Compile(qb)
	if err != nil {
		t.Fatalf("compile() = %v", err)
	}

	r := d.BeginRead()
	ids, err := r.Search(pq)
	if err != nil {
		t.Fatalf("Search() = %v", err)
	}
	if len(ids) != narrow {
		t.Fatalf("Search(triple intersection) = %v, want %d results", ids, narrow)
	}
}

// TestSearchDifference exercises spec.md §8's S6 scenario: a \ b over
// two overlapping attribute matches.
func TestSearchDifference(t *testing.T) {
	d := openTestDB(t, Options{})

	w, err := d.BeginWrite()
	if err != nil {
		t.Fatalf("BeginWrite() = %v", err)
	}
	aProp, _ := w.RegisterProperty("a", nil)
	bProp, _ := w.RegisterProperty("b", nil)

	b := graph.NewBuilder()
	vs := make([]graph.VertexHandle, 10)
	for i := range vs {
		vs[i] = b.NewVertex()
	}
	// vertices 0-6 carry a=1; vertices 4-9 carry b=1 (overlap on 4-6).
	for i := 0; i <= 6; i++ {
		if err := b.AddAttribute(vs[i], aProp, values.FromUint64(1)); err != nil {
			t.Fatalf("AddAttribute(a) = %v", err)
		}
	}
	for i := 4; i <= 9; i++ {
		if err := b.AddAttribute(vs[i], bProp, values.FromUint64(1)); err != nil {
			t.Fatalf("AddAttribute(b) = %v", err)
		}
	}

	if err := w.SaveGraphsParallel([]*graph.Builder{b}); err != nil {
		t.Fatalf("SaveGraphsParallel() = %v", err)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("Commit() = %v", err)
	}

	qb := query.NewBuilder()
	ma, err := qb.MatchAttr(aProp, values.FromUint64(1))
	if err != nil {
		t.Fatalf("MatchAttr(a) = %v", err)
	}
	mb, err := qb.MatchAttr(bProp, values.FromUint64(1))
	if err != nil {
		t.Fatalf("MatchAttr(b) = %v", err)
	}
	diff, err := qb.Difference(ma, mb)
	if err != nil {
		t.Fatalf("Difference() = %v", err)
	}
	qb.SetRoot(diff)

	pq, err := compile.Compile(qb)
	if err != nil {
		t.Fatalf("compile() = %v", err)
	}

	r := d.BeginRead()
	ids, err := r.Search(pq)
	if err != nil {
		t.Fatalf("Search() = %v", err)
	}
	if len(ids) != 4 {
		t.Fatalf("Search(a \\ b) = %v, want 4 results (vertices 0-3)", ids)
	}
}
