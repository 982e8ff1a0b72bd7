/*
 * LatticeDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package compile

import (
	"bytes"
	"errors"
	"testing"

	"github.com/krotik/latticedb/errs"
	"github.com/krotik/latticedb/query"
	"github.com/krotik/latticedb/values"
)

func TestCompileNoRootErrors(t *testing.T) {
	b := query.NewBuilder()
	if _, err := Compile(b); !errors.Is(err, errs.ErrRootNotFound) {
		t.Fatalf("Compile(no root) = %v, want ErrRootNotFound", err)
	}
}

func TestCompileSimpleAttributeChain(t *testing.T) {
	b := query.NewBuilder()
	a, _ := b.MatchAttr(1, values.FromUint64(7))
	target, _ := b.MatchAttr(2, values.FromUint64(9))
	edge, _ := b.MatchOutgoing(5, target)
	root, _ := b.GroupAnd([]query.NodeHandle{a, edge})
	b.SetRoot(root)

	pq, err := Compile(b)
	if err != nil {
		t.Fatalf("Compile() = %v", err)
	}

	// Every Children/Include/Exclude/Target index must refer strictly
	// backward, since the walk is a post-order DFS: dependencies always
	// compile before the node that references them.
	for i, n := range pq.Nodes {
		for _, c := range n.Children {
			if c >= i {
				t.Fatalf("node %d has forward-referencing child %d", i, c)
			}
		}
		if n.Target >= i {
			t.Fatalf("node %d has forward-referencing target %d", i, n.Target)
		}
	}
	if pq.Root != len(pq.Nodes)-1 {
		t.Fatalf("Root = %d, want last node %d (the GroupAnd itself)", pq.Root, len(pq.Nodes)-1)
	}
}

func TestCompileCSEDedupesIdenticalAttributeNodes(t *testing.T) {
	b := query.NewBuilder()
	a1, _ := b.MatchAttr(1, values.FromUint64(7))
	a2, _ := b.MatchAttr(1, values.FromUint64(7)) // structurally identical, different handle
	root, _ := b.GroupOr([]query.NodeHandle{a1, a2})
	b.SetRoot(root)

	pq, err := Compile(b)
	if err != nil {
		t.Fatalf("Compile() = %v", err)
	}

	// a1 and a2 should have interned to the same compiled node, so the
	// union ends up with exactly one (deduped) child.
	rootNode := pq.Nodes[pq.Root]
	if len(rootNode.Children) != 1 {
		t.Fatalf("union children = %v, want exactly one deduped child", rootNode.Children)
	}
}

func TestCompileCSEIgnoresChildOrderAndDuplicates(t *testing.T) {
	b := query.NewBuilder()
	a, _ := b.MatchAttr(1, values.FromUint64(1))
	c, _ := b.MatchAttr(2, values.FromUint64(2))

	order1, _ := b.GroupAnd([]query.NodeHandle{a, c})
	order2, _ := b.GroupAnd([]query.NodeHandle{c, a, a}) // reversed, plus a duplicate
	root, _ := b.GroupOr([]query.NodeHandle{order1, order2})
	b.SetRoot(root)

	pq, err := Compile(b)
	if err != nil {
		t.Fatalf("Compile() = %v", err)
	}

	rootNode := pq.Nodes[pq.Root]
	if len(rootNode.Children) != 1 {
		t.Fatalf("order1/order2 should have interned to the same node: union children = %v", rootNode.Children)
	}
}

func TestCompileIsIdempotentAndDeterministic(t *testing.T) {
	build := func() *query.Builder {
		b := query.NewBuilder()
		a, _ := b.MatchAttr(1, values.FromUint64(7))
		root, _ := b.GroupAnd([]query.NodeHandle{a})
		b.SetRoot(root)
		return b
	}

	pq1, err := Compile(build())
	if err != nil {
		t.Fatalf("Compile() = %v", err)
	}
	pq2, err := Compile(build())
	if err != nil {
		t.Fatalf("Compile() = %v", err)
	}

	if !bytes.Equal(pq1.Encode(), pq2.Encode()) {
		t.Fatalf("two independently built but structurally identical queries compiled to different bytes")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := query.NewBuilder()
	target, _ := b.MatchAttr(1, values.FromUint64(3))
	edge, _ := b.MatchOutgoing(9, target)
	excl, _ := b.MatchAttr(2, values.FromString("nope"))
	root, _ := b.Difference(edge, excl)
	b.SetRoot(root)

	pq, err := Compile(b)
	if err != nil {
		t.Fatalf("Compile() = %v", err)
	}

	got, err := Decode(pq.Encode())
	if err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	if got.Root != pq.Root || len(got.Nodes) != len(pq.Nodes) {
		t.Fatalf("Decode() = %+v, want %+v", got, pq)
	}
	for i := range got.Nodes {
		if got.Nodes[i].Kind != pq.Nodes[i].Kind {
			t.Fatalf("node %d kind = %v, want %v", i, got.Nodes[i].Kind, pq.Nodes[i].Kind)
		}
	}
}
