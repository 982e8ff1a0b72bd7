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
Package query contains the query builder: a DAG of query nodes held in
a generational arena and referenced by NodeHandle (spec.md §4.5). The
builder enforces only that referenced handles resolve; it cannot
introduce cycles, since every node references handles created earlier
in the same arena - the compiler (package query/compile) relies on
that acyclicity.
*/
package query

import (
	"github.com/krotik/latticedb/arena"
	"github.com/krotik/latticedb/errs"
	"github.com/krotik/latticedb/properties"
	"github.com/krotik/latticedb/values"
)

/*
Direction is the traversal direction of an Edge query node.
*/
type Direction uint8

const (
	Outgoing Direction = iota
	Incoming
)

/*
NodeHandle references a node in a QueryBuilder's arena.
*/
type NodeHandle struct {
	h arena.Handle
}

/*
Kind tags a Node's variant.
*/
type Kind uint8

const (
	KindUnion Kind = iota
	KindIntersect
	KindDifference
	KindAttribute
	KindEdge
	KindSavedQuery
)

/*
Node is a tagged query-DAG node. Exactly the fields relevant to Kind
are populated; the compiler and evaluator exhaustively switch on Kind.
*/
type Node struct {
	Kind Kind

	// Union / Intersect
	Children []NodeHandle

	// Difference
	Include NodeHandle
	Exclude NodeHandle

	// Attribute
	Property properties.ID
	Value    values.Primitive

	// Edge
	Dir    Direction
	Label  properties.ID
	Target NodeHandle

	// SavedQuery
	SavedQueryID uint64
}

/*
Builder builds a query node DAG and designates a root.
*/
type Builder struct {
	nodes *arena.Arena[Node]
	root  *NodeHandle
}

/*
NewBuilder creates an empty query builder.
*/
func NewBuilder() *Builder {
	return &Builder{nodes: arena.New[Node]()}
}

/*
MatchAttr adds a leaf node matching vertices whose attribute property
hashes to value's hash.
*/
func (b *Builder) MatchAttr(property properties.ID, v values.Value) (NodeHandle, error) {
	prim := v.ToPrimitive()
	if err := prim.Verify(); err != nil {
		return NodeHandle{}, err
	}
	h := b.nodes.Add(Node{Kind: KindAttribute, Property: property, Value: prim})
	return NodeHandle{h}, nil
}

/*
MatchOutgoing adds a node matching every vertex reached from subject
by a label edge.
*/
func (b *Builder) MatchOutgoing(label properties.ID, subject NodeHandle) (NodeHandle, error) {
	if !b.nodes.Contains(subject.h) {
		return NodeHandle{}, errNodeNotFound()
	}
	h := b.nodes.Add(Node{Kind: KindEdge, Dir: Outgoing, Label: label, Target: subject})
	return NodeHandle{h}, nil
}

/*
MatchIncoming adds a node matching every vertex reaching target by a
label edge.
*/
func (b *Builder) MatchIncoming(label properties.ID, target NodeHandle) (NodeHandle, error) {
	if !b.nodes.Contains(target.h) {
		return NodeHandle{}, errNodeNotFound()
	}
	h := b.nodes.Add(Node{Kind: KindEdge, Dir: Incoming, Label: label, Target: target})
	return NodeHandle{h}, nil
}

/*
GroupAnd adds a set-intersection node over children.
*/
func (b *Builder) GroupAnd(children []NodeHandle) (NodeHandle, error) {
	if err := b.checkAll(children); err != nil {
		return NodeHandle{}, err
	}
	h := b.nodes.Add(Node{Kind: KindIntersect, Children: append([]NodeHandle{}, children...)})
	return NodeHandle{h}, nil
}

/*
GroupOr adds a set-union node over children.
*/
func (b *Builder) GroupOr(children []NodeHandle) (NodeHandle, error) {
	if err := b.checkAll(children); err != nil {
		return NodeHandle{}, err
	}
	h := b.nodes.Add(Node{Kind: KindUnion, Children: append([]NodeHandle{}, children...)})
	return NodeHandle{h}, nil
}

/*
Difference adds a set-difference node: include \ exclude.
*/
func (b *Builder) Difference(include, exclude NodeHandle) (NodeHandle, error) {
	if !b.nodes.Contains(include.h) || !b.nodes.Contains(exclude.h) {
		return NodeHandle{}, errNodeNotFound()
	}
	h := b.nodes.Add(Node{Kind: KindDifference, Include: include, Exclude: exclude})
	return NodeHandle{h}, nil
}

/*
MatchSaved adds a node referencing a precomputed saved-query result
(spec.md §4.7, §4.5).
*/
func (b *Builder) MatchSaved(queryID uint64) NodeHandle {
	h := b.nodes.Add(Node{Kind: KindSavedQuery, SavedQueryID: queryID})
	return NodeHandle{h}
}

func (b *Builder) checkAll(handles []NodeHandle) error {
	for _, h := range handles {
		if !b.nodes.Contains(h.h) {
			return errNodeNotFound()
		}
	}
	return nil
}

/*
SetRoot designates handle as the query's result node.
*/
func (b *Builder) SetRoot(h NodeHandle) {
	root := h
	b.root = &root
}

/*
Root returns the designated root node, if any.
*/
func (b *Builder) Root() (NodeHandle, bool) {
	if b.root == nil {
		return NodeHandle{}, false
	}
	return *b.root, true
}

/*
Get returns the node data for h, or nil if h is stale.
*/
func (b *Builder) Get(h NodeHandle) *Node {
	return b.nodes.Get(h.h)
}

func errNodeNotFound() error {
	return errs.New(errs.ErrQueryNodeNotFound, "")
}
