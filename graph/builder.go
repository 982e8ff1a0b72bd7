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
Package graph contains the in-memory graph staging model (spec.md §4.2)
and the diff engine that reconciles a staged Builder against its prior
persisted PreparedGraph (spec.md §4.3).

Builder

A Builder holds two generational arenas, one for vertices and one for
edges. It is either empty (a fresh graph) or was loaded from a
PreparedGraph via FromPrepared, in which case vertices and edges are
re-inserted in persisted order so that an arena slot's index matches
its position in the persisted arrays - the positional correspondence
the diff engine relies on.

Diff

CommitDataFromBuilder walks a Builder against the PreparedGraph it was
loaded from (if any) and produces a GraphCommitData: a new canonical
PreparedGraph plus the four index delta multisets described in
spec.md §4.3. It is safe to call concurrently across independent
Builders (see db.Writer.SaveGraphsParallel).
*/
package graph

import (
	"github.com/krotik/latticedb/arena"
	"github.com/krotik/latticedb/properties"
	"github.com/krotik/latticedb/values"
)

/*
VertexHandle references a staged vertex.
*/
type VertexHandle struct {
	h arena.Handle
}

/*
EdgeHandle references a staged edge.
*/
type EdgeHandle struct {
	h arena.Handle
}

/*
AttrPair is a (property, value) attribute entry.
*/
type AttrPair struct {
	Property properties.ID
	Value    values.Primitive
}

/*
VertexData is the staged state of one vertex.
*/
type VertexData struct {
	GlobalID   *uint64 // nil until the vertex is first persisted
	Attributes []AttrPair
	Incoming   []EdgeHandle
	Outgoing   []EdgeHandle
}

/*
EdgeData is the staged state of one edge.
*/
type EdgeData struct {
	From  VertexHandle
	To    VertexHandle
	Label properties.ID
}

/*
OldGraphData is the prior persisted graph a Builder was loaded from.
*/
type OldGraphData struct {
	GraphID uint64
	Graph   *PreparedGraph
}

/*
Builder is a staged, mutable graph. The zero value is not usable; use
NewBuilder or FromPrepared.
*/
type Builder struct {
	newVertexCount uint64
	oldGraphData   *OldGraphData
	vertices       *arena.Arena[VertexData]
	edges          *arena.Arena[EdgeData]
}

/*
NewBuilder creates an empty graph builder.
*/
func NewBuilder() *Builder {
	return &Builder{
		vertices: arena.New[VertexData](),
		edges:    arena.New[EdgeData](),
	}
}

/*
NewVertex allocates an empty vertex and returns its handle.
*/
func (b *Builder) NewVertex() VertexHandle {
	b.newVertexCount++
	h := b.vertices.Add(VertexData{})
	return VertexHandle{h}
}

/*
RemoveVertex removes a vertex and every edge attached to it (both
incoming and outgoing). Errors with ErrVertexNotFound if the handle is
stale. If the vertex was new in this staging session (no prior global
id), the new-vertex counter is decremented.
*/
func (b *Builder) RemoveVertex(h VertexHandle) error {
	removed, ok := b.vertices.Remove(h.h)
	if !ok {
		return errVertexNotFound()
	}
	if removed.GlobalID == nil {
		b.newVertexCount--
	}

	edges := append(append([]EdgeHandle{}, removed.Incoming...), removed.Outgoing...)
	for _, e := range edges {
		_ = b.RemoveEdge(e) // self-loops appear twice; the second removal is a harmless miss
	}
	return nil
}

/*
GetVertex returns the vertex data for h, or nil if h is stale.
*/
func (b *Builder) GetVertex(h VertexHandle) *VertexData {
	return b.vertices.Get(h.h)
}

/*
NewEdge creates an edge (from, label, to) and cross-links it into both
endpoints' edge lists. Both endpoints must already exist.
*/
func (b *Builder) NewEdge(from VertexHandle, label properties.ID, to VertexHandle) (EdgeHandle, error) {
	if !b.vertices.Contains(from.h) {
		return EdgeHandle{}, errVertexNotFound()
	}
	toVertex := b.vertices.Get(to.h)
	if toVertex == nil {
		return EdgeHandle{}, errVertexNotFound()
	}

	eh := EdgeHandle{b.edges.Add(EdgeData{From: from, To: to, Label: label})}

	toVertex.Incoming = append(toVertex.Incoming, eh)
	fromVertex := b.vertices.Get(from.h)
	fromVertex.Outgoing = append(fromVertex.Outgoing, eh)
	return eh, nil
}

/*
RemoveEdge unlinks an edge from both endpoints (swap-remove; edge
order within a vertex's edge lists is not observable) and removes it
from the arena.
*/
func (b *Builder) RemoveEdge(h EdgeHandle) error {
	edge, ok := b.edges.Remove(h.h)
	if !ok {
		return errEdgeNotFound()
	}

	if from := b.vertices.Get(edge.From.h); from != nil {
		from.Outgoing = swapRemoveEdge(from.Outgoing, h)
	}
	if to := b.vertices.Get(edge.To.h); to != nil {
		to.Incoming = swapRemoveEdge(to.Incoming, h)
	}
	return nil
}

func swapRemoveEdge(list []EdgeHandle, h EdgeHandle) []EdgeHandle {
	for i, e := range list {
		if e == h {
			last := len(list) - 1
			list[i] = list[last]
			return list[:last]
		}
	}
	return list
}

/*
GetEdge returns the edge data for h, or nil if h is stale.
*/
func (b *Builder) GetEdge(h EdgeHandle) *EdgeData {
	return b.edges.Get(h.h)
}

/*
AddAttribute adds a (property, value) attribute to the vertex
referenced by h. The value is validated per values.Primitive.Verify.
*/
func (b *Builder) AddAttribute(h VertexHandle, property properties.ID, v values.Value) error {
	vertex := b.vertices.Get(h.h)
	if vertex == nil {
		return errVertexNotFound()
	}
	prim := v.ToPrimitive()
	if err := prim.Verify(); err != nil {
		return err
	}
	vertex.Attributes = append(vertex.Attributes, AttrPair{Property: property, Value: prim})
	return nil
}

/*
SetEdgeSource reassigns an edge's "from" endpoint, moving the edge from
the old source's outgoing list to the new source's.
*/
func (b *Builder) SetEdgeSource(h EdgeHandle, from VertexHandle) error {
	edge := b.edges.Get(h.h)
	if edge == nil {
		return errEdgeNotFound()
	}
	newFrom := b.vertices.Get(from.h)
	if newFrom == nil {
		return errVertexNotFound()
	}
	if oldFrom := b.vertices.Get(edge.From.h); oldFrom != nil {
		oldFrom.Outgoing = swapRemoveEdge(oldFrom.Outgoing, h)
	}
	newFrom.Outgoing = append(newFrom.Outgoing, h)
	edge.From = from
	return nil
}

/*
SetEdgeDestination reassigns an edge's "to" endpoint, moving the edge
from the old target's incoming list to the new target's.
*/
func (b *Builder) SetEdgeDestination(h EdgeHandle, to VertexHandle) error {
	edge := b.edges.Get(h.h)
	if edge == nil {
		return errEdgeNotFound()
	}
	newTo := b.vertices.Get(to.h)
	if newTo == nil {
		return errVertexNotFound()
	}
	if oldTo := b.vertices.Get(edge.To.h); oldTo != nil {
		oldTo.Incoming = swapRemoveEdge(oldTo.Incoming, h)
	}
	newTo.Incoming = append(newTo.Incoming, h)
	edge.To = to
	return nil
}

/*
SetEdgeLabel reassigns an edge's label.
*/
func (b *Builder) SetEdgeLabel(h EdgeHandle, label properties.ID) error {
	edge := b.edges.Get(h.h)
	if edge == nil {
		return errEdgeNotFound()
	}
	edge.Label = label
	return nil
}

/*
VertexGlobalID returns the persisted global id of a vertex, or nil if
it has never been persisted.
*/
func (b *Builder) VertexGlobalID(h VertexHandle) (*uint64, error) {
	vertex := b.vertices.Get(h.h)
	if vertex == nil {
		return nil, errVertexNotFound()
	}
	return vertex.GlobalID, nil
}

/*
IterVertices calls fn for every staged vertex, in arena order.
*/
func (b *Builder) IterVertices(fn func(VertexHandle, *VertexData)) {
	b.vertices.Iter(func(h arena.Handle, v *VertexData) {
		fn(VertexHandle{h}, v)
	})
}

/*
IterEdges calls fn for every staged edge, in arena order.
*/
func (b *Builder) IterEdges(fn func(EdgeHandle, *EdgeData)) {
	b.edges.Iter(func(h arena.Handle, e *EdgeData) {
		fn(EdgeHandle{h}, e)
	})
}

/*
CountNewVertices returns the number of vertices created in this
session that have never been persisted.
*/
func (b *Builder) CountNewVertices() uint64 {
	return b.newVertexCount
}

/*
OldGraphID returns the id of the prior persisted graph this builder
was loaded from, and whether one exists.
*/
func (b *Builder) OldGraphID() (uint64, bool) {
	if b.oldGraphData == nil {
		return 0, false
	}
	return b.oldGraphData.GraphID, true
}

/*
FromPrepared reconstructs a Builder from a previously persisted
PreparedGraph, re-inserting vertices and edges in persisted order so
arena index == persisted array index (the contract the diff engine
relies on).
*/
func FromPrepared(graphID uint64, g *PreparedGraph) *Builder {
	b := NewBuilder()
	idToHandle := make(map[uint64]VertexHandle, len(g.Vertices))

	for _, v := range g.Vertices {
		id := v.ID
		attrs := make([]AttrPair, len(v.Attrs))
		copy(attrs, v.Attrs)
		h := b.vertices.Add(VertexData{GlobalID: &id, Attributes: attrs})
		idToHandle[v.ID] = VertexHandle{h}
	}

	for _, e := range g.Edges {
		from := idToHandle[e.From]
		to := idToHandle[e.To]
		eh := EdgeHandle{b.edges.Add(EdgeData{From: from, To: to, Label: e.Label})}

		fromVertex := b.vertices.Get(from.h)
		fromVertex.Outgoing = append(fromVertex.Outgoing, eh)
		toVertex := b.vertices.Get(to.h)
		toVertex.Incoming = append(toVertex.Incoming, eh)
	}

	b.oldGraphData = &OldGraphData{GraphID: graphID, Graph: g}
	return b
}
