/*
 * LatticeDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graph

import (
	"sort"

	"github.com/krotik/latticedb/arena"
	"github.com/krotik/latticedb/values"
)

/*
AttrDelta is a (vertex, property, value-hash) index delta entry.
*/
type AttrDelta struct {
	Vertex   uint64
	Property uint64
	Hash     uint64
}

/*
EdgeDelta is a (from, label, to) index delta entry.
*/
type EdgeDelta struct {
	From  uint64
	Label uint64
	To    uint64
}

/*
GraphCommitData is the diff engine's output: the new canonical
PreparedGraph plus the four delta multisets spec.md §4.3 names.
*/
type GraphCommitData struct {
	GraphID         uint64
	PreparedGraph   *PreparedGraph
	AddAttrs        []AttrDelta
	RemAttrs        []AttrDelta
	AddEdges        []EdgeDelta
	RemEdges        []EdgeDelta
	DeletedVertices []uint64
}

/*
CommitDataFromBuilder compares a staged Builder against the
PreparedGraph it was loaded from (if any) and produces the minimal
index delta (spec.md §4.3). startID is the first free global vertex
id; graphID is this graph's id. The builder relies on positional
correspondence between its arena indices and the prior persisted
array indices - see Builder/FromPrepared doc comments - and must not
be reused once diffed.
*/
func CommitDataFromBuilder(b *Builder, startID uint64, graphID uint64) *GraphCommitData {
	cursor := startID

	var oldVertices []PreparedVertex
	var oldEdges []PreparedEdge
	if b.oldGraphData != nil {
		oldVertices = b.oldGraphData.Graph.Vertices
		oldEdges = b.oldGraphData.Graph.Edges
	}

	var addAttrs, remAttrs []AttrDelta
	var addEdges, remEdges []EdgeDelta
	var deletedVertices []uint64
	var procVertices []PreparedVertex
	var procEdges []PreparedEdge

	idxToGlobal := make(map[int]uint64, len(oldVertices)+b.vertices.Len())

	newVerticesStart := len(oldVertices)
	for idx, oldVertex := range oldVertices {
		continued := b.vertices.Get(arena.Handle{Generation: 0, Index: idx})
		if continued != nil {
			// vertex was not deleted
			globalID := *continued.GlobalID

			if attrsEqual(continued.Attributes, oldVertex.Attrs) {
				idxToGlobal[idx] = globalID
				procVertices = append(procVertices, PreparedVertex{ID: globalID, Attrs: oldVertex.Attrs})
				continue
			}

			newAttrs := sortedAttrsCopy(continued.Attributes)
			mergeAttrDiff(globalID, oldVertex.Attrs, newAttrs, &addAttrs, &remAttrs)

			idxToGlobal[idx] = globalID
			procVertices = append(procVertices, PreparedVertex{ID: globalID, Attrs: newAttrs})
			continue
		}

		// vertex was deleted
		deletedVertices = append(deletedVertices, oldVertex.ID)
		for _, a := range oldVertex.Attrs {
			remAttrs = append(remAttrs, AttrDelta{Vertex: oldVertex.ID, Property: a.Property, Hash: a.Value.Hash()})
		}

		if refilled := b.vertices.GetAtIndex(idx); refilled != nil {
			// a new vertex was created in the freed slot during this session
			newAttrs := sortedAttrsCopy(refilled.Attributes)
			globalID := cursor
			cursor++

			for _, a := range newAttrs {
				addAttrs = append(addAttrs, AttrDelta{Vertex: globalID, Property: a.Property, Hash: a.Value.Hash()})
			}
			idxToGlobal[idx] = globalID
			procVertices = append(procVertices, PreparedVertex{ID: globalID, Attrs: newAttrs})
		}
	}

	b.vertices.IterFrom(newVerticesStart, func(h arena.Handle, v *VertexData) {
		globalID := cursor
		cursor++

		newAttrs := sortedAttrsCopy(v.Attributes)
		for _, a := range newAttrs {
			addAttrs = append(addAttrs, AttrDelta{Vertex: globalID, Property: a.Property, Hash: a.Value.Hash()})
		}
		idxToGlobal[h.Index] = globalID
		procVertices = append(procVertices, PreparedVertex{ID: globalID, Attrs: newAttrs})
	})

	newEdgesStart := len(oldEdges)
	for idx, oldEdge := range oldEdges {
		continued := b.edges.Get(arena.Handle{Generation: 0, Index: idx})
		if continued != nil {
			from := resolveGlobal(idxToGlobal, continued.From.h.Index)
			to := resolveGlobal(idxToGlobal, continued.To.h.Index)
			label := continued.Label

			if from == oldEdge.From && label == oldEdge.Label && to == oldEdge.To {
				procEdges = append(procEdges, oldEdge)
				continue
			}

			remEdges = append(remEdges, EdgeDelta{From: oldEdge.From, Label: oldEdge.Label, To: oldEdge.To})
			addEdges = append(addEdges, EdgeDelta{From: from, Label: label, To: to})
			procEdges = append(procEdges, PreparedEdge{From: from, Label: label, To: to})
			continue
		}

		// edge was deleted
		remEdges = append(remEdges, EdgeDelta{From: oldEdge.From, Label: oldEdge.Label, To: oldEdge.To})

		if refilled := b.edges.GetAtIndex(idx); refilled != nil {
			from := resolveGlobal(idxToGlobal, refilled.From.h.Index)
			to := resolveGlobal(idxToGlobal, refilled.To.h.Index)
			addEdges = append(addEdges, EdgeDelta{From: from, Label: refilled.Label, To: to})
			procEdges = append(procEdges, PreparedEdge{From: from, Label: refilled.Label, To: to})
		}
	}

	b.edges.IterFrom(newEdgesStart, func(_ arena.Handle, e *EdgeData) {
		from := resolveGlobal(idxToGlobal, e.From.h.Index)
		to := resolveGlobal(idxToGlobal, e.To.h.Index)
		addEdges = append(addEdges, EdgeDelta{From: from, Label: e.Label, To: to})
		procEdges = append(procEdges, PreparedEdge{From: from, Label: e.Label, To: to})
	})

	return &GraphCommitData{
		GraphID: graphID,
		PreparedGraph: &PreparedGraph{
			GraphID:  graphID,
			Vertices: procVertices,
			Edges:    procEdges,
		},
		AddAttrs:        addAttrs,
		RemAttrs:        remAttrs,
		AddEdges:        addEdges,
		RemEdges:        remEdges,
		DeletedVertices: deletedVertices,
	}
}

func resolveGlobal(m map[int]uint64, idx int) uint64 {
	id, ok := m[idx]
	if !ok {
		panic("latticedb: graph diff invariant violated - vertex endpoint missing a global id")
	}
	return id
}

func attrsEqual(a, b []AttrPair) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Property != b[i].Property || !primitiveExactEqual(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

func primitiveExactEqual(x, y values.Primitive) bool {
	if x.Kind != y.Kind {
		return false
	}
	if x.Kind == values.KindUint {
		return x.U == y.U
	}
	return x.S == y.S
}

/*
sortedAttrsCopy returns a copy of attrs stably sorted by
(property_id, value_hash), per spec.md §4.3.
*/
func sortedAttrsCopy(attrs []AttrPair) []AttrPair {
	out := make([]AttrPair, len(attrs))
	copy(out, attrs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Property != out[j].Property {
			return out[i].Property < out[j].Property
		}
		return out[i].Value.Hash() < out[j].Value.Hash()
	})
	return out
}

/*
mergeAttrDiff walks old (assumed already sorted by (property, hash) -
CommitDataFromBuilder writes every persisted vertex's attrs in that
order, and FromPrepared keeps it) and newAttrs (sorted by sortedAttrsCopy) with
a two-pointer merge, appending adds/removals for keys present on only
one side.
*/
func mergeAttrDiff(vertexID uint64, old, newAttrs []AttrPair, addAttrs, remAttrs *[]AttrDelta) {
	i, j := 0, 0
	for i < len(old) || j < len(newAttrs) {
		switch {
		case j >= len(newAttrs):
			*remAttrs = append(*remAttrs, AttrDelta{Vertex: vertexID, Property: old[i].Property, Hash: old[i].Value.Hash()})
			i++
		case i >= len(old):
			*addAttrs = append(*addAttrs, AttrDelta{Vertex: vertexID, Property: newAttrs[j].Property, Hash: newAttrs[j].Value.Hash()})
			j++
		default:
			oldKeyProp, oldKeyHash := old[i].Property, old[i].Value.Hash()
			newKeyProp, newKeyHash := newAttrs[j].Property, newAttrs[j].Value.Hash()
			switch {
			case oldKeyProp == newKeyProp && oldKeyHash == newKeyHash:
				i++
				j++
			case oldKeyProp < newKeyProp || (oldKeyProp == newKeyProp && oldKeyHash < newKeyHash):
				*remAttrs = append(*remAttrs, AttrDelta{Vertex: vertexID, Property: oldKeyProp, Hash: oldKeyHash})
				i++
			default:
				*addAttrs = append(*addAttrs, AttrDelta{Vertex: vertexID, Property: newKeyProp, Hash: newKeyHash})
				j++
			}
		}
	}
}
