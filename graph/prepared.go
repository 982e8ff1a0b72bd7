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
	"io"

	"github.com/krotik/latticedb/codec"
	"github.com/krotik/latticedb/errs"
	"github.com/krotik/latticedb/properties"
	"github.com/krotik/latticedb/values"
)

/*
PreparedVertex is the persisted form of one vertex.
*/
type PreparedVertex struct {
	ID    uint64
	Attrs []AttrPair
}

/*
PreparedEdge is the persisted form of one edge, addressed by the
global ids of its endpoints (spec.md §3: "Edges are not individually
identified in persistent storage; identity is the triple").
*/
type PreparedEdge struct {
	From  uint64
	Label properties.ID
	To    uint64
}

/*
PreparedGraph is the persisted, serialized form of one committed
graph (spec.md §3, §4.4's GRAPHS table).
*/
type PreparedGraph struct {
	GraphID  uint64
	Vertices []PreparedVertex
	Edges    []PreparedEdge
}

/*
Encode serializes g using a deterministic, length-prefixed binary
framing (spec.md §6) - not encoding/gob, whose wire format is not
byte-stable across structurally-identical values (see SPEC_FULL.md).
*/
func (g *PreparedGraph) Encode() []byte {
	w := codec.NewWriter()
	w.U64(g.GraphID)
	w.U64(uint64(len(g.Vertices)))
	for _, v := range g.Vertices {
		w.U64(v.ID)
		w.U64(uint64(len(v.Attrs)))
		for _, a := range v.Attrs {
			encodeAttr(w, a)
		}
	}
	w.U64(uint64(len(g.Edges)))
	for _, e := range g.Edges {
		w.U64(e.From)
		w.U64(e.Label)
		w.U64(e.To)
	}
	return w.Out()
}

/*
DecodePreparedGraph deserializes a PreparedGraph previously produced by
Encode.
*/
func DecodePreparedGraph(data []byte) (*PreparedGraph, error) {
	r := codec.NewReader(data)
	g := &PreparedGraph{}

	var err error
	if g.GraphID, err = r.U64(); err != nil {
		return nil, wrapDecode(err)
	}
	vCount, err := r.U64()
	if err != nil {
		return nil, wrapDecode(err)
	}
	g.Vertices = make([]PreparedVertex, vCount)
	for i := range g.Vertices {
		v := &g.Vertices[i]
		if v.ID, err = r.U64(); err != nil {
			return nil, wrapDecode(err)
		}
		aCount, err := r.U64()
		if err != nil {
			return nil, wrapDecode(err)
		}
		v.Attrs = make([]AttrPair, aCount)
		for j := range v.Attrs {
			if v.Attrs[j], err = decodeAttr(r); err != nil {
				return nil, wrapDecode(err)
			}
		}
	}

	eCount, err := r.U64()
	if err != nil {
		return nil, wrapDecode(err)
	}
	g.Edges = make([]PreparedEdge, eCount)
	for i := range g.Edges {
		e := &g.Edges[i]
		if e.From, err = r.U64(); err != nil {
			return nil, wrapDecode(err)
		}
		if e.Label, err = r.U64(); err != nil {
			return nil, wrapDecode(err)
		}
		if e.To, err = r.U64(); err != nil {
			return nil, wrapDecode(err)
		}
	}

	return g, nil
}

const (
	kindUintByte byte = 0
	kindTextByte byte = 1
)

func encodeAttr(w *codec.Writer, a AttrPair) {
	w.U64(a.Property)
	switch a.Value.Kind {
	case values.KindUint:
		w.Byte(kindUintByte)
		w.U64(a.Value.U)
	case values.KindText:
		w.Byte(kindTextByte)
		w.Bytes([]byte(a.Value.S))
	}
}

func decodeAttr(r *codec.Reader) (AttrPair, error) {
	var a AttrPair
	var err error
	if a.Property, err = r.U64(); err != nil {
		return a, err
	}
	kind, err := r.Byte()
	if err != nil {
		return a, err
	}
	switch kind {
	case kindUintByte:
		u, err := r.U64()
		if err != nil {
			return a, err
		}
		a.Value = values.Uint(u)
	case kindTextByte:
		b, err := r.Bytes()
		if err != nil {
			return a, err
		}
		a.Value = values.Text(string(b))
	default:
		return a, io.ErrUnexpectedEOF
	}
	return a, nil
}

func wrapDecode(err error) error {
	return errs.New(errs.ErrDecode, err.Error())
}
