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
	"bytes"
	"testing"

	"github.com/krotik/latticedb/values"
)

func samplePreparedGraph() *PreparedGraph {
	return &PreparedGraph{
		GraphID: 9,
		Vertices: []PreparedVertex{
			{ID: 1, Attrs: []AttrPair{
				{Property: 1, Value: values.Uint(42)},
				{Property: 2, Value: values.Text("hello")},
			}},
			{ID: 2},
		},
		Edges: []PreparedEdge{{From: 1, Label: 3, To: 2}},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	g := samplePreparedGraph()

	got, err := DecodePreparedGraph(g.Encode())
	if err != nil {
		t.Fatalf("DecodePreparedGraph() = %v", err)
	}

	if got.GraphID != g.GraphID {
		t.Fatalf("GraphID = %d, want %d", got.GraphID, g.GraphID)
	}
	if len(got.Vertices) != 2 || len(got.Edges) != 1 {
		t.Fatalf("decoded shape = %+v", got)
	}
	if got.Vertices[0].Attrs[0].Value.U != 42 {
		t.Fatalf("vertex 0 attr 0 = %+v, want uint 42", got.Vertices[0].Attrs[0])
	}
	if got.Vertices[0].Attrs[1].Value.S != "hello" {
		t.Fatalf("vertex 0 attr 1 = %+v, want text hello", got.Vertices[0].Attrs[1])
	}
	if got.Edges[0] != g.Edges[0] {
		t.Fatalf("edge = %+v, want %+v", got.Edges[0], g.Edges[0])
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	g := samplePreparedGraph()
	a := g.Encode()
	b := g.Encode()
	if !bytes.Equal(a, b) {
		t.Fatalf("two encodes of the same graph produced different bytes")
	}
}

func TestDecodeTruncatedDataErrors(t *testing.T) {
	g := samplePreparedGraph()
	raw := g.Encode()
	if _, err := DecodePreparedGraph(raw[:len(raw)/2]); err == nil {
		t.Fatalf("DecodePreparedGraph(truncated) succeeded, want error")
	}
}
