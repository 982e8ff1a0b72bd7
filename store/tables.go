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
Package store is the ordered, transactional key-value layer LatticeDB
is built on (spec.md §4.4). It wraps go.etcd.io/bbolt, whose single
writer / many readers MVCC transactions and byte-ordered B+tree buckets
match the contract spec.md assumes: keys sort lexicographically, and
that sort must agree with numeric order for the ascending-key-order
write-back commit spec.md §4.4 requires - hence every multi-field key
below is packed big-endian, not via the codec package's little-endian
blob framing.
*/
package store

import "encoding/binary"

// Bucket names. Prefixed so a LatticeDB store can share a bbolt file
// with unrelated application buckets without colliding.
var (
	BucketSequences      = []byte("_lattice_seq")
	BucketGraphs         = []byte("_lattice_graphs")
	BucketVertexGraphMap = []byte("_lattice_vert_graph_map")
	BucketProperties     = []byte("_lattice_props")
	BucketPropNames      = []byte("_lattice_prop_name_to_id")
	BucketQueries        = []byte("_lattice_saved_queries")
	BucketQueryNames     = []byte("_lattice_query_names")
	BucketQueryMetas     = []byte("_lattice_query_metas")
	BucketIndexScalar    = []byte("_lattice_idx_s")
	BucketIndexForward   = []byte("_lattice_idx_f")
	BucketIndexReverse   = []byte("_lattice_idx_r")
)

// AllBuckets lists every bucket a store must have created before first
// use; see Store.init.
var AllBuckets = [][]byte{
	BucketSequences,
	BucketGraphs,
	BucketVertexGraphMap,
	BucketProperties,
	BucketPropNames,
	BucketQueries,
	BucketQueryNames,
	BucketQueryMetas,
	BucketIndexScalar,
	BucketIndexForward,
	BucketIndexReverse,
}

// Sequence keys, one per monotonic id counter, all sharing BucketSequences.
const (
	SeqGraphID byte = iota + 1
	SeqVertexID
	SeqPropertyID
	SeqQueryID
)

/*
U64Key big-endian-encodes v so that bbolt's lexicographic byte order
agrees with numeric order.
*/
func U64Key(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

/*
PairKey big-endian-encodes the two-field composite keys the index
buckets use: (a, b) -> a's 8 bytes then b's 8 bytes, which sorts first
by a, then by b - the order Writer.flushCache relies on when it drains
the write-back cache ascending.
*/
func PairKey(a, b uint64) []byte {
	var k [16]byte
	binary.BigEndian.PutUint64(k[0:8], a)
	binary.BigEndian.PutUint64(k[8:16], b)
	return k[:]
}

/*
DecodeU64 reverses U64Key.
*/
func DecodeU64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
