/*
 * LatticeDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package store

import (
	"bytes"
	"testing"
)

func TestU64KeyRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 255, 256, 1 << 40, ^uint64(0)} {
		if got := DecodeU64(U64Key(v)); got != v {
			t.Fatalf("DecodeU64(U64Key(%d)) = %d", v, got)
		}
	}
}

func TestU64KeyByteOrderMatchesNumericOrder(t *testing.T) {
	small := U64Key(1)
	big := U64Key(1 << 40)
	if bytes.Compare(small, big) >= 0 {
		t.Fatalf("U64Key(1) >= U64Key(2^40) lexicographically, breaks ascending-key commit order")
	}
}

func TestPairKeySortsByFirstFieldThenSecond(t *testing.T) {
	k1 := PairKey(1, 999)
	k2 := PairKey(2, 0)
	if bytes.Compare(k1, k2) >= 0 {
		t.Fatalf("PairKey(1,999) >= PairKey(2,0), composite key should sort by a first")
	}

	k3 := PairKey(5, 1)
	k4 := PairKey(5, 2)
	if bytes.Compare(k3, k4) >= 0 {
		t.Fatalf("PairKey(5,1) >= PairKey(5,2), should sort by b within equal a")
	}
}

func TestAllBucketsHasNoDuplicates(t *testing.T) {
	seen := make(map[string]bool)
	for _, b := range AllBuckets {
		if seen[string(b)] {
			t.Fatalf("duplicate bucket name %q in AllBuckets", b)
		}
		seen[string(b)] = true
	}
}
