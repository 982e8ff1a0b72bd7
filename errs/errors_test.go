/*
 * LatticeDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package errs

import (
	"errors"
	"testing"
)

func TestErrorsIsSeesThroughWrapper(t *testing.T) {
	err := New(ErrVertexNotFound, "vertex 42")
	if !errors.Is(err, ErrVertexNotFound) {
		t.Fatalf("errors.Is(%v, ErrVertexNotFound) = false, want true", err)
	}
	if errors.Is(err, ErrEdgeNotFound) {
		t.Fatalf("errors.Is(%v, ErrEdgeNotFound) = true, want false", err)
	}
}

func TestErrorStringIncludesDetail(t *testing.T) {
	err := New(ErrPropertyNotFound, "alias \"age\"")
	got := err.Error()
	if got != "property does not exist: alias \"age\"" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestErrorStringWithoutDetail(t *testing.T) {
	err := New(ErrRootNotFound, "")
	if got := err.Error(); got != "query has no root node assigned" {
		t.Fatalf("Error() = %q, want bare kind message", got)
	}
}
