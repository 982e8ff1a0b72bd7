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

import "github.com/krotik/latticedb/errs"

func errVertexNotFound() error {
	return errs.New(errs.ErrVertexNotFound, "")
}

func errEdgeNotFound() error {
	return errs.New(errs.ErrEdgeNotFound, "")
}
