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
Package properties holds the property registry's handle type and the
gob-based metadata codec shared by property and saved-query metadata
blobs (spec.md §3, §4.8).
*/
package properties

import (
	"bytes"
	"encoding/gob"

	"github.com/krotik/latticedb/errs"
)

/*
ID is a property's unique, monotonic identifier.
*/
type ID = uint64

/*
QueryMatchID is the reserved property id for the "saved-query match"
virtual attribute (spec.md §3, §4.7). It is the maximum representable
uint64 and is never allocated by the property-id sequence.
*/
const QueryMatchID ID = ^ID(0)

/*
Handle references a registered property (or edge label - the two share
one namespace, as in spec.md's edge triple (from, label_property, to)).
*/
type Handle struct {
	ID ID
}

/*
EncodeMeta gob-encodes a caller-supplied metadata value into the opaque
blob stored in the PROPERTIES/QUERY_METAS tables (spec.md §6). Mirrors
eliasdb's own use of encoding/gob for node attribute values. A nil meta
(no metadata) encodes to an empty blob, which DecodeMeta rejects with
ErrDecode.
*/
func EncodeMeta(meta any) ([]byte, error) {
	if meta == nil {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(meta); err != nil {
		return nil, errs.New(errs.ErrEncode, err.Error())
	}
	return buf.Bytes(), nil
}

/*
DecodeMeta decodes a metadata blob previously produced by EncodeMeta
into out, which must be a pointer.
*/
func DecodeMeta(blob []byte, out any) error {
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(out); err != nil {
		return errs.New(errs.ErrDecode, err.Error())
	}
	return nil
}
