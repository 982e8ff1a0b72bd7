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
Package values holds the tagged primitive value type stored on vertex
attributes and matched against in queries, plus its hashing and bounds
validation (spec.md §3).

Primitive

A Primitive is either an unsigned integer in [0, 2^56) or UTF-8 text.
Hash partitions a 64-bit domain by a type tag in the high byte:

	0x01 | (value & 0x00FFFFFFFFFFFFFF)           for an integer
	0x02 | (xxhash(text) & 0x00FFFFFFFFFFFFFF)    for text

Integer hashes are exact. Text hashes are truncated to 56 bits and may
collide; query results are defined modulo that collision class.
*/
package values

import (
	"github.com/cespare/xxhash/v2"

	"github.com/krotik/latticedb/errs"
)

/*
Kind tags which variant a Primitive holds.
*/
type Kind uint8

const (
	KindUint Kind = iota
	KindText
)

const (
	tagUint uint64 = 0x01 << 56
	tagText uint64 = 0x02 << 56

	valueMask  uint64 = 0x00FFFFFFFFFFFFFF
	maxUintVal uint64 = valueMask // 2^56 - 1
)

/*
Primitive is a tagged scalar attribute value.
*/
type Primitive struct {
	Kind Kind
	U    uint64
	S    string
}

/*
Uint constructs an unsigned-integer Primitive.
*/
func Uint(v uint64) Primitive {
	return Primitive{Kind: KindUint, U: v}
}

/*
Text constructs a text Primitive.
*/
func Text(v string) Primitive {
	return Primitive{Kind: KindText, S: v}
}

/*
Verify checks the value against the primitive's domain. Integers must
fit in 56 bits; text has no bound.
*/
func (p Primitive) Verify() error {
	if p.Kind == KindUint && p.U > maxUintVal {
		return errs.New(errs.ErrNumberTooBig, "value does not fit in the 56-bit unsigned domain")
	}
	return nil
}

/*
Hash computes the 64-bit, type-tagged fingerprint used as the index
key's value component.
*/
func (p Primitive) Hash() uint64 {
	switch p.Kind {
	case KindUint:
		return tagUint | (p.U & valueMask)
	case KindText:
		return tagText | (xxhash.Sum64String(p.S) & valueMask)
	default:
		return 0
	}
}

/*
Value is implemented by Go types that convert to a Primitive. Mirrors
eliasdb's attribute setters, which accept plain Go values on a node.
*/
type Value interface {
	ToPrimitive() Primitive
}

type uintValue uint64

func (v uintValue) ToPrimitive() Primitive { return Uint(uint64(v)) }

type textValue string

func (v textValue) ToPrimitive() Primitive { return Text(string(v)) }

/*
FromUint64 wraps a uint64 as a Value.
*/
func FromUint64(v uint64) Value { return uintValue(v) }

/*
FromUint32 wraps a uint32 as a Value.
*/
func FromUint32(v uint32) Value { return uintValue(v) }

/*
FromUint16 wraps a uint16 as a Value.
*/
func FromUint16(v uint16) Value { return uintValue(v) }

/*
FromUint8 wraps a uint8 as a Value.
*/
func FromUint8(v uint8) Value { return uintValue(v) }

/*
FromString wraps a string as a Value.
*/
func FromString(v string) Value { return textValue(v) }
