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
Package arena provides a generational arena: an append-mostly vector of
slots addressed by a (generation, index) Handle which is safe against
slot reuse.

Arena

Add fills a freed slot if one is available (preserving its index and
bumping its generation only on removal, never on insert), otherwise it
appends a new slot. Remove clears the slot's payload, bumps its
generation and returns the index to the free list. Accessors fail-soft:
a stale Handle (wrong generation, or an index beyond the backing vector)
returns false/zero-value rather than panicking.

The diff engine (graph.CommitDataFromBuilder) additionally needs to
observe whether a slot was refilled during staging without going through
the generational check - GetAtIndex exposes that raw, index-only view.
*/
package arena

/*
Handle is a generational reference into an Arena slot.
*/
type Handle struct {
	Generation uint32
	Index      int
}

type slot[T any] struct {
	item       T
	occupied   bool
	generation uint32
}

/*
Arena is a generational arena over items of type T.
*/
type Arena[T any] struct {
	slots []slot[T]
	freed []int
}

/*
New creates an empty Arena.
*/
func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

/*
Add inserts item into the arena and returns its Handle.
*/
func (a *Arena[T]) Add(item T) Handle {
	if n := len(a.freed); n > 0 {
		idx := a.freed[n-1]
		a.freed = a.freed[:n-1]
		s := &a.slots[idx]
		s.item = item
		s.occupied = true
		return Handle{Generation: s.generation, Index: idx}
	}

	idx := len(a.slots)
	a.slots = append(a.slots, slot[T]{item: item, occupied: true})
	return Handle{Generation: 0, Index: idx}
}

/*
Remove removes the item referenced by h and returns it. Returns false
if h is stale or out of bounds.
*/
func (a *Arena[T]) Remove(h Handle) (T, bool) {
	var zero T
	if h.Index < 0 || h.Index >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[h.Index]
	if !s.occupied || s.generation != h.Generation {
		return zero, false
	}

	item := s.item
	s.item = zero
	s.occupied = false
	s.generation++
	a.freed = append(a.freed, h.Index)
	return item, true
}

/*
Get returns a pointer to the item referenced by h, or nil if h is
stale or out of bounds. The pointer is valid until the next Add/Remove.
*/
func (a *Arena[T]) Get(h Handle) *T {
	if h.Index < 0 || h.Index >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.Index]
	if !s.occupied || s.generation != h.Generation {
		return nil
	}
	return &s.item
}

/*
Contains reports whether h currently resolves to a live item.
*/
func (a *Arena[T]) Contains(h Handle) bool {
	return a.Get(h) != nil
}

/*
Len returns the number of backing slots, including freed ones. This is
the size used by the diff engine to separate "positions that existed
in the prior persisted form" from "purely new positions".
*/
func (a *Arena[T]) Len() int {
	return len(a.slots)
}

/*
GetAtIndex returns a pointer to whatever currently occupies slot idx,
ignoring generation. Used by the diff engine to detect a delete-then-refill
within one staging session (spec.md §4.3 case "deleted and refilled").
*/
func (a *Arena[T]) GetAtIndex(idx int) *T {
	if idx < 0 || idx >= len(a.slots) {
		return nil
	}
	s := &a.slots[idx]
	if !s.occupied {
		return nil
	}
	return &s.item
}

/*
HandleAtIndex returns the live Handle for slot idx, or false if the
slot is empty or out of bounds.
*/
func (a *Arena[T]) HandleAtIndex(idx int) (Handle, bool) {
	if idx < 0 || idx >= len(a.slots) {
		return Handle{}, false
	}
	s := &a.slots[idx]
	if !s.occupied {
		return Handle{}, false
	}
	return Handle{Generation: s.generation, Index: idx}, true
}

/*
Iter calls fn for every occupied slot in index order.
*/
func (a *Arena[T]) Iter(fn func(Handle, *T)) {
	for idx := range a.slots {
		s := &a.slots[idx]
		if s.occupied {
			fn(Handle{Generation: s.generation, Index: idx}, &s.item)
		}
	}
}

/*
IterFrom calls fn for every occupied slot starting at index start, in
index order. Used to iterate the "guaranteed new" tail of an arena once
the positions shared with a prior persisted form have been processed.
*/
func (a *Arena[T]) IterFrom(start int, fn func(Handle, *T)) {
	if start < 0 {
		start = 0
	}
	for idx := start; idx < len(a.slots); idx++ {
		s := &a.slots[idx]
		if s.occupied {
			fn(Handle{Generation: s.generation, Index: idx}, &s.item)
		}
	}
}
