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
Package compile turns a query.Builder's node DAG into a PreparedQuery: a
topologically ordered node list plus a root index (spec.md §4.5, §4.6).

Compile runs an iterative post-order walk (no recursion, so pathological
chains of Edge nodes cannot blow the Go stack) and performs common
subexpression elimination along the way: two nodes that are structurally
identical given their already-compiled children compile to the same
output index. This is what spec.md §8 calls compiler idempotence -
compiling the same builder twice, or compiling two builders that only
differ in node-creation order but describe the same query, produces
byte-identical PreparedQuery encodings.
*/
package compile

import (
	"fmt"
	"sort"

	"github.com/krotik/latticedb/codec"
	"github.com/krotik/latticedb/errs"
	"github.com/krotik/latticedb/properties"
	"github.com/krotik/latticedb/query"
	"github.com/krotik/latticedb/values"
)

/*
NodeKind tags a compiled Node's variant. Numeric values are part of the
wire format and must not be renumbered.
*/
type NodeKind uint8

const (
	NodeUnion NodeKind = iota
	NodeIntersect
	NodeDifference
	NodeAttribute
	NodeEdgeOut
	NodeEdgeIn
	NodeSavedQuery
)

/*
Node is one entry of a PreparedQuery's topologically ordered node list.
Children/Include/Exclude/Target reference earlier indices in that list.
*/
type Node struct {
	Kind NodeKind

	Children []int

	Include int
	Exclude int

	Property properties.ID
	Value    values.Primitive

	Label  properties.ID
	Target int

	SavedQueryID uint64
}

/*
PreparedQuery is the compiled, evaluator-ready form of a query.Builder.
*/
type PreparedQuery struct {
	Nodes []Node
	Root  int
}

/*
Compile compiles b's designated root into a PreparedQuery. Returns
ErrRootNotFound if no root was set.
*/
func Compile(b *query.Builder) (*PreparedQuery, error) {
	root, ok := b.Root()
	if !ok {
		return nil, errs.New(errs.ErrRootNotFound, "")
	}

	c := &compiler{
		builder: b,
		memo:    make(map[string]int),
	}

	rootIdx, err := c.compile(root)
	if err != nil {
		return nil, err
	}

	return &PreparedQuery{Nodes: c.nodes, Root: rootIdx}, nil
}

type compiler struct {
	builder *query.Builder
	nodes   []Node
	memo    map[string]int
}

/*
frame is one entry of the explicit work stack the iterative post-order
walk uses in place of recursion.
*/
type frame struct {
	handle       query.NodeHandle
	childrenDone bool
}

/*
compile performs an iterative post-order DFS from root: a node is only
emitted once every handle it references has already been compiled, so
every Node's Children/Include/Exclude/Target index refers backward into
the already-built Nodes slice.
*/
func (c *compiler) compile(root query.NodeHandle) (int, error) {
	// resolved[h] holds the output index once a handle has been compiled.
	resolved := make(map[query.NodeHandle]int)
	stack := []frame{{handle: root}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if _, done := resolved[top.handle]; done {
			stack = stack[:len(stack)-1]
			continue
		}

		node := c.builder.Get(top.handle)
		if node == nil {
			return 0, errs.New(errs.ErrQueryNodeNotFound, "")
		}

		deps := dependencies(node)

		if !top.childrenDone {
			top.childrenDone = true
			pushed := false
			for _, d := range deps {
				if _, done := resolved[d]; !done {
					stack = append(stack, frame{handle: d})
					pushed = true
				}
			}
			if pushed {
				continue
			}
		}

		idx, err := c.emit(node, resolved)
		if err != nil {
			return 0, err
		}
		resolved[top.handle] = idx
		stack = stack[:len(stack)-1]
	}

	return resolved[root], nil
}

func dependencies(n *query.Node) []query.NodeHandle {
	switch n.Kind {
	case query.KindUnion, query.KindIntersect:
		return n.Children
	case query.KindDifference:
		return []query.NodeHandle{n.Include, n.Exclude}
	case query.KindEdge:
		return []query.NodeHandle{n.Target}
	default:
		return nil
	}
}

/*
emit builds the compiled Node for n (whose dependencies are already in
resolved) and interns it via structuralKey, returning the existing index
on a cache hit.
*/
func (c *compiler) emit(n *query.Node, resolved map[query.NodeHandle]int) (int, error) {
	out := Node{Kind: kindOf(n.Kind), Include: -1, Exclude: -1, Target: -1}

	switch n.Kind {
	case query.KindUnion, query.KindIntersect:
		out.Children = make([]int, len(n.Children))
		for i, ch := range n.Children {
			out.Children[i] = resolved[ch]
		}
		out.Children = sortDedupInts(out.Children)
	case query.KindDifference:
		out.Include = resolved[n.Include]
		out.Exclude = resolved[n.Exclude]
	case query.KindAttribute:
		out.Property = n.Property
		out.Value = n.Value
	case query.KindEdge:
		out.Label = n.Label
		out.Target = resolved[n.Target]
		if n.Dir == query.Incoming {
			out.Kind = NodeEdgeIn
		} else {
			out.Kind = NodeEdgeOut
		}
	case query.KindSavedQuery:
		out.SavedQueryID = n.SavedQueryID
	}

	key := structuralKey(out)
	if idx, ok := c.memo[key]; ok {
		return idx, nil
	}

	idx := len(c.nodes)
	c.nodes = append(c.nodes, out)
	c.memo[key] = idx
	return idx, nil
}

/*
sortDedupInts sorts ascending and removes duplicates, so Union/Intersect
nodes that reference the same children in a different order (or more
than once - a diamond in the DAG) intern to the same structuralKey.
*/
func sortDedupInts(in []int) []int {
	sort.Ints(in)
	out := in[:0]
	for i, v := range in {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func kindOf(k query.Kind) NodeKind {
	switch k {
	case query.KindUnion:
		return NodeUnion
	case query.KindIntersect:
		return NodeIntersect
	case query.KindDifference:
		return NodeDifference
	case query.KindAttribute:
		return NodeAttribute
	case query.KindSavedQuery:
		return NodeSavedQuery
	default:
		return NodeEdgeOut
	}
}

/*
structuralKey returns a string uniquely identifying out's shape given
that any child/include/exclude/target indices it references are
themselves already-interned output positions. Two nodes with the same
key are guaranteed interchangeable, which is what makes CSE sound here.
*/
func structuralKey(n Node) string {
	switch n.Kind {
	case NodeUnion, NodeIntersect:
		return fmt.Sprintf("%d:%v", n.Kind, n.Children)
	case NodeDifference:
		return fmt.Sprintf("%d:%d,%d", n.Kind, n.Include, n.Exclude)
	case NodeAttribute:
		return fmt.Sprintf("%d:%d:%d", n.Kind, n.Property, n.Value.Hash())
	case NodeEdgeOut, NodeEdgeIn:
		return fmt.Sprintf("%d:%d:%d", n.Kind, n.Label, n.Target)
	case NodeSavedQuery:
		return fmt.Sprintf("%d:%d", n.Kind, n.SavedQueryID)
	default:
		return ""
	}
}

/*
Encode serializes q using the same deterministic framing as
graph.PreparedGraph.Encode, so that two structurally-identical queries
compile to byte-identical output (spec.md §8's compiler idempotence).
*/
func (q *PreparedQuery) Encode() []byte {
	w := codec.NewWriter()
	w.U64(uint64(len(q.Nodes)))
	for _, n := range q.Nodes {
		w.Byte(byte(n.Kind))
		switch n.Kind {
		case NodeUnion, NodeIntersect:
			w.U64(uint64(len(n.Children)))
			for _, ch := range n.Children {
				w.U64(uint64(ch))
			}
		case NodeDifference:
			w.U64(uint64(n.Include))
			w.U64(uint64(n.Exclude))
		case NodeAttribute:
			w.U64(n.Property)
			switch n.Value.Kind {
			case values.KindUint:
				w.Byte(0)
				w.U64(n.Value.U)
			case values.KindText:
				w.Byte(1)
				w.Bytes([]byte(n.Value.S))
			}
		case NodeEdgeOut, NodeEdgeIn:
			w.U64(n.Label)
			w.U64(uint64(n.Target))
		case NodeSavedQuery:
			w.U64(n.SavedQueryID)
		}
	}
	w.U64(uint64(q.Root))
	return w.Out()
}

/*
Decode deserializes a PreparedQuery previously produced by Encode.
*/
func Decode(data []byte) (*PreparedQuery, error) {
	r := codec.NewReader(data)
	count, err := r.U64()
	if err != nil {
		return nil, wrapDecode(err)
	}

	q := &PreparedQuery{Nodes: make([]Node, count)}
	for i := range q.Nodes {
		n := &q.Nodes[i]
		kindByte, err := r.Byte()
		if err != nil {
			return nil, wrapDecode(err)
		}
		n.Kind = NodeKind(kindByte)
		n.Include, n.Exclude, n.Target = -1, -1, -1

		switch n.Kind {
		case NodeUnion, NodeIntersect:
			childCount, err := r.U64()
			if err != nil {
				return nil, wrapDecode(err)
			}
			n.Children = make([]int, childCount)
			for j := range n.Children {
				v, err := r.U64()
				if err != nil {
					return nil, wrapDecode(err)
				}
				n.Children[j] = int(v)
			}
		case NodeDifference:
			inc, err := r.U64()
			if err != nil {
				return nil, wrapDecode(err)
			}
			exc, err := r.U64()
			if err != nil {
				return nil, wrapDecode(err)
			}
			n.Include, n.Exclude = int(inc), int(exc)
		case NodeAttribute:
			prop, err := r.U64()
			if err != nil {
				return nil, wrapDecode(err)
			}
			n.Property = prop
			tag, err := r.Byte()
			if err != nil {
				return nil, wrapDecode(err)
			}
			if tag == 0 {
				u, err := r.U64()
				if err != nil {
					return nil, wrapDecode(err)
				}
				n.Value = values.Uint(u)
			} else {
				b, err := r.Bytes()
				if err != nil {
					return nil, wrapDecode(err)
				}
				n.Value = values.Text(string(b))
			}
		case NodeEdgeOut, NodeEdgeIn:
			label, err := r.U64()
			if err != nil {
				return nil, wrapDecode(err)
			}
			target, err := r.U64()
			if err != nil {
				return nil, wrapDecode(err)
			}
			n.Label, n.Target = label, int(target)
		case NodeSavedQuery:
			id, err := r.U64()
			if err != nil {
				return nil, wrapDecode(err)
			}
			n.SavedQueryID = id
		}
	}

	root, err := r.U64()
	if err != nil {
		return nil, wrapDecode(err)
	}
	q.Root = int(root)

	return q, nil
}

func wrapDecode(err error) error {
	return errs.New(errs.ErrDecode, err.Error())
}
