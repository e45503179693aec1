// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import "sort"

// PathMap maps [PathKey] to V: an ordered, wildcard-aware trie keyed by
// path components. Each node may hold both an exact value (the value
// for the key ending here with Wildcard=false) and a wildcard value
// (the value for the key ending here with Wildcard=true).
//
// A *PathMap is not safe for concurrent Add calls racing with Find
// calls; the framework builds each PathMap once (during start) and
// treats it as immutable thereafter (see Concurrency & Resource Model).
type PathMap[V any] struct {
	root *pathMapNode[V]
}

type pathMapNode[V any] struct {
	children    map[string]*pathMapNode[V]
	exact       V
	hasExact    bool
	wildcard    V
	hasWildcard bool
}

// NewPathMap returns an empty [*PathMap].
func NewPathMap[V any]() *PathMap[V] {
	return &PathMap[V]{root: &pathMapNode[V]{}}
}

// Add binds key to value. It fails with [ErrAlreadyBound] if an
// identical key (same components and wildcard flag) is already present.
func (m *PathMap[V]) Add(key PathKey, value V) error {
	node := m.root
	for _, c := range key.Components {
		if node.children == nil {
			node.children = make(map[string]*pathMapNode[V])
		}
		child, ok := node.children[c]
		if !ok {
			child = &pathMapNode[V]{}
			node.children[c] = child
		}
		node = child
	}
	if key.Wildcard {
		if node.hasWildcard {
			return NewError(KindAlreadyBound, "duplicate wildcard PathMap key: "+key.String(), nil)
		}
		node.wildcard = value
		node.hasWildcard = true
		return nil
	}
	if node.hasExact {
		return NewError(KindAlreadyBound, "duplicate exact PathMap key: "+key.String(), nil)
	}
	node.exact = value
	node.hasExact = true
	return nil
}

// FindResult is the outcome of a successful [PathMap.Find].
type FindResult[V any] struct {
	// Key is the matched key as stored in the map.
	Key PathKey

	// Value is the value bound to Key.
	Value V

	// Extra is the unmatched suffix of the target's components.
	Extra []string
}

// FindExact returns the value bound to the exact (non-wildcard) key
// equal to target, if any.
func (m *PathMap[V]) FindExact(target PathKey) (value V, ok bool) {
	node := m.root
	for _, c := range target.Components {
		if node.children == nil {
			var zero V
			return zero, false
		}
		child, exists := node.children[c]
		if !exists {
			var zero V
			return zero, false
		}
		node = child
	}
	if !target.Wildcard && node.hasExact {
		return node.exact, true
	}
	if target.Wildcard && node.hasWildcard {
		return node.wildcard, true
	}
	var zero V
	return zero, false
}

// Find performs the best-match lookup described by the spec: walk nodes
// along target's components, deepest match wins. If, at the terminal
// node, an exact value exists and target is itself non-wildcard with no
// remaining components, that wins outright. Otherwise, the deepest
// ancestor visited during the walk that holds a wildcard value wins,
// with Extra set to the remaining (unconsumed) tail of target's
// components. Exact always beats wildcard; among wildcards, a longer
// matched prefix beats a shorter one (the walk naturally prefers the
// deepest one seen).
func (m *PathMap[V]) Find(target PathKey) (FindResult[V], bool) {
	node := m.root
	var (
		bestNode       *pathMapNode[V]
		bestDepth      int
		haveWildcard   bool
	)
	if node.hasWildcard {
		bestNode, bestDepth, haveWildcard = node, 0, true
	}

	depth := 0
	for _, c := range target.Components {
		if node.children == nil {
			break
		}
		child, ok := node.children[c]
		if !ok {
			break
		}
		node = child
		depth++
		if node.hasWildcard {
			bestNode, bestDepth, haveWildcard = node, depth, true
		}
		if depth == len(target.Components) {
			// fully consumed target's components at this node
			if !target.Wildcard && node.hasExact {
				return FindResult[V]{
					Key:   PathKey{Components: target.Components, Wildcard: false},
					Value: node.exact,
					Extra: nil,
				}, true
			}
		}
	}

	if !haveWildcard {
		var zero FindResult[V]
		return zero, false
	}
	return FindResult[V]{
		Key:   PathKey{Components: target.Components[:bestDepth], Wildcard: true},
		Value: bestNode.wildcard,
		Extra: append([]string(nil), target.Components[bestDepth:]...),
	}, true
}

// Entry is one (key, value) pair yielded by [PathMap.Entries], in
// deterministic component-lexicographic order.
type Entry[V any] struct {
	Key   PathKey
	Value V
}

// Entries returns every bound (key, value) pair in deterministic,
// component-lexicographic order: children are visited in sorted key
// order, and at each node the wildcard entry (if any) is yielded before
// descending further, followed eventually by the exact entry at the
// point its full path has been visited.
func (m *PathMap[V]) Entries() []Entry[V] {
	var out []Entry[V]
	var walk func(node *pathMapNode[V], prefix []string)
	walk = func(node *pathMapNode[V], prefix []string) {
		if node.hasWildcard {
			out = append(out, Entry[V]{Key: PathKey{Components: append([]string(nil), prefix...), Wildcard: true}, Value: node.wildcard})
		}
		if node.hasExact {
			out = append(out, Entry[V]{Key: PathKey{Components: append([]string(nil), prefix...), Wildcard: false}, Value: node.exact})
		}
		if node.children == nil {
			return
		}
		keys := make([]string, 0, len(node.children))
		for k := range node.children {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(node.children[k], append(prefix, k))
		}
	}
	walk(m.root, nil)
	return out
}
