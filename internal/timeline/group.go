package timeline

import (
	"github.com/imkarma/zedd/internal/slice"
)

type groupEntry[K comparable] struct {
	key K
	pos int
}

// Group partitions a timeline's slices by a key derived from each slice.
// Bookkeeping lives in a side map keyed by slice ID; removal within a group
// is swap-with-last, so group order is not meaningful.
type Group[K comparable] struct {
	keyOf  func(*slice.Slice) K
	groups map[K][]*slice.Slice
	info   map[uint64]groupEntry[K]
}

// NewGroup builds a grouping over tl's current slices and keeps it up to
// date through tl's change hooks.
func NewGroup[K comparable](tl *Timeline, keyOf func(*slice.Slice) K) *Group[K] {
	g := &Group[K]{
		keyOf:  keyOf,
		groups: map[K][]*slice.Slice{},
		info:   map[uint64]groupEntry[K]{},
	}
	for _, s := range tl.slices {
		g.add(s)
	}
	tl.OnSliceAdded(g.add)
	tl.OnSliceRemoved(g.remove)
	tl.OnSliceChanged(func(c Change) {
		e, ok := g.info[c.Slice.ID()]
		if !ok {
			return
		}
		if g.keyOf(c.Slice) != e.key {
			g.remove(c.Slice)
			g.add(c.Slice)
		}
	})
	return g
}

// Get returns a copy of the slices in group k.
func (g *Group[K]) Get(k K) []*slice.Slice {
	members := g.groups[k]
	out := make([]*slice.Slice, len(members))
	copy(out, members)
	return out
}

// Count returns the size of group k.
func (g *Group[K]) Count(k K) int {
	return len(g.groups[k])
}

// Keys returns the keys of all non-empty groups.
func (g *Group[K]) Keys() []K {
	keys := make([]K, 0, len(g.groups))
	for k := range g.groups {
		keys = append(keys, k)
	}
	return keys
}

// KeyOf returns the group s is filed under.
func (g *Group[K]) KeyOf(s *slice.Slice) (K, bool) {
	e, ok := g.info[s.ID()]
	return e.key, ok
}

func (g *Group[K]) add(s *slice.Slice) {
	k := g.keyOf(s)
	g.info[s.ID()] = groupEntry[K]{key: k, pos: len(g.groups[k])}
	g.groups[k] = append(g.groups[k], s)
}

func (g *Group[K]) remove(s *slice.Slice) {
	e, ok := g.info[s.ID()]
	if !ok {
		return
	}
	delete(g.info, s.ID())
	members := g.groups[e.key]
	if len(members) == 1 {
		delete(g.groups, e.key)
		return
	}
	last := len(members) - 1
	if e.pos != last {
		moved := members[last]
		members[e.pos] = moved
		g.info[moved.ID()] = groupEntry[K]{key: e.key, pos: e.pos}
	}
	members[last] = nil
	g.groups[e.key] = members[:last]
}
