package libcanon

import (
	"bytes"

	"github.com/emirpasic/gods/trees/redblacktree"

	"github.com/canon-systems/gocanon/gocanon"
)

// GraphSet is an in-memory collection of graphs deduplicated by canonical
// form. Iteration order is canonical-key order, so it is deterministic across
// runs and insertion orders. Not safe for concurrent use.
type GraphSet struct {
	byKey *redblacktree.Tree // canonical key []byte -> *Graph (canonized copy)
}

func NewGraphSet() *GraphSet {
	return &GraphSet{
		byKey: redblacktree.NewWith(func(a, b any) int {
			return bytes.Compare(a.([]byte), b.([]byte))
		}),
	}
}

// TryAddGraph adds X's canonical form if not yet present, returning whether it
// was added. X itself is not retained; the set keeps its own canonized copy.
func (set *GraphSet) TryAddGraph(X gocanon.GraphState) (bool, error) {
	key, err := X.CanonicalKey()
	if err != nil {
		return false, err
	}
	if _, found := set.byKey.Get(key); found {
		return false, nil
	}

	canonical := X.MakeCopy()
	if err := canonical.Canonize(); err != nil {
		canonical.Reclaim()
		return false, err
	}
	set.byKey.Put(append([]byte(nil), key...), canonical)
	return true, nil
}

// Contains returns whether a graph isomorphic to X is in the set.
func (set *GraphSet) Contains(X gocanon.GraphState) (bool, error) {
	key, err := X.CanonicalKey()
	if err != nil {
		return false, err
	}
	_, found := set.byKey.Get(key)
	return found, nil
}

// Len returns the number of distinct canonical forms held.
func (set *GraphSet) Len() int {
	return set.byKey.Size()
}

// ForEach visits every held graph in canonical-key order. The visited graphs
// are owned by the set; the callback must copy what it keeps. Returning false
// stops the walk.
func (set *GraphSet) ForEach(fn func(X gocanon.GraphState) bool) {
	it := set.byKey.Iterator()
	for it.Next() {
		if !fn(it.Value().(gocanon.GraphState)) {
			return
		}
	}
}
