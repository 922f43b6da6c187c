package libcanon

import "github.com/canon-systems/gocanon/gocanon"

// orbitSet is a union-find over vertices. Two vertices share a set when some
// composition of recorded automorphisms maps one to the other.
type orbitSet struct {
	parent []int32
	rank   []byte
	count  int32
}

func newOrbitSet(Nv int32) *orbitSet {
	o := &orbitSet{
		parent: make([]int32, Nv),
		rank:   make([]byte, Nv),
		count:  Nv,
	}
	o.reset()
	return o
}

func (o *orbitSet) reset() {
	for i := range o.parent {
		o.parent[i] = int32(i)
		o.rank[i] = 0
	}
	o.count = int32(len(o.parent))
}

func (o *orbitSet) find(v int32) int32 {
	for o.parent[v] != v {
		o.parent[v] = o.parent[o.parent[v]] // path halving
		v = o.parent[v]
	}
	return v
}

func (o *orbitSet) union(a, b int32) {
	ra, rb := o.find(a), o.find(b)
	if ra == rb {
		return
	}
	if o.rank[ra] < o.rank[rb] {
		ra, rb = rb, ra
	}
	o.parent[rb] = ra
	if o.rank[ra] == o.rank[rb] {
		o.rank[ra]++
	}
	o.count--
}

// mergePerm merges v with p(v) for every vertex v.
func (o *orbitSet) mergePerm(p gocanon.Permutation) {
	for v, pv := range p {
		o.union(int32(v), int32(pv))
	}
}

// sameSet returns whether a and b are known to be in one orbit.
func (o *orbitSet) sameSet(a, b int32) bool {
	return o.find(a) == o.find(b)
}

// numSets returns the current number of disjoint sets.
func (o *orbitSet) numSets() int32 {
	return o.count
}
