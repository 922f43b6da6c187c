package libcanon

import (
	"bytes"

	"github.com/canon-systems/gocanon/gocanon"
)

// searchFrame is one node of the individualization-refinement tree.
// A frame exclusively owns its partition; it is released when the frame pops.
type searchFrame struct {
	P        *partition
	vtx      int32   // vertex individualized to create this frame; -1 at the root
	cands    []int32 // target cell candidates, ascending
	next     int     // next candidate index
	tried    []int32 // candidates already expanded here
	orb      *orbitSet
	orbEpoch int // generator count orb was built from; -1 means never built
}

// searcher owns all state of one canonicalization call.
type searcher struct {
	sg *sparseGraph
	rf *refiner

	gens     []gocanon.Permutation
	orbits   *orbitSet // orbits under every discovered generator
	genEpoch int

	// First leaf reached, kept for the life of the search: any later leaf
	// whose encoding matches it yields an automorphism.
	firstEnc  []byte
	firstPerm []int32

	// Best leaf under the (invariant path, encoding) order. bestInvPath is the
	// invariant string of every level along the best-known branch; every live
	// node's invariants match its prefix exactly.
	bestEnc     []byte
	bestPerm    []int32
	bestInvPath [][]byte

	path  []int32 // individualized vertices along the current stack
	stack []*searchFrame

	nodeBudget   int64 // 0 means unbounded
	nodesVisited int64
}

func newSearcher(sg *sparseGraph, nodeBudget int64) *searcher {
	return &searcher{
		sg:         sg,
		rf:         newRefiner(sg),
		orbits:     newOrbitSet(sg.Nv),
		nodeBudget: nodeBudget,
	}
}

// run explores the whole tree under pruning. On return bestPerm holds the
// canonical vertex order and gens the discovered automorphism generators.
func (s *searcher) run() error {
	root := newPartition(s.sg.Nv)
	root.assignColors(s.sg.colors)

	var starts []int32
	for i := int32(0); i < s.sg.Nv; i += root.cellLen[i] {
		starts = append(starts, i)
	}
	s.rf.refine(root, starts)

	if keep, err := s.enterNode(root, 0); err != nil {
		return err
	} else if keep {
		s.pushFrame(root, -1)
	}

	for len(s.stack) > 0 {
		f := s.stack[len(s.stack)-1]

		v := s.nextCandidate(f)
		if v < 0 {
			s.popFrame()
			continue
		}
		f.tried = append(f.tried, v)

		child := newPartition(s.sg.Nv)
		child.assignFrom(f.P)
		rest := child.individualize(v)
		active := []int32{child.cellStart[child.pos[v]]}
		if rest < int32(len(child.order)) {
			active = append(active, rest)
		}
		s.rf.refine(child, active)

		keep, err := s.enterNode(child, len(s.stack))
		if err != nil {
			return err
		}
		if keep {
			s.pushFrame(child, v)
		}
	}
	return nil
}

// enterNode scores a freshly refined partition against the best-known branch.
// It returns false when the branch is pruned or the node is a leaf (leaves are
// consumed here and never pushed).
func (s *searcher) enterNode(P *partition, depth int) (keep bool, err error) {
	s.nodesVisited++
	if s.nodeBudget > 0 && s.nodesVisited > s.nodeBudget {
		return false, gocanon.ErrSearchBudget
	}

	inv := P.shape(nil)
	if depth < len(s.bestInvPath) {
		switch cmp := bytes.Compare(inv, s.bestInvPath[depth]); {
		case cmp > 0:
			// Certainly cannot improve on the best leaf.
			return false, nil
		case cmp < 0:
			// This branch beats the incumbent outright: everything best-side
			// below this level is invalidated, though the first leaf is kept
			// for automorphism detection.
			s.bestInvPath = append(s.bestInvPath[:depth], inv)
			s.bestEnc = nil
			s.bestPerm = nil
		}
	} else {
		s.bestInvPath = append(s.bestInvPath, inv)
	}

	if P.isDiscrete() {
		s.onLeaf(P)
		return false, nil
	}
	return true, nil
}

// onLeaf folds a discrete partition into the first/best leaf state, recording
// an automorphism whenever two leaves induce the same relabelled graph.
func (s *searcher) onLeaf(P *partition) {
	enc := s.encodeLeaf(P.order)

	if s.firstEnc == nil {
		s.firstEnc = enc
		s.firstPerm = append([]int32(nil), P.order...)
		s.bestEnc = enc
		s.bestPerm = s.firstPerm
		return
	}

	if bytes.Equal(enc, s.firstEnc) {
		s.recordAutom(s.firstPerm, P.order)
	}

	switch {
	case s.bestEnc == nil:
		s.bestEnc = enc
		s.bestPerm = append([]int32(nil), P.order...)
	default:
		cmp := bytes.Compare(enc, s.bestEnc)
		if cmp == 0 && !bytes.Equal(enc, s.firstEnc) {
			s.recordAutom(s.bestPerm, P.order)
		}
		if cmp < 0 {
			s.bestEnc = enc
			s.bestPerm = append([]int32(nil), P.order...)
		}
	}
}

// encodeLeaf serializes the graph relabelled by the leaf's vertex order:
// the color ranks of the relabelled vertices, then the relabelled adjacency
// matrix row-major, one bit per ordered pair. Smaller byte strings are
// "better"; this ordering is fixed forever since changing it changes every
// canonical form.
func (s *searcher) encodeLeaf(order []int32) []byte {
	Nv := s.sg.Nv
	enc := make([]byte, 0, 2*int(Nv)+(int(Nv)*int(Nv)+7)/8)

	for _, v := range order {
		c := s.sg.colorRank(v)
		enc = append(enc, byte(c>>8), byte(c))
	}

	var acc byte
	nbits := 0
	for _, u := range order {
		for _, v := range order {
			acc <<= 1
			if s.sg.hasEdge(u, v) {
				acc |= 1
			}
			nbits++
			if nbits == 8 {
				enc = append(enc, acc)
				acc, nbits = 0, 0
			}
		}
	}
	if nbits > 0 {
		enc = append(enc, acc<<(8-nbits))
	}
	return enc
}

// recordAutom records the permutation mapping leaf b onto leaf a.
// Both orders induce the same relabelled graph, so the composition is an
// automorphism by construction.
func (s *searcher) recordAutom(a, b []int32) {
	Nv := s.sg.Nv
	g := make(gocanon.Permutation, Nv)
	for i := int32(0); i < Nv; i++ {
		g[b[i]] = gocanon.VtxID(a[i])
	}
	if g.IsIdentity() {
		return
	}
	s.gens = append(s.gens, g)
	s.orbits.mergePerm(g)
	s.genEpoch++
}

// nextCandidate returns the next target-cell vertex to individualize at f, or
// -1 when the frame is exhausted. A candidate is skipped when an automorphism
// fixing f's path pointwise maps it onto a sibling already tried: the two
// subtrees are isomorphic and the earlier one already explored.
func (s *searcher) nextCandidate(f *searchFrame) int32 {
	if f.cands == nil {
		start := f.P.firstNonSingleton()
		cell := f.P.cellVerts(start)
		f.cands = append(make([]int32, 0, len(cell)), cell...)
		sortInt32s(f.cands)
	}

	for f.next < len(f.cands) {
		v := f.cands[f.next]
		f.next++
		if !s.prunedByOrbit(f, v) {
			return v
		}
	}
	return -1
}

func (s *searcher) prunedByOrbit(f *searchFrame, v int32) bool {
	if len(f.tried) == 0 || len(s.gens) == 0 {
		return false
	}

	if f.orbEpoch != s.genEpoch {
		if f.orb == nil {
			f.orb = newOrbitSet(s.sg.Nv)
		} else {
			f.orb.reset()
		}
		for _, g := range s.gens {
			if fixesAll(g, s.path) {
				f.orb.mergePerm(g)
			}
		}
		f.orbEpoch = s.genEpoch
	}

	for _, u := range f.tried {
		if f.orb.sameSet(u, v) {
			return true
		}
	}
	return false
}

func fixesAll(g gocanon.Permutation, verts []int32) bool {
	for _, v := range verts {
		if !g.Fixes(gocanon.VtxID(v)) {
			return false
		}
	}
	return true
}

func (s *searcher) pushFrame(P *partition, vtx int32) {
	f := &searchFrame{
		P:        P,
		vtx:      vtx,
		orbEpoch: -1,
	}
	s.stack = append(s.stack, f)
	if vtx >= 0 {
		s.path = append(s.path, vtx)
	}
}

func (s *searcher) popFrame() {
	f := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	if f.vtx >= 0 {
		s.path = s.path[:len(s.path)-1]
	}
}
