package libcanon

import (
	"github.com/canon-systems/gocanon/gocanon"
)

// CanonicalResult is the outcome of one canonicalization call.
// It is immutable once returned; the caller owns Graph and should Reclaim it
// when done.
type CanonicalResult struct {
	// Perm maps each input vertex ID to its canonical ID.
	Perm gocanon.Permutation

	// Graph is the input relabelled under Perm. Two inputs are isomorphic
	// (respecting colors and directedness) iff their canonical Graphs are
	// structurally identical.
	Graph *Graph

	// Generators is the automorphism generating set discovered during the
	// search: each entry leaves the input's edge set (and coloring) invariant.
	// The set generates the full automorphism group but is not the full group.
	Generators []gocanon.Permutation

	// Autom summarizes the group.
	Autom gocanon.AutomInfo
}

// CanonicalFormOpts tune a canonicalization call.
type CanonicalFormOpts struct {
	// Coloring overrides the graph's own coloring when non-nil.
	Coloring gocanon.Coloring

	// NodeBudget caps how many search-tree nodes may be visited; 0 means
	// unbounded. Exceeding it returns ErrSearchBudget.
	NodeBudget int64
}

// CanonicalForm computes the canonical form of X under its own coloring.
func CanonicalForm(X *Graph) (*CanonicalResult, error) {
	return CanonicalFormWithOpts(X, CanonicalFormOpts{})
}

// CanonicalFormWithOpts canonicalizes X: it validates the input once, runs the
// individualization-refinement search, and materializes the minimal
// relabelling plus the discovered automorphism generators. A rejected input
// never partially executes.
func CanonicalFormWithOpts(X *Graph, opts CanonicalFormOpts) (*CanonicalResult, error) {
	if X == nil {
		return nil, gocanon.ErrNilGraph
	}

	colors := X.colors
	if opts.Coloring != nil {
		colors = opts.Coloring
	}

	sg, err := newSparseGraph(X.vtxCount, X.edges, X.directed, colors)
	if err != nil {
		return nil, err
	}

	s := newSearcher(sg, opts.NodeBudget)
	if err := s.run(); err != nil {
		return nil, err
	}

	// bestPerm orders positions to vertices; the canonical labelling is its
	// inverse: vertex v's new ID is its position in the best leaf.
	Nv := X.vtxCount
	perm := make(gocanon.Permutation, Nv)
	for i, v := range s.bestPerm {
		perm[v] = gocanon.VtxID(i)
	}

	canonical := NewGraph(nil)
	canonical.vtxCount = Nv
	canonical.directed = X.directed
	if colors != nil {
		canonical.colors = make(gocanon.Coloring, Nv)
		for v, c := range colors {
			canonical.colors[perm[v]] = c
		}
	}
	seen := make(map[Edge]struct{}, len(X.edges))
	for _, e := range X.edges {
		ce := Edge{perm[e.A], perm[e.B]}
		if !X.directed && ce.A > ce.B {
			ce = Edge{ce.B, ce.A}
		}
		if _, dup := seen[ce]; dup {
			continue
		}
		seen[ce] = struct{}{}
		canonical.edges = append(canonical.edges, ce)
	}
	canonical.sortEdges()
	canonical.key = appendKeyHeader(nil, sg)
	canonical.key = append(canonical.key, s.bestEnc...)

	numOrbits := int32(0)
	if Nv > 0 {
		numOrbits = s.orbits.numSets()
	}

	res := &CanonicalResult{
		Perm:       perm,
		Graph:      canonical,
		Generators: s.gens,
		Autom: gocanon.AutomInfo{
			NumGenerators: int32(len(s.gens)),
			NumOrbits:     numOrbits,
		},
	}
	return res, nil
}

// appendKeyHeader prefixes a canonical key with the graph's defining counts.
// Lexicographically, smaller graphs order first, then sparser ones.
func appendKeyHeader(b []byte, sg *sparseGraph) []byte {
	directed := byte(0)
	if sg.directed {
		directed = 1
	}
	nc := sg.numColors()
	b = append(b,
		byte(sg.Nv>>8), byte(sg.Nv),
		byte(sg.Ne>>8), byte(sg.Ne),
		directed,
		byte(nc>>8), byte(nc),
	)
	return b
}
