package libcanon

import (
	"encoding/base32"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/canon-systems/gocanon/gocanon"
)

// Edge is an ordered pair of vertex IDs. For undirected graphs the order
// carries no meaning.
type Edge struct {
	A, B gocanon.VtxID
}

// Graph is the host adjacency structure client code builds and canonicalizes.
// Vertices are dense zero-based IDs; edges are simple (presence only).
// A Graph is not safe for concurrent mutation; separate graphs may be
// canonicalized concurrently.
type Graph struct {
	vtxCount int32
	directed bool
	edges    []Edge
	colors   gocanon.Coloring // nil means uncolored
	key      []byte           // memoized canonical key; nil until computed
}

var graphPool = sync.Pool{
	New: func() any {
		return &Graph{}
	},
}

// NewGraph returns a pooled Graph initialized as a copy of Xsrc (or empty if
// Xsrc is nil).
func NewGraph(Xsrc *Graph) *Graph {
	X := graphPool.Get().(*Graph)
	X.Init(Xsrc)
	return X
}

// NewGraphFromExpr returns a pooled Graph built from a graph expression.
func NewGraphFromExpr(graphExpr string) (*Graph, error) {
	X := graphPool.Get().(*Graph)
	if err := X.InitFromString(graphExpr); err != nil {
		X.Reclaim()
		return nil, err
	}
	return X, nil
}

// Init resets X to a copy of Xsrc (or to the empty graph if Xsrc is nil).
func (X *Graph) Init(Xsrc *Graph) {
	if Xsrc == nil {
		X.vtxCount = 0
		X.directed = false
		X.edges = X.edges[:0]
		X.colors = nil
		X.key = nil
		return
	}
	X.vtxCount = Xsrc.vtxCount
	X.directed = Xsrc.directed
	X.edges = append(X.edges[:0], Xsrc.edges...)
	X.colors = append(X.colors[:0], Xsrc.colors...)
	if len(X.colors) == 0 && Xsrc.colors == nil {
		X.colors = nil
	}
	X.key = append([]byte(nil), Xsrc.key...)
	if Xsrc.key == nil {
		X.key = nil
	}
}

// Reclaim recycles X into the pool for reuse.
// Caller asserts that no more references to this instance will persist.
func (X *Graph) Reclaim() {
	if X != nil {
		graphPool.Put(X)
	}
}

// MakeCopy returns a new copy of this instance.
func (X *Graph) MakeCopy() gocanon.GraphState {
	return NewGraph(X)
}

// SetDirected sets the directedness of the graph.
// Undirected edges of a directed graph act as arc pairs.
func (X *Graph) SetDirected(directed bool) {
	if X.directed != directed {
		X.directed = directed
		X.key = nil
	}
}

// AddVertex appends a vertex and returns its ID.
func (X *Graph) AddVertex() gocanon.VtxID {
	v := gocanon.VtxID(X.vtxCount)
	X.vtxCount++
	if X.colors != nil {
		X.colors = append(X.colors, 0)
	}
	X.key = nil
	return v
}

// SetColor assigns v to a color class.
func (X *Graph) SetColor(v gocanon.VtxID, c gocanon.Color) error {
	if v < 0 || int32(v) >= X.vtxCount {
		return errors.Wrapf(gocanon.ErrBadVtxID, "vertex %d of %d", v, X.vtxCount)
	}
	if X.colors == nil {
		X.colors = make(gocanon.Coloring, X.vtxCount)
	}
	X.colors[v] = c
	X.key = nil
	return nil
}

// AddEdge adds the edge (a,b); the orientation is a→b when the graph is
// directed. Parallel duplicates are absorbed at canonicalization time.
func (X *Graph) AddEdge(a, b gocanon.VtxID) error {
	if a < 0 || int32(a) >= X.vtxCount || b < 0 || int32(b) >= X.vtxCount {
		return errors.Wrapf(gocanon.ErrBadEdge, "edge (%d,%d) with %d vertices", a, b, X.vtxCount)
	}
	X.edges = append(X.edges, Edge{a, b})
	X.key = nil
	return nil
}

func (X *Graph) NumVerts() int32 { return X.vtxCount }
func (X *Graph) NumEdges() int32 { return int32(len(X.edges)) }
func (X *Graph) IsDirected() bool { return X.directed }

// Edges returns the edge list; the caller must not mutate it.
func (X *Graph) Edges() []Edge { return X.edges }

// Colors returns the vertex coloring, or nil if the graph is uncolored.
func (X *Graph) Colors() gocanon.Coloring { return X.colors }

// GetInfo returns info about this graph
func (X *Graph) GetInfo() gocanon.GraphInfo {
	numColors := int32(0)
	if X.vtxCount > 0 {
		numColors = 1
		if X.colors != nil {
			seen := make(map[gocanon.Color]struct{}, 4)
			for _, c := range X.colors {
				seen[c] = struct{}{}
			}
			numColors = int32(len(seen))
		}
	}
	return gocanon.GraphInfo{
		NumVerts:  X.vtxCount,
		NumEdges:  int32(len(X.edges)),
		NumColors: numColors,
		Directed:  X.directed,
	}
}

// GeohashBase32Alphabet is the alphabet used for Base32Encoding
const GeohashBase32Alphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// Base32Encoding is used to encode canonical keys into printable strings.
var Base32Encoding = base32.NewEncoding(GeohashBase32Alphabet).WithPadding(base32.NoPadding)

// Canonize computes X's canonical form in place: vertices are relabelled into
// canonical order, edges are normalized and sorted, and the canonical key is
// memoized. Canonize is idempotent.
func (X *Graph) Canonize() error {
	if X.key != nil {
		return nil
	}
	res, err := CanonicalForm(X)
	if err != nil {
		return err
	}
	X.assignCanonical(res.Graph)
	res.Graph.Reclaim()
	return nil
}

func (X *Graph) assignCanonical(canonical *Graph) {
	X.vtxCount = canonical.vtxCount
	X.directed = canonical.directed
	X.edges = append(X.edges[:0], canonical.edges...)
	X.colors = append(X.colors[:0], canonical.colors...)
	if canonical.colors == nil {
		X.colors = nil
	}
	X.key = append(X.key[:0], canonical.key...)
}

// CanonicalKey returns the memoized canonical encoding, computing it first if
// needed. Two graphs are isomorphic (respecting colors and directedness) iff
// their keys are equal.
func (X *Graph) CanonicalKey() ([]byte, error) {
	if X.key == nil {
		if err := X.Canonize(); err != nil {
			return nil, err
		}
	}
	return X.key, nil
}

// Key returns the memoized canonical key without computing it. Callers that
// must not trigger a search get ErrNotCanonized instead.
func (X *Graph) Key() ([]byte, error) {
	if X.key == nil {
		return nil, gocanon.ErrNotCanonized
	}
	return X.key, nil
}

// KeyString returns the canonical key in printable base32 form.
func (X *Graph) KeyString() (string, error) {
	key, err := X.CanonicalKey()
	if err != nil {
		return "", err
	}
	return Base32Encoding.EncodeToString(key), nil
}

// WriteAsString writes X per the given PrintOpts.
func (X *Graph) WriteAsString(out io.Writer, opts gocanon.PrintOpts) {
	if opts.Graph || (!opts.Key && !opts.Autom) {
		io.WriteString(out, X.ExprString())
	}
	if opts.Key {
		if keyStr, err := X.KeyString(); err == nil {
			fmt.Fprintf(out, ",%s", keyStr)
		} else {
			fmt.Fprintf(out, ",!%v", err)
		}
	}
	if opts.Autom {
		if res, err := CanonicalForm(X); err == nil {
			fmt.Fprintf(out, ",gens=%d,orbits=%d", res.Autom.NumGenerators, res.Autom.NumOrbits)
			res.Graph.Reclaim()
		} else {
			fmt.Fprintf(out, ",!%v", err)
		}
	}
}

// ExprString renders X as a graph expression that InitFromString accepts.
// Vertex IDs print one-based; colors print as :c suffixes on first mention.
func (X *Graph) ExprString() string {
	var b []byte
	mentioned := make([]bool, X.vtxCount)

	appendVtx := func(v gocanon.VtxID) {
		b = append(b, []byte(fmt.Sprintf("%d", int32(v)+1))...)
		if !mentioned[v] {
			mentioned[v] = true
			if X.colors != nil && X.colors[v] != 0 {
				b = append(b, []byte(fmt.Sprintf(":%d", X.colors[v]))...)
			}
		}
	}

	for i, e := range X.edges {
		if i > 0 {
			b = append(b, ',')
		}
		appendVtx(e.A)
		if X.directed {
			b = append(b, '>')
		} else {
			b = append(b, '-')
		}
		appendVtx(e.B)
	}

	// Isolated vertices appear as bare IDs.
	first := len(X.edges) == 0
	for v := int32(0); v < X.vtxCount; v++ {
		if !mentioned[v] {
			if !first {
				b = append(b, ',')
			}
			first = false
			appendVtx(gocanon.VtxID(v))
		}
	}
	return string(b)
}

// sortEdges puts X.edges into the canonical order: undirected edges normalized
// low-high, then sorted ascending.
func (X *Graph) sortEdges() {
	if !X.directed {
		for i, e := range X.edges {
			if e.A > e.B {
				X.edges[i] = Edge{e.B, e.A}
			}
		}
	}
	sort.Slice(X.edges, func(i, j int) bool {
		if X.edges[i].A != X.edges[j].A {
			return X.edges[i].A < X.edges[j].A
		}
		return X.edges[i].B < X.edges[j].B
	})
}
