package gocanon

import (
	"io"
)

const (
	// MaxVtxID is the max number of vertices a Graph may carry.
	// Canonical encodings store one adjacency bit per ordered vertex pair,
	// so this bounds an encoding to MaxVtxID + MaxVtxID*MaxVtxID/8 bytes.
	MaxVtxID = 1 << 15
)

// VtxID is a zero-based index that identifies a vertex in a given graph (0..NumVerts-1).
type VtxID int32

// Color identifies a vertex color class. Vertices of different colors are
// never mapped onto each other by the canonical permutation nor by any
// reported automorphism.
type Color int32

// Coloring assigns every vertex of a graph exactly one Color.
// A nil Coloring means all vertices share one class.
type Coloring []Color

// GraphInfo summarizes a graph for selection and catalog bookkeeping.
type GraphInfo struct {
	NumVerts  int32
	NumEdges  int32
	NumColors int32
	Directed  bool
}

// PrintOpts controls WriteAsString.
type PrintOpts struct {
	Label string // optional label prefix
	Graph bool   // include the graph expression
	Key   bool   // include the canonical key (base32)
	Autom bool   // include automorphism generator count and orbit count
}

// GraphState is a graph instance whose canonical form can be computed and
// which can travel through a GraphStream. Implemented by libcanon.Graph.
type GraphState interface {

	// Canonize computes this graph's canonical form in place: vertices are
	// relabelled into canonical order and the encoding is memoized.
	Canonize() error

	// CanonicalKey returns the memoized canonical encoding, computing it first
	// if needed. Two graphs are isomorphic iff their keys are equal, so the
	// key is directly usable as a map or db key.
	CanonicalKey() ([]byte, error)

	WriteAsString(out io.Writer, opts PrintOpts)

	// Returns a new copy of this instance.
	MakeCopy() GraphState

	// Returns info about this graph
	GetInfo() GraphInfo

	// Recycles this GraphState instance into a pool for reuse.
	// Caller asserts that no more references to this instance will persist.
	Reclaim()
}

// AutomInfo reports what the canonical search learned about a graph's
// automorphism group.
type AutomInfo struct {
	NumGenerators int32 // generators discovered during the search
	NumOrbits     int32 // vertex orbits under the generated group
}

// GraphAdder accepts graphs, deduplicating by canonical form.
// Implemented by libcanon.GraphSet and by catalog.Catalog.
type GraphAdder interface {

	// TryAddGraph returns true if X's canonical form was not yet present and
	// was added.
	TryAddGraph(X GraphState) (bool, error)
}

// OnGraphHit is a callback channel used to return graphs meeting a set of
// selection criteria. Ownership of each GraphState travels through the channel.
type OnGraphHit chan<- GraphState

// GraphSelector is an operator that either selects a given graph or not.
type GraphSelector struct {
	Min GraphInfo // lower select bounds
	Max GraphInfo // upper select bounds
}

// DefaultGraphSelector selects every valid graph.
var DefaultGraphSelector = GraphSelector{
	Max: GraphInfo{
		NumVerts:  MaxVtxID,
		NumEdges:  MaxVtxID * MaxVtxID,
		NumColors: MaxVtxID,
		Directed:  true,
	},
}

// SelectsGraph is a convenience function used to see if a graph is selected
// according to a GraphSelector.
func (sel *GraphSelector) SelectsGraph(X GraphState) bool {
	info := X.GetInfo()
	if info.NumVerts < sel.Min.NumVerts || info.NumEdges < sel.Min.NumEdges || info.NumColors < sel.Min.NumColors {
		return false
	}
	if info.NumVerts > sel.Max.NumVerts || info.NumEdges > sel.Max.NumEdges || info.NumColors > sel.Max.NumColors {
		return false
	}
	if info.Directed && !sel.Max.Directed {
		return false
	}
	return true
}

// CatalogOpts specifies params for opening a gocanon Catalog
type CatalogOpts struct {
	DbPathName string // empty means in-memory
	ReadOnly   bool
}

// Catalog wraps a database of canonical graph encodings.
type Catalog interface {
	GraphAdder

	// Returns true if this catalog was opened for read-only access.
	IsReadOnly() bool

	// NumGraphs returns the number of distinct canonical forms stored for a
	// given vertex count. A vertex count of 0 returns the total.
	NumGraphs(forVtxCount int32) int64

	// Select fires the given callback with each stored graph that meets the
	// selection criteria, in canonical key order.
	Select(sel GraphSelector, onHit OnGraphHit)

	// Closes this catalog
	Close() error
}

// CatalogContext is a container for open / active Catalog instances.
type CatalogContext interface {

	// Opens a new or existing catalog for access in this workspace
	OpenCatalog(opts CatalogOpts) (Catalog, error)

	AttachCatalog(cat Catalog)
	DetachCatalog(cat Catalog)

	// Signals all open catalogs to close, then closes.
	Close()

	// Closing signals that Close() has been called.
	Closing() <-chan struct{}

	// Signals when Close() completed and all open Catalogs have been closed
	Done() <-chan struct{}
}
