package libcanon

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/canon-systems/gocanon/gocanon"
)

// sparseGraph is the engine's working form of a graph: sorted adjacency lists
// plus a bit matrix for O(1) adjacency tests. For directed graphs the in- and
// out-neighborhoods are kept separately; for undirected graphs outAdj holds
// the full neighborhood and inAdj is nil.
type sparseGraph struct {
	Nv       int32
	Ne       int32
	directed bool
	colors   gocanon.Coloring // nil means one color class
	ranks    []int32          // per-vertex color rank (0..numColors-1); nil when colors is nil
	outAdj   [][]int32
	inAdj    [][]int32
	bits     []uint64 // Nv*Nv adjacency bits, row-major
}

// colorRank returns v's color class rank: colors compare by rank, not by
// their caller-chosen values, so encodings stay stable under color renaming.
func (sg *sparseGraph) colorRank(v int32) int32 {
	if sg.ranks == nil {
		return 0
	}
	return sg.ranks[v]
}

// numColors returns the number of distinct color classes.
func (sg *sparseGraph) numColors() int32 {
	if sg.ranks == nil {
		if sg.Nv == 0 {
			return 0
		}
		return 1
	}
	n := int32(0)
	for _, r := range sg.ranks {
		if r+1 > n {
			n = r + 1
		}
	}
	return n
}

func (sg *sparseGraph) hasEdge(u, v int32) bool {
	i := u*sg.Nv + v
	return sg.bits[i>>6]&(1<<(i&63)) != 0
}

func (sg *sparseGraph) setEdge(u, v int32) {
	i := u*sg.Nv + v
	sg.bits[i>>6] |= 1 << (i & 63)
}

// newSparseGraph validates the input and builds the working form.
// Validation happens here once; everything downstream assumes it passed.
func newSparseGraph(Nv int32, edges []Edge, directed bool, colors gocanon.Coloring) (*sparseGraph, error) {
	if Nv < 0 || Nv > gocanon.MaxVtxID {
		return nil, errors.Wrapf(gocanon.ErrMalformedGraph, "vertex count %d out of range", Nv)
	}
	if colors != nil && int32(len(colors)) != Nv {
		return nil, errors.Wrapf(gocanon.ErrColoringMismatch, "expected %d vertices, got %d", Nv, len(colors))
	}

	sg := &sparseGraph{
		Nv:       Nv,
		directed: directed,
		colors:   colors,
		outAdj:   make([][]int32, Nv),
		bits:     make([]uint64, (int(Nv)*int(Nv)+63)/64),
	}
	if directed {
		sg.inAdj = make([][]int32, Nv)
	}

	for _, e := range edges {
		u, v := int32(e.A), int32(e.B)
		if u < 0 || u >= Nv || v < 0 || v >= Nv {
			return nil, errors.Wrapf(gocanon.ErrMalformedGraph, "edge (%d,%d) references nonexistent vertex", u, v)
		}
		if sg.hasEdge(u, v) {
			continue // parallel duplicate; presence only
		}
		sg.setEdge(u, v)
		sg.outAdj[u] = append(sg.outAdj[u], v)
		if directed {
			sg.inAdj[v] = append(sg.inAdj[v], u)
		} else if u != v {
			sg.setEdge(v, u)
			sg.outAdj[v] = append(sg.outAdj[v], u)
		}
		sg.Ne++
	}

	for _, adj := range sg.outAdj {
		sort.Slice(adj, func(i, j int) bool { return adj[i] < adj[j] })
	}
	for _, adj := range sg.inAdj {
		sort.Slice(adj, func(i, j int) bool { return adj[i] < adj[j] })
	}

	if colors != nil {
		distinct := append(gocanon.Coloring(nil), colors...)
		sort.Slice(distinct, func(i, j int) bool { return distinct[i] < distinct[j] })
		rankOf := make(map[gocanon.Color]int32, Nv)
		for _, c := range distinct {
			if _, seen := rankOf[c]; !seen {
				rankOf[c] = int32(len(rankOf))
			}
		}
		sg.ranks = make([]int32, Nv)
		for v, c := range colors {
			sg.ranks[v] = rankOf[c]
		}
	}

	return sg, nil
}
