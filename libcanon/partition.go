package libcanon

import (
	"sort"

	"github.com/canon-systems/gocanon/gocanon"
)

// partition is an ordered partition of the vertices 0..Nv-1.
//
// Cells are contiguous runs of the order slice. A cell is identified by its
// start position, which stays valid for the life of the partition: splitting a
// cell keeps the first fragment at the original start and places the other
// fragments after it. Cells never merge.
type partition struct {
	order     []int32 // position -> vertex
	pos       []int32 // vertex -> position
	cellStart []int32 // position -> start position of the cell containing it
	cellLen   []int32 // valid at cell start positions only
	numCells  int32
}

func newPartition(Nv int32) *partition {
	P := &partition{
		order:     make([]int32, Nv),
		pos:       make([]int32, Nv),
		cellStart: make([]int32, Nv),
		cellLen:   make([]int32, Nv),
	}
	return P
}

// assignColors sets P to the initial partition induced by the given coloring:
// one cell per color class, cells ordered by ascending color, vertices within
// a cell ordered by ascending ID. A nil coloring yields the unit partition.
func (P *partition) assignColors(colors gocanon.Coloring) {
	Nv := int32(len(P.order))

	for i := int32(0); i < Nv; i++ {
		P.order[i] = i
	}
	if colors != nil {
		sort.SliceStable(P.order, func(i, j int) bool {
			return colors[P.order[i]] < colors[P.order[j]]
		})
	}

	P.numCells = 0
	for i := int32(0); i < Nv; {
		j := i + 1
		if colors != nil {
			for j < Nv && colors[P.order[j]] == colors[P.order[i]] {
				j++
			}
		} else {
			j = Nv
		}
		for k := i; k < j; k++ {
			P.cellStart[k] = i
		}
		P.cellLen[i] = j - i
		P.numCells++
		i = j
	}

	for i, v := range P.order {
		P.pos[v] = int32(i)
	}
}

// assignFrom makes P a copy of src. Both must have the same vertex count.
func (P *partition) assignFrom(src *partition) {
	copy(P.order, src.order)
	copy(P.pos, src.pos)
	copy(P.cellStart, src.cellStart)
	copy(P.cellLen, src.cellLen)
	P.numCells = src.numCells
}

func (P *partition) isDiscrete() bool {
	return P.numCells == int32(len(P.order))
}

// firstNonSingleton returns the start of the first cell with size > 1, or -1
// if the partition is discrete.
func (P *partition) firstNonSingleton() int32 {
	Nv := int32(len(P.order))
	for i := int32(0); i < Nv; i += P.cellLen[i] {
		if P.cellLen[i] > 1 {
			return i
		}
	}
	return -1
}

// cellVerts returns the vertices of the cell starting at start, in order.
func (P *partition) cellVerts(start int32) []int32 {
	return P.order[start : start+P.cellLen[start]]
}

// individualize moves vertex v to the front of its cell as a new singleton
// cell; the remainder of the cell follows as its own cell. Returns the start
// of the remainder cell.
func (P *partition) individualize(v int32) int32 {
	start := P.cellStart[P.pos[v]]
	n := P.cellLen[start]

	// Swap v into the cell's first slot
	vp := P.pos[v]
	u := P.order[start]
	P.order[start], P.order[vp] = v, u
	P.pos[v], P.pos[u] = start, vp

	P.cellLen[start] = 1
	rest := start + 1
	for k := rest; k < start+n; k++ {
		P.cellStart[k] = rest
	}
	P.cellLen[rest] = n - 1
	P.numCells++
	return rest
}

// splitCell reorders the cell at start by ascending key (ties by ascending
// vertex ID) and fractures it at key boundaries. keys is indexed by vertex.
// Returns the start positions of all resulting fragments, or nil if the cell
// did not split.
func (P *partition) splitCell(start int32, keys []int64) []int32 {
	n := P.cellLen[start]
	if n <= 1 {
		return nil
	}

	cell := P.order[start : start+n]
	uniform := true
	for _, v := range cell[1:] {
		if keys[v] != keys[cell[0]] {
			uniform = false
			break
		}
	}
	if uniform {
		return nil
	}

	sort.Slice(cell, func(i, j int) bool {
		ki, kj := keys[cell[i]], keys[cell[j]]
		if ki != kj {
			return ki < kj
		}
		return cell[i] < cell[j]
	})

	var frags []int32
	for i := int32(0); i < n; {
		j := i + 1
		for j < n && keys[cell[j]] == keys[cell[i]] {
			j++
		}
		fragStart := start + i
		for k := fragStart; k < start+j; k++ {
			P.cellStart[k] = fragStart
		}
		P.cellLen[fragStart] = j - i
		frags = append(frags, fragStart)
		i = j
	}
	P.numCells += int32(len(frags) - 1)

	for i := start; i < start+n; i++ {
		P.pos[P.order[i]] = i
	}
	return frags
}

// shape appends the partition's cell-size sequence to b. The shape is
// invariant under relabelling, which is what makes it usable as a search-node
// invariant.
func (P *partition) shape(b []byte) []byte {
	Nv := int32(len(P.order))
	for i := int32(0); i < Nv; i += P.cellLen[i] {
		n := P.cellLen[i]
		b = append(b, byte(n>>8), byte(n))
	}
	return b
}
