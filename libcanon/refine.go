package libcanon

// refiner computes coarsest equitable refinements of ordered partitions over
// one sparseGraph. Scratch state is reused across calls; a refiner is owned by
// a single canonicalization call and is not safe for concurrent use.
type refiner struct {
	sg *sparseGraph

	queue    []int32 // FIFO of active cell starts
	inQueue  []bool
	keys     []int64 // per-vertex neighbor counts for the current splitter
	counted  []int32 // vertices with a non-zero key, for cheap reset
	touched  []int32 // cell starts holding at least one counted vertex
	isTouch  []bool
	splitter []int32 // snapshot of the active cell's vertices
}

func newRefiner(sg *sparseGraph) *refiner {
	Nv := sg.Nv
	return &refiner{
		sg:       sg,
		queue:    make([]int32, 0, Nv),
		inQueue:  make([]bool, Nv),
		keys:     make([]int64, Nv),
		counted:  make([]int32, 0, Nv),
		touched:  make([]int32, 0, Nv),
		isTouch:  make([]bool, Nv),
		splitter: make([]int32, 0, Nv),
	}
}

func (rf *refiner) enqueue(start int32) {
	if !rf.inQueue[start] {
		rf.inQueue[start] = true
		rf.queue = append(rf.queue, start)
	}
}

// refine makes P equitable: for every pair of cells (C, D), every vertex of C
// ends up with the same number of neighbors in D (in- and out-neighbors
// separately for directed graphs). active seeds the work queue; passing every
// cell start yields a full refinement, passing just the cells changed by an
// individualization restores equitability incrementally.
//
// The splitting policy is fixed: cells are processed FIFO, touched cells are
// split in ascending start order, and sub-cells are ordered by ascending
// neighbor count. Refinement therefore commutes with graph isomorphism, which
// is what makes canonical-leaf comparison meaningful.
func (rf *refiner) refine(P *partition, active []int32) {
	rf.queue = rf.queue[:0]
	for _, s := range active {
		rf.enqueue(s)
	}

	for len(rf.queue) > 0 {
		s := rf.queue[0]
		rf.queue = rf.queue[1:]
		rf.inQueue[s] = false

		// Snapshot the splitter; splits reorder P.order in place.
		rf.splitter = append(rf.splitter[:0], P.cellVerts(s)...)

		if rf.sg.directed {
			rf.countAndSplit(P, rf.splitter, rf.sg.inAdj)
			rf.countAndSplit(P, rf.splitter, rf.sg.outAdj)
		} else {
			rf.countAndSplit(P, rf.splitter, rf.sg.outAdj)
		}

		if P.isDiscrete() {
			for _, q := range rf.queue {
				rf.inQueue[q] = false
			}
			rf.queue = rf.queue[:0]
			return
		}
	}
}

// countAndSplit counts, for every vertex w, its neighbors inside splitter
// (walking adj from the splitter side), then fractures every touched cell at
// count boundaries.
func (rf *refiner) countAndSplit(P *partition, splitter []int32, adj [][]int32) {
	for _, u := range splitter {
		for _, w := range adj[u] {
			if rf.keys[w] == 0 {
				rf.counted = append(rf.counted, w)
			}
			rf.keys[w]++
			cs := P.cellStart[P.pos[w]]
			if !rf.isTouch[cs] {
				rf.isTouch[cs] = true
				rf.touched = append(rf.touched, cs)
			}
		}
	}

	// Ascending start order keeps the split sequence deterministic.
	sortInt32s(rf.touched)

	for _, cs := range rf.touched {
		rf.isTouch[cs] = false
		frags := P.splitCell(cs, rf.keys)
		for _, f := range frags {
			rf.enqueue(f)
		}
	}
	rf.touched = rf.touched[:0]

	for _, w := range rf.counted {
		rf.keys[w] = 0
	}
	rf.counted = rf.counted[:0]
}

func sortInt32s(a []int32) {
	// Touched lists are short; insertion sort avoids an interface sort here.
	for i := 1; i < len(a); i++ {
		v := a[i]
		j := i - 1
		for j >= 0 && a[j] > v {
			a[j+1] = a[j]
			j--
		}
		a[j+1] = v
	}
}
