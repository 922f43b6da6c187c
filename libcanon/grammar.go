package libcanon

import (
	"github.com/alecthomas/participle/v2"
	"github.com/pkg/errors"

	"github.com/canon-systems/gocanon/gocanon"
)

// Graph expression syntax, e.g. "1-2,2-3,3-1" (a triangle), "1>2,2>3" (a
// directed path), "1:1-2:2" (colored endpoints), "1-2;1-2" (two disjoint
// copies). Vertex IDs are one-based within each part; parts offset cumulatively.

type GraphExpr struct {
	Parts []*Part `parser:"(@@ (\";\" @@)*)?"`
}

type Part struct {
	EdgeRuns []*EdgeRun `parser:"(@@ (\",\" @@)*)?"`
}

type EdgeRun struct {
	StartVtx *Vtx       `parser:"@@"`
	Edges    []*EdgeDst `parser:"@@*"`
}

type EdgeDst struct {
	Kind   string `parser:"@( \"-\" | \">\" )"`
	EndVtx *Vtx   `parser:"@@"`
}

type Vtx struct {
	ID    int64  `parser:"@Int"`
	Color *int64 `parser:"(\":\" @Int)?"`
}

var parseGraphExpr = participle.MustBuild[GraphExpr]()

type graphBuilder struct {
	vtx0     int32 // vertex ID offset of the current part
	maxVtxID int32
	directed bool
	colored  bool
	colors   []gocanon.Color
	edges    []Edge
}

func (Xb *graphBuilder) tallyVtx(vtx *Vtx) (gocanon.VtxID, error) {
	if vtx.ID < 1 || Xb.vtx0+int32(vtx.ID) > gocanon.MaxVtxID {
		return 0, errors.Wrapf(gocanon.ErrBadVtxID, "vertex %d", vtx.ID)
	}
	vtxID := Xb.vtx0 + int32(vtx.ID) - 1

	for int32(len(Xb.colors)) <= vtxID {
		Xb.colors = append(Xb.colors, 0)
	}
	if Xb.maxVtxID < vtxID+1 {
		Xb.maxVtxID = vtxID + 1
	}
	if vtx.Color != nil {
		Xb.colored = true
		Xb.colors[vtxID] = gocanon.Color(*vtx.Color)
	}
	return gocanon.VtxID(vtxID), nil
}

func (Xb *graphBuilder) applyRun(run *EdgeRun) error {
	onVtx, err := Xb.tallyVtx(run.StartVtx)
	if err != nil {
		return err
	}

	for _, edge := range run.Edges {
		nextVtx, err := Xb.tallyVtx(edge.EndVtx)
		if err != nil {
			return err
		}
		if edge.Kind == ">" {
			Xb.directed = true
		}
		Xb.edges = append(Xb.edges, Edge{onVtx, nextVtx})
		onVtx = nextVtx
	}
	return nil
}

func (Xb *graphBuilder) applyPart(part *Part) error {
	Xb.vtx0 = Xb.maxVtxID

	for _, run := range part.EdgeRuns {
		if err := Xb.applyRun(run); err != nil {
			return err
		}
	}
	return nil
}

// InitFromString resets X from a graph expression. A '>' anywhere makes the
// whole graph directed; '-' edges then act as arc pairs.
func (X *Graph) InitFromString(graphExpr string) error {
	X.Init(nil)

	Xexpr, err := parseGraphExpr.ParseString("", graphExpr)
	if err != nil {
		return errors.Wrap(gocanon.ErrMalformedGraph, err.Error())
	}

	var Xb graphBuilder
	for _, part := range Xexpr.Parts {
		if err = Xb.applyPart(part); err != nil {
			return err
		}
	}

	X.vtxCount = Xb.maxVtxID
	X.directed = Xb.directed
	X.edges = append(X.edges[:0], Xb.edges...)
	if Xb.colored {
		X.colors = append(X.colors[:0], Xb.colors...)
	} else {
		X.colors = nil
	}

	if X.directed {
		// '-' edges in a directed graph become arc pairs. The parse pass
		// cannot know directedness until the whole expression is read, so
		// resolve them here.
		resolved := X.edges[:0]
		ei := 0
		for _, part := range Xexpr.Parts {
			for _, run := range part.EdgeRuns {
				for _, edge := range run.Edges {
					e := Xb.edges[ei]
					ei++
					resolved = append(resolved, e)
					if edge.Kind == "-" && e.A != e.B {
						resolved = append(resolved, Edge{e.B, e.A})
					}
				}
			}
		}
		X.edges = resolved
	}
	return nil
}
