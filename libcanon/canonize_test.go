package libcanon_test

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/canon-systems/gocanon/gocanon"
	"github.com/canon-systems/gocanon/libcanon"
)

func mustGraph(t *testing.T, expr string) *libcanon.Graph {
	t.Helper()
	X, err := libcanon.NewGraphFromExpr(expr)
	if err != nil {
		t.Fatalf("parse %q: %v", expr, err)
	}
	return X
}

func mustKey(t *testing.T, X *libcanon.Graph) []byte {
	t.Helper()
	key, err := X.CanonicalKey()
	if err != nil {
		t.Fatalf("canonical key: %v", err)
	}
	return key
}

// applyPerm returns a copy of X with vertex v relabelled to perm[v].
func applyPerm(X *libcanon.Graph, perm gocanon.Permutation) *libcanon.Graph {
	out := libcanon.NewGraph(nil)
	out.SetDirected(X.IsDirected())
	for i := int32(0); i < X.NumVerts(); i++ {
		out.AddVertex()
	}
	if colors := X.Colors(); colors != nil {
		for v, c := range colors {
			out.SetColor(perm[v], c)
		}
	}
	for _, e := range X.Edges() {
		out.AddEdge(perm[e.A], perm[e.B])
	}
	return out
}

func randPerm(rnd *rand.Rand, n int) gocanon.Permutation {
	p := gocanon.NewIdentity(n)
	rnd.Shuffle(n, func(i, j int) {
		p[i], p[j] = p[j], p[i]
	})
	return p
}

func groupOrderOf(t *testing.T, X *libcanon.Graph) int {
	t.Helper()
	res, err := libcanon.CanonicalForm(X)
	if err != nil {
		t.Fatalf("canonical form: %v", err)
	}
	defer res.Graph.Reclaim()
	order, exact := gocanon.GroupOrder(int(X.NumVerts()), res.Generators, 1<<16)
	if !exact {
		t.Fatalf("group order cap hit")
	}
	return order
}

func TestEmptyGraph(t *testing.T) {
	X := libcanon.NewGraph(nil)
	defer X.Reclaim()

	res, err := libcanon.CanonicalForm(X)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Graph.Reclaim()

	if res.Graph.NumVerts() != 0 || res.Graph.NumEdges() != 0 {
		t.Fatal("canonical form of the empty graph is not empty")
	}
	if len(res.Generators) != 0 {
		t.Fatal("empty graph reported automorphisms")
	}
}

func TestSingleVertex(t *testing.T) {
	X := mustGraph(t, "1")
	defer X.Reclaim()

	res, err := libcanon.CanonicalForm(X)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Graph.Reclaim()

	if res.Graph.NumVerts() != 1 || res.Graph.NumEdges() != 0 {
		t.Fatal("single vertex did not survive canonicalization")
	}
	if len(res.Generators) != 0 {
		t.Fatal("trivial group expected")
	}
	if res.Autom.NumOrbits != 1 {
		t.Fatalf("expected 1 orbit, got %d", res.Autom.NumOrbits)
	}
}

func TestPathGroupOrder(t *testing.T) {
	// The 3-path has exactly one non-trivial automorphism: swap the
	// endpoints, fix the middle.
	X := mustGraph(t, "1-2,2-3")
	defer X.Reclaim()

	if order := groupOrderOf(t, X); order != 2 {
		t.Fatalf("P3 automorphism group has order 2, got %d", order)
	}

	res, err := libcanon.CanonicalForm(X)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Graph.Reclaim()
	for _, g := range res.Generators {
		if !g.Fixes(1) {
			t.Fatalf("generator %v moves the middle vertex", g)
		}
	}
}

func TestCycleGroupOrder(t *testing.T) {
	// The 4-cycle's automorphism group is the dihedral group of the square.
	X := mustGraph(t, "1-2,2-3,3-4,4-1")
	defer X.Reclaim()

	if order := groupOrderOf(t, X); order != 8 {
		t.Fatalf("C4 automorphism group has order 8, got %d", order)
	}
}

func TestCycleRelabellingInvariance(t *testing.T) {
	X := mustGraph(t, "1-2,2-3,3-4,4-1")
	defer X.Reclaim()
	want := mustKey(t, X)

	// Every relabelling of the 4-cycle must canonicalize identically.
	perm := gocanon.NewIdentity(4)
	var visit func(k int)
	visit = func(k int) {
		if k == 4 {
			Y := applyPerm(X, perm)
			defer Y.Reclaim()
			if !bytes.Equal(mustKey(t, Y), want) {
				t.Fatalf("perm %v changed the canonical form", perm)
			}
			return
		}
		for i := k; i < 4; i++ {
			perm[k], perm[i] = perm[i], perm[k]
			visit(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}
	visit(0)
}

func TestPetersenGroupOrder(t *testing.T) {
	X := libcanon.NewGraph(nil)
	defer X.Reclaim()
	for i := 0; i < 10; i++ {
		X.AddVertex()
	}
	for i := int32(0); i < 5; i++ {
		X.AddEdge(gocanon.VtxID(i), gocanon.VtxID((i+1)%5))   // outer cycle
		X.AddEdge(gocanon.VtxID(i), gocanon.VtxID(i+5))       // spokes
		X.AddEdge(gocanon.VtxID(5+i), gocanon.VtxID(5+(i+2)%5)) // inner star
	}

	if order := groupOrderOf(t, X); order != 120 {
		t.Fatalf("Petersen graph automorphism group has order 120, got %d", order)
	}
}

func TestKnownGroupOrders(t *testing.T) {
	cases := []struct {
		name  string
		expr  string
		order int
	}{
		{"C6", "1-2,2-3,3-4,4-5,5-6,6-1", 12},
		{"two triangles", "1-2,2-3,3-1;1-2,2-3,3-1", 72},
		{"K3,3", "1-4,1-5,1-6,2-4,2-5,2-6,3-4,3-5,3-6", 72},
		{"cube", "1-2,2-3,3-4,4-1,5-6,6-7,7-8,8-5,1-5,2-6,3-7,4-8", 48},
	}
	for _, tc := range cases {
		X := mustGraph(t, tc.expr)
		if order := groupOrderOf(t, X); order != tc.order {
			t.Fatalf("%s: automorphism group has order %d, got %d", tc.name, tc.order, order)
		}
		X.Reclaim()
	}
}

func TestIsomorphismInvariance(t *testing.T) {
	exprs := []string{
		"1-2,2-3,3-4,4-1",       // C4
		"1-2,2-3,3-4,4-5,5-1",   // C5
		"1-2,1-3,1-4",           // star
		"1-2,2-3,3-1,3-4",       // triangle with tail
		"1-2,2-3,3-4",           // P4
		"1>2,2>3,3>1",           // directed triangle
		"1>2,1>3,4>1",           // directed star mix
		"1:1-2:2,2:2-3:1",       // colored path
		"1-2;1-2,2-3",           // disjoint parts
	}

	rnd := rand.New(rand.NewSource(1))
	for _, expr := range exprs {
		X := mustGraph(t, expr)
		want := mustKey(t, X)

		for trial := 0; trial < 8; trial++ {
			Y := applyPerm(X, randPerm(rnd, int(X.NumVerts())))
			if !bytes.Equal(mustKey(t, Y), want) {
				t.Fatalf("%q: relabelling changed the canonical form", expr)
			}
			Y.Reclaim()
		}
		X.Reclaim()
	}
}

func TestNonIsomorphicKeysDiffer(t *testing.T) {
	pairs := [][2]string{
		{"1-2,2-3,3-4,4-1", "1-2,2-3,3-4"},   // C4 vs P4
		{"1>2,2>3", "1>2,3>2"},               // directed path vs sink
		{"1-2,2-3", "1:1-2,2-3"},             // colored vs not
		{"1-2,2-3,3-1", "1-2,2-3,3-4,4-1"},   // triangle vs square
	}
	for _, pair := range pairs {
		a := mustGraph(t, pair[0])
		b := mustGraph(t, pair[1])
		if bytes.Equal(mustKey(t, a), mustKey(t, b)) {
			t.Fatalf("%q and %q share a canonical key", pair[0], pair[1])
		}
		a.Reclaim()
		b.Reclaim()
	}
}

func TestIdempotence(t *testing.T) {
	for _, expr := range []string{"1-2,2-3,3-4,4-1", "1>2,2>3,3>1", "1:1-2:2"} {
		X := mustGraph(t, expr)
		res, err := libcanon.CanonicalForm(X)
		if err != nil {
			t.Fatal(err)
		}

		res2, err := libcanon.CanonicalForm(res.Graph)
		if err != nil {
			t.Fatal(err)
		}
		if res.Graph.ExprString() != res2.Graph.ExprString() {
			t.Fatalf("%q: canonical form is not a fixed point: %q vs %q",
				expr, res.Graph.ExprString(), res2.Graph.ExprString())
		}
		if !bytes.Equal(mustKey(t, res.Graph), mustKey(t, res2.Graph)) {
			t.Fatalf("%q: canonical keys drifted", expr)
		}
		res2.Graph.Reclaim()
		res.Graph.Reclaim()
		X.Reclaim()
	}
}

func TestColoringRespectsClasses(t *testing.T) {
	// C4 with alternating colors: only the symmetries preserving the two
	// diagonal pairs survive.
	X := mustGraph(t, "1:1-2:2,2:2-3:1,3:1-4:2,4:2-1:1")
	defer X.Reclaim()

	res, err := libcanon.CanonicalForm(X)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Graph.Reclaim()

	colors := X.Colors()
	for _, g := range res.Generators {
		for v := range g {
			if colors[v] != colors[g[v]] {
				t.Fatalf("generator %v crosses color classes", g)
			}
		}
	}

	order, exact := gocanon.GroupOrder(4, res.Generators, 1<<10)
	if !exact || order != 4 {
		t.Fatalf("colored C4 group order: want 4, got %d", order)
	}
}

func TestAutomorphismClosure(t *testing.T) {
	for _, expr := range []string{
		"1-2,2-3,3-4,4-1",
		"1>2,2>3,3>1",
		"1-2,1-3,1-4,2-3,2-4,3-4", // K4
	} {
		X := mustGraph(t, expr)
		res, err := libcanon.CanonicalForm(X)
		if err != nil {
			t.Fatal(err)
		}

		want := mustKey(t, X)
		for _, g := range res.Generators {
			Y := applyPerm(X, g)
			if !bytes.Equal(mustKey(t, Y), want) {
				t.Fatalf("%q: generator %v is not an automorphism", expr, g)
			}
			// Stronger: the edge *sets* must match, not just the canonical forms.
			if !sameEdgeSet(X, Y) {
				t.Fatalf("%q: generator %v altered the edge set", expr, g)
			}
			Y.Reclaim()
		}
		res.Graph.Reclaim()
		X.Reclaim()
	}
}

func sameEdgeSet(X, Y *libcanon.Graph) bool {
	norm := func(G *libcanon.Graph) map[libcanon.Edge]struct{} {
		set := make(map[libcanon.Edge]struct{}, G.NumEdges())
		for _, e := range G.Edges() {
			if !G.IsDirected() && e.A > e.B {
				e = libcanon.Edge{A: e.B, B: e.A}
			}
			set[e] = struct{}{}
		}
		return set
	}
	sx, sy := norm(X), norm(Y)
	if len(sx) != len(sy) {
		return false
	}
	for e := range sx {
		if _, ok := sy[e]; !ok {
			return false
		}
	}
	return true
}

func TestMalformedInput(t *testing.T) {
	X := libcanon.NewGraph(nil)
	defer X.Reclaim()
	X.AddVertex()
	X.AddVertex()

	if err := X.AddEdge(0, 5); !errors.Is(err, gocanon.ErrBadEdge) {
		t.Fatalf("out-of-range edge: got %v", err)
	}

	// A too-short coloring must be rejected up front.
	_, err := libcanon.CanonicalFormWithOpts(X, libcanon.CanonicalFormOpts{
		Coloring: gocanon.Coloring{1},
	})
	if !errors.Is(err, gocanon.ErrColoringMismatch) {
		t.Fatalf("short coloring: got %v", err)
	}

	if _, err := libcanon.NewGraphFromExpr("1-"); err == nil {
		t.Fatal("dangling edge parsed")
	}
	if _, err := libcanon.NewGraphFromExpr("0-1"); !errors.Is(err, gocanon.ErrBadVtxID) {
		t.Fatalf("vertex 0: got %v", err)
	}
}

func TestKeyRequiresCanonize(t *testing.T) {
	X := mustGraph(t, "1-2,2-3,3-1")
	defer X.Reclaim()

	if _, err := X.Key(); !errors.Is(err, gocanon.ErrNotCanonized) {
		t.Fatalf("uncanonized graph: want ErrNotCanonized, got %v", err)
	}
	if err := X.Canonize(); err != nil {
		t.Fatal(err)
	}
	key, err := X.Key()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(key, mustKey(t, X)) {
		t.Fatal("memoized key disagrees with CanonicalKey")
	}
}

func TestSearchBudget(t *testing.T) {
	X := mustGraph(t, "1-2,2-3,3-4,4-5,5-6,6-1")
	defer X.Reclaim()

	_, err := libcanon.CanonicalFormWithOpts(X, libcanon.CanonicalFormOpts{
		NodeBudget: 1,
	})
	if !errors.Is(err, gocanon.ErrSearchBudget) {
		t.Fatalf("want ErrSearchBudget, got %v", err)
	}

	// A generous budget succeeds.
	res, err := libcanon.CanonicalFormWithOpts(X, libcanon.CanonicalFormOpts{
		NodeBudget: 1 << 20,
	})
	if err != nil {
		t.Fatal(err)
	}
	res.Graph.Reclaim()
}

func TestColoringOverride(t *testing.T) {
	X := mustGraph(t, "1-2,2-3")
	defer X.Reclaim()

	// Pinning the middle vertex's color class changes nothing; pinning an
	// endpoint kills the swap.
	res, err := libcanon.CanonicalFormWithOpts(X, libcanon.CanonicalFormOpts{
		Coloring: gocanon.Coloring{7, 0, 7},
	})
	if err != nil {
		t.Fatal(err)
	}
	order, _ := gocanon.GroupOrder(3, res.Generators, 64)
	if order != 2 {
		t.Fatalf("symmetric coloring: want order 2, got %d", order)
	}
	res.Graph.Reclaim()

	res, err = libcanon.CanonicalFormWithOpts(X, libcanon.CanonicalFormOpts{
		Coloring: gocanon.Coloring{7, 0, 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Generators) != 0 {
		t.Fatalf("asymmetric coloring still found automorphisms: %v", res.Generators)
	}
	res.Graph.Reclaim()
}
