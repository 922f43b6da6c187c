package catalog_test

import (
	"os"
	"path"
	"testing"

	"github.com/canon-systems/gocanon/gocanon"
	"github.com/canon-systems/gocanon/libcanon"
	_ "github.com/canon-systems/gocanon/libcanon/catalog"
)

func addExpr(t *testing.T, cat gocanon.Catalog, expr string) bool {
	t.Helper()
	X, err := libcanon.NewGraphFromExpr(expr)
	if err != nil {
		t.Fatalf("parse %q: %v", expr, err)
	}
	defer X.Reclaim()
	added, err := cat.TryAddGraph(X)
	if err != nil {
		t.Fatalf("add %q: %v", expr, err)
	}
	return added
}

func TestBasics(t *testing.T) {
	dir, err := os.MkdirTemp("", "junk*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	ctx := gocanon.NewCatalogContext()
	defer func() {
		ctx.Close()
		<-ctx.Done()
	}()

	opts := gocanon.CatalogOpts{
		DbPathName: path.Join(dir, "TestBasics"),
	}
	cat, err := ctx.OpenCatalog(opts)
	if err != nil {
		t.Fatal(err)
	}

	distinct := []string{
		"1",
		"1-2",
		"1-2,2-3",
		"1-2,2-3,3-1",
		"1-2,2-3,3-4,4-1",
		"1>2,2>3,3>1",
	}
	for _, expr := range distinct {
		if !addExpr(t, cat, expr) {
			t.Fatalf("%q should be new", expr)
		}
		if addExpr(t, cat, expr) {
			t.Fatalf("%q added twice", expr)
		}
	}

	// Isomorphic relabellings must be rejected as duplicates.
	for _, expr := range []string{"3-2,2-1", "2-1,1-3,3-2", "1-4,4-2,2-3,3-1"} {
		if addExpr(t, cat, expr) {
			t.Fatalf("%q is isomorphic to a stored graph", expr)
		}
	}

	if n := cat.NumGraphs(0); n != int64(len(distinct)) {
		t.Fatalf("want %d graphs total, got %d", len(distinct), n)
	}
	if n := cat.NumGraphs(3); n != 3 {
		t.Fatalf("want 3 graphs on 3 vertices, got %d", n)
	}

	// Select streams everything back in key order.
	{
		total := 0
		onHit := make(chan gocanon.GraphState)
		go func() {
			cat.Select(gocanon.DefaultGraphSelector, onHit)
			close(onHit)
		}()
		for X := range onHit {
			total++
			X.Reclaim()
		}
		if total != len(distinct) {
			t.Fatalf("Select: want %d, got %d", len(distinct), total)
		}
	}

	// Bounded select: only the 3-vertex graphs.
	{
		sel := gocanon.DefaultGraphSelector
		sel.Min.NumVerts = 3
		sel.Max.NumVerts = 3
		total := 0
		onHit := make(chan gocanon.GraphState)
		go func() {
			cat.Select(sel, onHit)
			close(onHit)
		}()
		for X := range onHit {
			total++
			X.Reclaim()
		}
		if total != 3 {
			t.Fatalf("bounded Select: want 3, got %d", total)
		}
	}

	// State survives reopen.
	cat.Close()
	cat, err = ctx.OpenCatalog(opts)
	if err != nil {
		t.Fatal(err)
	}
	defer cat.Close()

	if n := cat.NumGraphs(0); n != int64(len(distinct)) {
		t.Fatalf("after reopen: want %d graphs, got %d", len(distinct), n)
	}
	if addExpr(t, cat, "2-3,3-1,1-2") {
		t.Fatal("dedup state lost across reopen")
	}
}

func TestInMemoryCatalog(t *testing.T) {
	ctx := gocanon.NewCatalogContext()
	defer func() {
		ctx.Close()
		<-ctx.Done()
	}()

	cat, err := ctx.OpenCatalog(gocanon.CatalogOpts{})
	if err != nil {
		t.Fatal(err)
	}
	defer cat.Close()

	if !addExpr(t, cat, "1-2,2-3") {
		t.Fatal("first add should succeed")
	}
	if addExpr(t, cat, "3-2,2-1") {
		t.Fatal("isomorphic duplicate accepted")
	}
	if cat.NumGraphs(3) != 1 {
		t.Fatal("count mismatch")
	}
}

func TestReadOnlyCatalogNeedsPath(t *testing.T) {
	ctx := gocanon.NewCatalogContext()
	defer func() {
		ctx.Close()
		<-ctx.Done()
	}()

	if _, err := ctx.OpenCatalog(gocanon.CatalogOpts{ReadOnly: true}); err == nil {
		t.Fatal("read-only in-memory catalog should be rejected")
	}
}
