package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/plan-systems/klog"

	"github.com/canon-systems/gocanon/gocanon"
	"github.com/canon-systems/gocanon/libcanon"
	_ "github.com/canon-systems/gocanon/libcanon/catalog"
)

func main() {
	os.Exit(run())
}

func run() int {
	fset := flag.NewFlagSet("", flag.ContinueOnError)
	klog.InitFlags(fset)
	fset.Set("logtostderr", "true")
	fset.Set("v", "2")
	klog.SetFormatter(&klog.FmtConstWidth{
		FileNameCharWidth: 16,
		UseColor:          true,
	})
	defer klog.Flush()

	catalogPath := flag.String("catalog", "", "dedupe inputs into the catalog db at this path")
	showAutom := flag.Bool("autom", false, "print automorphism generators and group info")
	budget := flag.Int64("budget", 0, "search node budget, 0 for unbounded")
	flag.Parse()

	exprs := flag.Args()
	if len(exprs) == 0 {
		fmt.Fprintln(os.Stderr, "usage: gocanon [-catalog path] [-autom] graphExpr ...")
		return 2
	}

	var cat gocanon.Catalog
	if *catalogPath != "" {
		ctx := gocanon.NewCatalogContext()
		defer func() {
			ctx.Close()
			<-ctx.Done()
		}()

		var err error
		cat, err = ctx.OpenCatalog(gocanon.CatalogOpts{
			DbPathName: *catalogPath,
		})
		if err != nil {
			klog.Errorf("open catalog: %v", err)
			return 1
		}
		defer cat.Close()
	}

	exitCode := 0
	for _, expr := range exprs {
		if err := emitCanonical(expr, cat, *showAutom, *budget); err != nil {
			klog.Errorf("%q: %v", expr, err)
			exitCode = 1
		}
	}
	return exitCode
}

func emitCanonical(expr string, cat gocanon.Catalog, showAutom bool, budget int64) error {
	X, err := libcanon.NewGraphFromExpr(expr)
	if err != nil {
		return err
	}
	defer X.Reclaim()

	res, err := libcanon.CanonicalFormWithOpts(X, libcanon.CanonicalFormOpts{
		NodeBudget: budget,
	})
	if err != nil {
		return err
	}
	defer res.Graph.Reclaim()

	keyStr, err := res.Graph.KeyString()
	if err != nil {
		return err
	}
	fmt.Printf("%s => %s  key=%s\n", expr, res.Graph.ExprString(), keyStr)

	if showAutom {
		for i, g := range res.Generators {
			fmt.Printf("   gen[%d] = %v\n", i, g)
		}
		order, exact := gocanon.GroupOrder(int(X.NumVerts()), res.Generators, 1<<20)
		if exact {
			fmt.Printf("   |Aut| = %d, orbits = %d\n", order, res.Autom.NumOrbits)
		} else {
			fmt.Printf("   |Aut| > 2^20 (capped), orbits = %d\n", res.Autom.NumOrbits)
		}
	}

	if cat != nil {
		added, err := cat.TryAddGraph(X)
		if err != nil {
			return err
		}
		if added {
			klog.Infof("added to catalog (now %d graphs)", cat.NumGraphs(0))
		} else {
			klog.Infof("already in catalog")
		}
	}
	return nil
}
