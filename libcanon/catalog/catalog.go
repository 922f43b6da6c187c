// Package catalog persists canonical graph encodings in a badger database,
// deduplicating graphs up to isomorphism across process runs.
//
// Layout:
//
//	gCatalogStateKey          => CatalogState (version + per-vertex-count tallies)
//	'G', canonicalKey...      => canonical graph expression (utf8)
//
// Canonical keys begin with the vertex count, so enumerating all graphs of a
// given size is a prefix scan.
package catalog

import (
	"encoding/binary"
	"runtime"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/canon-systems/gocanon/gocanon"
	"github.com/canon-systems/gocanon/libcanon"
)

const (
	majorVers = 2026
	minorVers = 1
)

var (
	gCatalogStateKey = []byte{0x00, 0x00, 0x01}
	gGraphKeyPrefix  = []byte{'G'}
)

func init() {
	gocanon.RegisterCatalogOpener = OpenCatalog
}

// CatalogState is the catalog's versioned header record.
type CatalogState struct {
	MajorVers int64
	MinorVers int64
	NumGraphs []uint64 // indexed by vertex count; [0] unused
}

func (state *CatalogState) Marshal() []byte {
	buf := make([]byte, 0, 16+10*len(state.NumGraphs))
	buf = binary.AppendVarint(buf, state.MajorVers)
	buf = binary.AppendVarint(buf, state.MinorVers)
	buf = binary.AppendUvarint(buf, uint64(len(state.NumGraphs)))
	for _, n := range state.NumGraphs {
		buf = binary.AppendUvarint(buf, n)
	}
	return buf
}

func (state *CatalogState) Unmarshal(buf []byte) error {
	var n int
	state.MajorVers, n = binary.Varint(buf)
	if n <= 0 {
		return gocanon.ErrUnmarshal
	}
	buf = buf[n:]
	state.MinorVers, n = binary.Varint(buf)
	if n <= 0 {
		return gocanon.ErrUnmarshal
	}
	buf = buf[n:]
	count, n := binary.Uvarint(buf)
	if n <= 0 {
		return gocanon.ErrUnmarshal
	}
	buf = buf[n:]
	state.NumGraphs = make([]uint64, count)
	for i := range state.NumGraphs {
		state.NumGraphs[i], n = binary.Uvarint(buf)
		if n <= 0 {
			return gocanon.ErrUnmarshal
		}
		buf = buf[n:]
	}
	return nil
}

type catalog struct {
	ctx        gocanon.CatalogContext
	readOnly   bool
	stateDirty bool
	state      CatalogState
	db         *badger.DB
}

// OpenCatalog opens a new or existing catalog. An empty DbPathName opens an
// in-memory catalog, which cannot be read-only.
func OpenCatalog(ctx gocanon.CatalogContext, opts gocanon.CatalogOpts) (gocanon.Catalog, error) {
	cat := &catalog{
		ctx:      ctx,
		readOnly: opts.ReadOnly,
	}

	dbOpts := badger.DefaultOptions(opts.DbPathName)
	dbOpts.ReadOnly = opts.ReadOnly
	dbOpts.DetectConflicts = false // single writer so disable for performance
	dbOpts.Logger = nil
	dbOpts.MetricsEnabled = false

	// Badger for windows currently does not support read-only mode
	if runtime.GOOS == "windows" {
		dbOpts.ReadOnly = false
	}

	if len(opts.DbPathName) == 0 {
		if opts.ReadOnly {
			return nil, errors.Wrap(gocanon.ErrBadCatalogParam, "DbPathName must be specified for read-only catalog")
		}
		dbOpts.InMemory = true
	}

	var err error
	cat.db, err = badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}

	// Once the db is open, the catalog ctx blocks until the catalog closes
	ctx.AttachCatalog(cat)

	err = cat.loadState()
	if err == badger.ErrKeyNotFound {
		err = nil
		cat.stateDirty = true
		cat.state.MajorVers = majorVers
		cat.state.MinorVers = minorVers
		cat.state.NumGraphs = make([]uint64, 1)
	}
	if err == nil && (cat.state.MajorVers != majorVers || cat.state.MinorVers != minorVers) {
		err = errors.New("catalog version is incompatible")
	}
	if err != nil {
		cat.Close()
		return nil, err
	}
	return cat, nil
}

func (cat *catalog) loadState() error {
	return cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gCatalogStateKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cat.state.Unmarshal(val)
		})
	})
}

func (cat *catalog) flushState() {
	if !cat.stateDirty || cat.db == nil {
		return
	}
	err := cat.db.Update(func(txn *badger.Txn) error {
		return txn.Set(gCatalogStateKey, cat.state.Marshal())
	})
	if err != nil {
		panic(err)
	}
	cat.stateDirty = false
}

func (cat *catalog) Close() error {
	if !cat.readOnly {
		cat.flushState()
	}
	if cat.db != nil {
		cat.db.Close()
		cat.db = nil
		cat.ctx.DetachCatalog(cat)
		cat.ctx = nil
	}
	return nil
}

func (cat *catalog) IsReadOnly() bool {
	return cat.readOnly
}

// NumGraphs returns how many distinct canonical forms are stored for a given
// vertex count; 0 returns the total.
func (cat *catalog) NumGraphs(forVtxCount int32) int64 {
	if forVtxCount == 0 {
		total := int64(0)
		for _, n := range cat.state.NumGraphs {
			total += int64(n)
		}
		return total
	}
	if forVtxCount < 0 || int(forVtxCount) >= len(cat.state.NumGraphs) {
		return 0
	}
	return int64(cat.state.NumGraphs[forVtxCount])
}

func graphDbKey(canonKey []byte) []byte {
	dbKey := make([]byte, 0, 1+len(canonKey))
	dbKey = append(dbKey, gGraphKeyPrefix...)
	return append(dbKey, canonKey...)
}

// TryAddGraph adds X's canonical form to the catalog.
// Returns true if it was not yet present and was added.
func (cat *catalog) TryAddGraph(X gocanon.GraphState) (bool, error) {
	if cat.db == nil {
		return false, gocanon.ErrCatalogClosed
	}
	canonKey, err := X.CanonicalKey()
	if err != nil {
		return false, err
	}
	dbKey := graphDbKey(canonKey)

	exists := false
	err = cat.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(dbKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err == nil {
			exists = true
		}
		return err
	})
	if err != nil || exists {
		return false, err
	}
	if cat.readOnly {
		return false, errors.Wrap(gocanon.ErrBadCatalogParam, "catalog is read-only")
	}

	canonical := X.MakeCopy()
	defer canonical.Reclaim()
	if err := canonical.Canonize(); err != nil {
		return false, err
	}

	var expr []byte
	if Xg, ok := canonical.(*libcanon.Graph); ok {
		expr = []byte(Xg.ExprString())
	}

	err = cat.db.Update(func(txn *badger.Txn) error {
		return txn.Set(dbKey, expr)
	})
	if err != nil {
		return false, err
	}

	numVerts := int(canonKey[0])<<8 | int(canonKey[1])
	for len(cat.state.NumGraphs) <= numVerts {
		cat.state.NumGraphs = append(cat.state.NumGraphs, 0)
	}
	cat.state.NumGraphs[numVerts]++
	cat.stateDirty = true
	return true, nil
}

// Select fires onHit with each stored graph matching sel, in canonical key
// order. Ownership of each pushed graph travels through the channel.
func (cat *catalog) Select(sel gocanon.GraphSelector, onHit gocanon.OnGraphHit) {
	if cat.db == nil {
		return
	}
	cat.db.View(func(txn *badger.Txn) error {
		itr := txn.NewIterator(badger.IteratorOptions{
			Prefix: gGraphKeyPrefix,
		})
		defer itr.Close()

		for itr.Rewind(); itr.Valid(); itr.Next() {
			var X *libcanon.Graph
			err := itr.Item().Value(func(val []byte) error {
				var err error
				X, err = libcanon.NewGraphFromExpr(string(val))
				return err
			})
			if err != nil {
				continue
			}
			if !sel.SelectsGraph(X) {
				X.Reclaim()
				continue
			}
			onHit <- X
		}
		return nil
	})
}
