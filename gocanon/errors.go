package gocanon

import "errors"

// Errors
var (
	ErrMalformedGraph   = errors.New("malformed graph")
	ErrColoringMismatch = errors.New("coloring does not cover every vertex")
	ErrBadVtxID         = errors.New("bad graph vertex ID")
	ErrBadEdge          = errors.New("bad graph edge")
	ErrNilGraph         = errors.New("nil graph")
	ErrNotCanonized     = errors.New("graph has not been canonized")
	ErrSearchBudget     = errors.New("canonical search exceeded node budget")
	ErrBadCatalogParam  = errors.New("bad catalog param")
	ErrCatalogClosed    = errors.New("catalog is closed")
	ErrUnmarshal        = errors.New("unmarshal failed")
)
