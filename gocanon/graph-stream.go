package gocanon

import (
	"fmt"
	"io"
	"strings"
)

// GraphStream is a channel-based pipeline of GraphState instances.
// Each operator consumes its upstream outlet and owns what it pulls.
type GraphStream struct {
	Outlet chan GraphState
}

func NewGraphStream() *GraphStream {
	stream := &GraphStream{
		Outlet: make(chan GraphState),
	}
	return stream
}

// StreamGraph starts a stream carrying a single copy of X.
func StreamGraph(X GraphState) *GraphStream {
	next := NewGraphStream()

	go func() {
		next.Outlet <- X.MakeCopy()
		next.Close()
	}()

	return next
}

func (stream *GraphStream) Close() {
	if stream.Outlet != nil {
		close(stream.Outlet)
	}
}

func (stream *GraphStream) PushGraph(X GraphState) {
	stream.Outlet <- X.MakeCopy()
}

func (stream *GraphStream) PullGraph() GraphState {
	X := <-stream.Outlet
	return X
}

// PullAll drains this stream, reclaiming every graph, and returns the count.
func (stream *GraphStream) PullAll() int {
	count := int(0)
	for X := range stream.Outlet {
		count++
		X.Reclaim()
	}
	return count
}

// Canonize passes every graph downstream in canonical form.
// Graphs that fail to canonize are dropped and their error reported through onErr (if non-nil).
func (stream *GraphStream) Canonize(onErr func(err error)) *GraphStream {
	next := NewGraphStream()

	go func() {
		for X := range stream.Outlet {
			if err := X.Canonize(); err != nil {
				if onErr != nil {
					onErr(err)
				}
				X.Reclaim()
				continue
			}
			next.Outlet <- X
		}
		next.Close()
	}()

	return next
}

// DropDuplicates only passes through graphs whose canonical form has not been
// seen by dst. Isomorphic duplicates are reclaimed.
func (stream *GraphStream) DropDuplicates(dst GraphAdder, onErr func(err error)) *GraphStream {
	next := NewGraphStream()

	go func() {
		for X := range stream.Outlet {
			added, err := dst.TryAddGraph(X)
			if err != nil {
				if onErr != nil {
					onErr(err)
				}
				X.Reclaim()
				continue
			}
			if !added {
				X.Reclaim()
				continue
			}
			next.Outlet <- X
		}
		next.Close()
	}()

	return next
}

// Print writes each graph passing through to out and forwards it downstream.
func (stream *GraphStream) Print(out io.Writer, opts PrintOpts) *GraphStream {
	next := &GraphStream{
		Outlet: make(chan GraphState, 1),
	}

	go func() {
		buf := strings.Builder{}
		buf.Grow(256)

		count := 0
		for X := range stream.Outlet {
			buf.Reset()
			if len(opts.Label) > 0 {
				buf.WriteString(opts.Label)
				buf.WriteByte(',')
			}

			count++
			fmt.Fprintf(&buf, "%06d,", count)
			X.WriteAsString(&buf, opts)
			buf.WriteByte('\n')
			io.WriteString(out, buf.String())

			next.Outlet <- X
		}
		next.Close()
	}()

	return next
}
