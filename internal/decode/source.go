// Package decode wraps paulmach/osm/osmpbf into the single-threaded
// cooperative scheduling model required for ingest: the scanner runs its
// own read loop on a dedicated goroutine (because it's an external
// collaborator driving its own I/O loop), but every decoded element is
// handed off synchronously. The decoder blocks until the owner consumes
// it, and the owner blocks between elements, so there is never any
// concurrent access to the caller's maps. Pass 1 and pass 3 have no
// parallel data-plane work to fan out to, so there's a single handoff
// channel rather than a worker pool.
package decode

import (
	"context"
	"fmt"
	"io"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"github.com/osmtools/mapsplit-go/internal/osmdata"
)

// Handler receives each decoded element in PBF order (all nodes, then all
// ways, then all relations). A non-nil error from any callback aborts the
// run and is returned from Run.
type Handler struct {
	OnNode     func(osmdata.Node) error
	OnWay      func(osmdata.Way) error
	OnRelation func(osmdata.Relation) error
}

type handoff struct {
	obj osm.Object
	err error
}

// Run decodes every element of r, calling the matching Handler callback
// for each, in the input's order. numWorkers is passed straight through
// to osmpbf.New, which uses it to parallelize block decompression
// internally; it has no bearing on the cooperative handoff to the
// handler.
func Run(ctx context.Context, r io.Reader, numWorkers int, h Handler) error {
	scanner := osmpbf.New(ctx, r, numWorkers)
	defer scanner.Close()

	elements := make(chan handoff)
	done := make(chan struct{})

	go func() {
		defer close(elements)
		for scanner.Scan() {
			select {
			case elements <- handoff{obj: scanner.Object()}:
			case <-done:
				return
			}
		}
		if err := scanner.Err(); err != nil && err != io.EOF {
			select {
			case elements <- handoff{err: err}:
			case <-done:
			}
		}
	}()
	defer close(done)

	for ho := range elements {
		if ho.err != nil {
			return fmt.Errorf("decode: %w", ho.err)
		}
		if err := dispatch(ho.obj, h); err != nil {
			return err
		}
	}
	return nil
}

func dispatch(obj osm.Object, h Handler) error {
	switch o := obj.(type) {
	case *osm.Node:
		if h.OnNode == nil {
			return nil
		}
		return h.OnNode(convertNode(o))
	case *osm.Way:
		if h.OnWay == nil {
			return nil
		}
		return h.OnWay(convertWay(o))
	case *osm.Relation:
		if h.OnRelation == nil {
			return nil
		}
		return h.OnRelation(convertRelation(o))
	default:
		return nil
	}
}

func convertNode(n *osm.Node) osmdata.Node {
	return osmdata.Node{
		ID:        int64(n.ID),
		Lat:       n.Lat,
		Lon:       n.Lon,
		Timestamp: n.Timestamp,
		Version:   n.Version,
		Tags:      n.Tags.Map(),
	}
}

func convertWay(w *osm.Way) osmdata.Way {
	nodes := make([]int64, len(w.Nodes))
	for i, wn := range w.Nodes {
		nodes[i] = int64(wn.ID)
	}
	return osmdata.Way{
		ID:        int64(w.ID),
		Nodes:     nodes,
		Timestamp: w.Timestamp,
		Version:   w.Version,
		Tags:      w.Tags.Map(),
	}
}

func convertRelation(r *osm.Relation) osmdata.Relation {
	members := make([]osmdata.Member, len(r.Members))
	for i, m := range r.Members {
		members[i] = osmdata.Member{
			Type: convertMemberType(m.Type),
			Ref:  m.Ref,
			Role: m.Role,
		}
	}
	return osmdata.Relation{
		ID:        int64(r.ID),
		Members:   members,
		Timestamp: r.Timestamp,
		Version:   r.Version,
		Tags:      r.Tags.Map(),
	}
}

func convertMemberType(t osm.Type) osmdata.MemberType {
	switch t {
	case osm.TypeWay:
		return osmdata.WayMember
	case osm.TypeRelation:
		return osmdata.RelationMember
	default:
		return osmdata.NodeMember
	}
}
