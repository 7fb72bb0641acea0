// Package encode implements the per-tile output side: the TileEncoder
// fan-out contract (ordered, one-shot, Bound-prefaced), and the two
// sinks pass 3 can target, individual per-tile files or a single
// MBTiles SQLite database. The wire format for individual tile files
// has no externally specified byte layout, so it's a small internal gob
// stream rather than a byte-for-byte PBF re-encoder.
package encode

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/osmtools/mapsplit-go/internal/geo"
	"github.com/osmtools/mapsplit-go/internal/osmdata"
)

// record is the on-wire shape of one encoded element. Exactly one of the
// pointer fields is non-nil.
type record struct {
	Bound    *geo.Bound
	Node     *osmdata.Node
	Way      *osmdata.Way
	Relation *osmdata.Relation
}

// TileEncoder receives a single tile's element stream: a Bound first,
// then nodes, ways, and relations in the input's order, each exactly
// once, per §4.9.
type TileEncoder interface {
	WriteBound(geo.Bound) error
	WriteNode(osmdata.Node) error
	WriteWay(osmdata.Way) error
	WriteRelation(osmdata.Relation) error
	Close() error
}

// gobEncoder is the shared implementation behind both sinks: it streams
// gob-encoded records into an io.Writer, tracking whether WriteBound has
// already run so a caller can't accidentally write two.
type gobEncoder struct {
	enc       *gob.Encoder
	boundSent bool
	closer    func() error
}

func newGobEncoder(w io.Writer, closer func() error) *gobEncoder {
	return &gobEncoder{enc: gob.NewEncoder(w), closer: closer}
}

func (e *gobEncoder) WriteBound(b geo.Bound) error {
	if e.boundSent {
		return fmt.Errorf("encode: WriteBound called more than once for this tile")
	}
	e.boundSent = true
	return e.enc.Encode(record{Bound: &b})
}

func (e *gobEncoder) WriteNode(n osmdata.Node) error {
	return e.enc.Encode(record{Node: &n})
}

func (e *gobEncoder) WriteWay(w osmdata.Way) error {
	return e.enc.Encode(record{Way: &w})
}

func (e *gobEncoder) WriteRelation(r osmdata.Relation) error {
	return e.enc.Encode(record{Relation: &r})
}

func (e *gobEncoder) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer()
}
