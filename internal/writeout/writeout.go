// Package writeout implements pass 3: draining the modified-tile set
// (optionally split across zoom levels by the optimisation pass) into
// open encoders by re-streaming the input once per batch of at most
// maxFiles tiles.
package writeout

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/osmtools/mapsplit-go/internal/decode"
	"github.com/osmtools/mapsplit-go/internal/encode"
	"github.com/osmtools/mapsplit-go/internal/geo"
	"github.com/osmtools/mapsplit-go/internal/optimize"
	"github.com/osmtools/mapsplit-go/internal/osmdata"
	"github.com/osmtools/mapsplit-go/internal/osmmap"
	"github.com/osmtools/mapsplit-go/internal/tileset"
)

// Options configures a write-out run.
type Options struct {
	Border     float64
	MaxFiles   int
	KeepMeta   bool // keep version/timestamp in output elements
	NumWorkers int  // passed through to osmpbf for block decompression
	Bound      geo.Bound
	LatestDate time.Time
}

// Run drains modified (or, if plan is non-nil, plan's per-zoom sets)
// into sink, re-opening the input via openInput once per batch. baseZoom
// is the zoom modified's tiles are expressed at.
func Run(ctx context.Context, openInput func() (io.ReadCloser, error), sink encode.Sink, nodeMap, wayMap, relMap osmmap.Map, baseZoom int, modified *tileset.Set, plan *optimize.Plan, opts Options, log *zap.Logger) error {
	zoomSets := map[int]*tileset.Set{baseZoom: modified}
	if plan != nil {
		zoomSets = plan.ByZoom
	}

	zooms := make([]int, 0, len(zoomSets))
	for z := range zoomSets {
		zooms = append(zooms, z)
	}
	sort.Ints(zooms)

	minZoom, maxZoom := baseZoom, baseZoom
	if len(zooms) > 0 {
		minZoom, maxZoom = zooms[0], zooms[len(zooms)-1]
	}

	for _, zoom := range zooms {
		if err := drainZoom(ctx, openInput, sink, nodeMap, wayMap, relMap, baseZoom, zoom, zoomSets[zoom], plan, opts, log); err != nil {
			return err
		}
	}

	meta := encode.Metadata{
		MinZoom:    minZoom,
		MaxZoom:    maxZoom,
		Bound:      opts.Bound,
		LatestDate: opts.LatestDate,
	}
	return sink.Finalize(meta)
}

func drainZoom(ctx context.Context, openInput func() (io.ReadCloser, error), sink encode.Sink, nodeMap, wayMap, relMap osmmap.Map, baseZoom, zoom int, tiles *tileset.Set, plan *optimize.Plan, opts Options, log *zap.Logger) error {
	if tiles == nil || tiles.Cardinality() == 0 {
		return nil
	}
	proj := geo.Projection{Zoom: zoom, Border: opts.Border}

	all := tiles.Tiles()
	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = len(all)
	}

	for cursor := 0; cursor < len(all); cursor += maxFiles {
		end := cursor + maxFiles
		if end > len(all) {
			end = len(all)
		}
		batch := all[cursor:end]
		if err := runBatch(ctx, openInput, sink, nodeMap, wayMap, relMap, baseZoom, zoom, batch, proj, plan, opts, log); err != nil {
			return err
		}
	}
	return nil
}

func runBatch(ctx context.Context, openInput func() (io.ReadCloser, error), sink encode.Sink, nodeMap, wayMap, relMap osmmap.Map, baseZoom, zoom int, batch []uint32, proj geo.Projection, plan *optimize.Plan, opts Options, log *zap.Logger) error {
	open := make(map[uint32]encode.TileEncoder, len(batch))
	wanted := make(map[uint32]bool, len(batch))
	for _, t := range batch {
		wanted[t] = true
	}

	for _, t := range batch {
		tile := geo.TileID(t)
		enc, err := sink.NewEncoder(zoom, tile.X(), tile.Y())
		if err != nil {
			return fmt.Errorf("writeout: opening encoder for tile %d/%d/%d: %w", zoom, tile.X(), tile.Y(), err)
		}
		if err := enc.WriteBound(proj.Bounds(tile.X(), tile.Y())); err != nil {
			return fmt.Errorf("writeout: writing bound for tile %d/%d/%d: %w", zoom, tile.X(), tile.Y(), err)
		}
		open[t] = enc
	}
	defer func() {
		for _, enc := range open {
			if err := enc.Close(); err != nil {
				log.Warn("error closing tile encoder", zap.Error(err))
			}
		}
	}()

	r, err := openInput()
	if err != nil {
		return fmt.Errorf("writeout: reopening input: %w", err)
	}
	defer r.Close()

	route := func(id int64, m osmmap.Map, emit func(t uint32, enc encode.TileEncoder) error) error {
		allTiles, ok := m.AllTiles(id)
		if !ok {
			return nil
		}
		for _, target := range routeTargets(allTiles, baseZoom, zoom, plan, wanted) {
			enc, ok := open[target]
			if !ok {
				continue
			}
			if err := emit(target, enc); err != nil {
				return err
			}
		}
		return nil
	}

	h := decode.Handler{
		OnNode: func(n osmdata.Node) error {
			if !opts.KeepMeta {
				n.Version = 0
				n.Timestamp = time.Time{}
			}
			return route(n.ID, nodeMap, func(_ uint32, enc encode.TileEncoder) error { return enc.WriteNode(n) })
		},
		OnWay: func(w osmdata.Way) error {
			if !opts.KeepMeta {
				w.Version = 0
				w.Timestamp = time.Time{}
			}
			return route(w.ID, wayMap, func(_ uint32, enc encode.TileEncoder) error { return enc.WriteWay(w) })
		},
		OnRelation: func(rel osmdata.Relation) error {
			if !opts.KeepMeta {
				rel.Version = 0
				rel.Timestamp = time.Time{}
			}
			return route(rel.ID, relMap, func(_ uint32, enc encode.TileEncoder) error { return enc.WriteRelation(rel) })
		},
	}

	return decode.Run(ctx, r, opts.NumWorkers, h)
}

// routeTargets resolves an element's base-zoom tile set down to the
// subset of tiles (after an optional optimisation remap) that land in
// the currently open batch at zoom. Distinct base tiles can remap onto
// the same coalesced target, so the result is deduplicated.
func routeTargets(baseTiles []uint32, baseZoom, zoom int, plan *optimize.Plan, wanted map[uint32]bool) []uint32 {
	var out []uint32
	seen := make(map[uint32]bool, len(baseTiles))
	for _, t := range baseTiles {
		target, targetZoom := t, baseZoom
		if plan != nil {
			target, targetZoom = plan.Remap(t)
		}
		if targetZoom != zoom || !wanted[target] || seen[target] {
			continue
		}
		seen[target] = true
		out = append(out, target)
	}
	return out
}
