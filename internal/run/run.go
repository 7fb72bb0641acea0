// Package run wires the splitter's passes together into one end-to-end
// execution: pass 1 ingestion, optional pass 2 completion, optional clip
// and optimisation, pass 3 write-out, and the date file update. A
// background metrics collector runs alongside the main sequential
// pipeline when --timing is set.
package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/osmtools/mapsplit-go/internal/clip"
	"github.com/osmtools/mapsplit-go/internal/config"
	"github.com/osmtools/mapsplit-go/internal/datefile"
	"github.com/osmtools/mapsplit-go/internal/decode"
	"github.com/osmtools/mapsplit-go/internal/encode"
	"github.com/osmtools/mapsplit-go/internal/geo"
	"github.com/osmtools/mapsplit-go/internal/ingest"
	"github.com/osmtools/mapsplit-go/internal/logger"
	"github.com/osmtools/mapsplit-go/internal/manifest"
	"github.com/osmtools/mapsplit-go/internal/metrics"
	"github.com/osmtools/mapsplit-go/internal/optimize"
	"github.com/osmtools/mapsplit-go/internal/osmdata"
	"github.com/osmtools/mapsplit-go/internal/osmmap"
	"github.com/osmtools/mapsplit-go/internal/writeout"
)

// defaultMapCapacity seeds a HashMap's initial table size when no --size
// value was given for that element type.
const defaultMapCapacity = 1 << 20

// Stats summarizes one run for the final log line.
type Stats struct {
	Nodes, Ways, Relations int64
	TilesWritten           int
	Duration               time.Duration
}

// Run executes a full splitter pass over cfg's input and produces its
// configured output.
func Run(ctx context.Context, cfg *config.Config) (*Stats, error) {
	log := logger.Get()
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	cancelMetrics := func() {}
	if cfg.Timing && cfg.MetricsInterval > 0 {
		var metricsCtx context.Context
		metricsCtx, cancelMetrics = context.WithCancel(gctx)
		collector := metrics.NewCollector(cfg.MetricsInterval, log)
		g.Go(func() error {
			collector.Start(metricsCtx)
			return nil
		})
	}

	stats, err := runPasses(gctx, cfg, log)
	cancelMetrics()
	if waitErr := g.Wait(); waitErr != nil && err == nil {
		err = waitErr
	}
	if err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)

	if cfg.Timing {
		m := manifest.Manifest{
			Input:      cfg.InputFile,
			Output:     cfg.OutputPath,
			Zoom:       cfg.Zoom,
			Border:     cfg.Border,
			Nodes:      stats.Nodes,
			Ways:       stats.Ways,
			Relations:  stats.Relations,
			Tiles:      stats.TilesWritten,
			Duration:   stats.Duration,
			FinishedAt: time.Now(),
		}
		if err := manifest.Write(manifest.Path(cfg.OutputPath), m); err != nil {
			log.Warn("writing run manifest", zap.Error(err))
		}
	}

	return stats, nil
}

func runPasses(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Stats, error) {
	appointmentDate, err := datefile.Read(cfg.DateFile)
	if err != nil {
		return nil, err
	}

	nodeMap, closeNodeMap, err := newMap(cfg, "nodes", cfg.Sizes.Nodes, cfg.MaxIDs.Nodes)
	if err != nil {
		return nil, fmt.Errorf("run: building node map: %w", err)
	}
	defer closeNodeMap()

	wayMap, closeWayMap, err := newMap(cfg, "ways", cfg.Sizes.Ways, cfg.MaxIDs.Ways)
	if err != nil {
		return nil, fmt.Errorf("run: building way map: %w", err)
	}
	defer closeWayMap()

	relMap, closeRelMap, err := newMap(cfg, "relations", cfg.Sizes.Relations, cfg.MaxIDs.Relations)
	if err != nil {
		return nil, fmt.Errorf("run: building relation map: %w", err)
	}
	defer closeRelMap()

	splitter := ingest.New(ingest.Options{
		Zoom:              cfg.Zoom,
		Border:            cfg.Border,
		AppointmentDate:   appointmentDate,
		CompleteRelations: cfg.Complete,
		CompleteAreas:     cfg.CompleteAreas,
	}, nodeMap, wayMap, relMap, logger.Named("ingest"))

	numWorkers := runtime.NumCPU()
	openInput := func() (io.ReadCloser, error) { return os.Open(cfg.InputFile) }

	var nodes, ways, rels int64
	if err := decodeOnce(ctx, openInput, numWorkers, decode.Handler{
		OnNode: func(n osmdata.Node) error {
			nodes++
			return splitter.AddNode(n)
		},
		OnWay: func(w osmdata.Way) error {
			ways++
			return splitter.AddWay(w)
		},
		OnRelation: func(r osmdata.Relation) error {
			rels++
			return splitter.AddRelation(r)
		},
	}); err != nil {
		return nil, fmt.Errorf("run: pass 1: %w", err)
	}

	if err := splitter.ResolveForwardReferences(); err != nil {
		return nil, fmt.Errorf("run: resolving forward references: %w", err)
	}

	if cfg.Complete || cfg.CompleteAreas {
		if err := decodeOnce(ctx, openInput, numWorkers, decode.Handler{
			OnWay: splitter.CompleteWay,
		}); err != nil {
			return nil, fmt.Errorf("run: pass 2: %w", err)
		}
	}

	modified := splitter.Modified
	proj := geo.Projection{Zoom: cfg.Zoom, Border: cfg.Border}

	if cfg.PolygonFile != "" {
		f, err := os.Open(cfg.PolygonFile)
		if err != nil {
			return nil, fmt.Errorf("run: opening polygon file: %w", err)
		}
		poly, err := clip.ParsePolygon(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("run: parsing polygon file: %w", err)
		}
		modified = clip.Apply(modified, proj, poly)
	}

	var plan *optimize.Plan
	if cfg.NodeLimit > 0 {
		plan = optimize.Run(modified, nodeMap, cfg.Zoom, cfg.NodeLimit)
	}

	sink, err := newSink(cfg)
	if err != nil {
		return nil, err
	}
	defer sink.Close()

	bound := splitter.Bound
	if bound == (geo.Bound{}) {
		bound = geo.World()
	}

	writeoutOpts := writeout.Options{
		Border:     cfg.Border,
		MaxFiles:   cfg.MaxFiles,
		KeepMeta:   cfg.Metadata,
		NumWorkers: numWorkers,
		Bound:      bound,
		LatestDate: splitter.LatestDate,
	}
	if err := writeout.Run(ctx, openInput, sink, nodeMap, wayMap, relMap, cfg.Zoom, modified, plan, writeoutOpts, logger.Named("writeout")); err != nil {
		return nil, fmt.Errorf("run: pass 3: %w", err)
	}

	if err := datefile.Write(cfg.DateFile, splitter.LatestDate); err != nil {
		return nil, err
	}

	log.Info("split complete",
		zap.Int64("nodes", nodes),
		zap.Int64("ways", ways),
		zap.Int64("relations", rels),
		zap.Int("tiles", modified.Cardinality()),
	)

	return &Stats{Nodes: nodes, Ways: ways, Relations: rels, TilesWritten: modified.Cardinality()}, nil
}

func decodeOnce(ctx context.Context, openInput func() (io.ReadCloser, error), numWorkers int, h decode.Handler) error {
	r, err := openInput()
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer r.Close()
	return decode.Run(ctx, r, numWorkers, h)
}

// newMap picks a backend for one element type and returns it alongside a
// close function (a no-op unless the mmap backend was chosen, in which
// case it unmaps and removes the scratch file).
func newMap(cfg *config.Config, name string, size, maxID int64) (osmmap.Map, func(), error) {
	noop := func() {}
	if maxID > 0 {
		if cfg.MmapIndex {
			dir := cfg.MmapDir
			if dir == "" {
				dir = os.TempDir()
			}
			path := filepath.Join(dir, fmt.Sprintf("mapsplit-%s-%d.idx", name, os.Getpid()))
			m, err := osmmap.NewMmapArrayMap(path, maxID)
			if err != nil {
				return nil, noop, err
			}
			return m, func() { m.Close() }, nil
		}
		return osmmap.NewArrayMap(maxID), noop, nil
	}
	if size <= 0 {
		size = defaultMapCapacity
	}
	return osmmap.NewHashMap(size), noop, nil
}

func newSink(cfg *config.Config) (encode.Sink, error) {
	if cfg.MBTiles {
		return encode.NewMBTilesSink(cfg.OutputPath, sinkName(cfg.InputFile))
	}
	return encode.NewFileSink(cfg.OutputPath), nil
}

func sinkName(inputFile string) string {
	if inputFile == "" {
		return "mapsplit"
	}
	return inputFile
}
