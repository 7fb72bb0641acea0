// Package config holds the run-wide settings derived from CLI flags:
// the splitter's own options (paths, zoom, border, map sizing) plus the
// ambient logging/metrics settings.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MapSizes holds the three initial-capacity or max-id values the `size`
// and `max-ids` flags each parse into, one per element type.
type MapSizes struct {
	Nodes, Ways, Relations int64
}

// ParseMapSizes parses a "n,w,r" triple. An empty string yields a zero
// MapSizes (backend falls back to its own default).
func ParseMapSizes(s string) (MapSizes, error) {
	if s == "" {
		return MapSizes{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return MapSizes{}, fmt.Errorf("expected n,w,r but got %q", s)
	}
	vals := make([]int64, 3)
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return MapSizes{}, fmt.Errorf("invalid size %q: %w", p, err)
		}
		vals[i] = v
	}
	return MapSizes{Nodes: vals[0], Ways: vals[1], Relations: vals[2]}, nil
}

// Config holds all settings for one splitter run.
type Config struct {
	// Input/output
	InputFile   string
	OutputPath  string // tile filename pattern, or MBTiles path if MBTiles is set
	PolygonFile string
	DateFile    string

	// Tiling
	Zoom   int
	Border float64

	// Feature flags
	Metadata      bool // keep version+timestamp in output
	Complete      bool // full tile completion for all relations
	CompleteAreas bool // full tile completion for multipolygon relations only
	MBTiles       bool // write a single MBTiles database instead of per-tile files

	// Resource limits
	MaxFiles  int
	Sizes     MapSizes // initial map capacities ("size" flag)
	MaxIDs    MapSizes // caps selecting the array-backed map ("max-ids" flag)
	MmapIndex bool     // back the array map with a scratch-file mmap instead of heap slices
	MmapDir   string   // directory for mmap scratch files, defaults to os.TempDir()

	// Optimisation
	NodeLimit int // 0 disables the coalescing pass

	// Ambient
	Verbose         bool
	Timing          bool
	LogFile         string
	MetricsInterval time.Duration
}

// DefaultConfig returns a configuration with the splitter's documented
// defaults (zoom 13, no border, at most 32 files open at once).
func DefaultConfig() *Config {
	return &Config{
		Zoom:            13,
		Border:          0,
		MaxFiles:        32,
		MetricsInterval: 30 * time.Second,
	}
}

// Validate checks that the configuration is runnable before any map
// allocation happens.
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if c.Zoom < 0 || c.Zoom > 16 {
		return fmt.Errorf("zoom must be in [0,16], got %d", c.Zoom)
	}
	if c.Border < 0 || c.Border > 1 {
		return fmt.Errorf("border must be in [0,1], got %f", c.Border)
	}
	if c.MaxFiles < 1 {
		return fmt.Errorf("maxfiles must be at least 1")
	}
	if c.Complete && c.CompleteAreas {
		return fmt.Errorf("complete and complete-areas are mutually exclusive")
	}
	if c.NodeLimit < 0 {
		return fmt.Errorf("optimize node limit must be >= 0")
	}
	return nil
}
