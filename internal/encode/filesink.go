package encode

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileSink writes one file per tile under outputPattern, which either
// contains %z/%x/%y placeholders or is treated as a directory prefix,
// with files named "<zoom>/<x>_<y>.osm.pbf" per §6.
type FileSink struct {
	pattern string
}

// NewFileSink returns a Sink that writes individual per-tile files.
func NewFileSink(outputPattern string) *FileSink {
	return &FileSink{pattern: outputPattern}
}

func (s *FileSink) tilePath(zoom, x, y int) string {
	if strings.Contains(s.pattern, "%") {
		path := s.pattern
		path = strings.ReplaceAll(path, "%z", strconv.Itoa(zoom))
		path = strings.ReplaceAll(path, "%x", strconv.Itoa(x))
		path = strings.ReplaceAll(path, "%y", strconv.Itoa(y))
		return path
	}
	return filepath.Join(s.pattern, strconv.Itoa(zoom), fmt.Sprintf("%d_%d.osm.pbf", x, y))
}

func (s *FileSink) NewEncoder(zoom, x, y int) (TileEncoder, error) {
	path := s.tilePath(zoom, x, y)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("encode: creating directory for tile %d/%d/%d: %w", zoom, x, y, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("encode: creating tile file %s: %w", path, err)
	}
	return newGobEncoder(f, f.Close), nil
}

func (s *FileSink) Finalize(Metadata) error { return nil }

func (s *FileSink) Close() error { return nil }
