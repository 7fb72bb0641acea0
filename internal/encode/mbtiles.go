package encode

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

// mbtilesFormat, mbtilesType, and mbtilesVersion are fixed metadata values
// per §6's MBTiles output contract.
const (
	mbtilesFormat      = "application/vnd.openstreetmap.data+pbf"
	mbtilesType        = "baselayer"
	mbtilesVersion     = "0.2.0"
	mbtilesAttribution = "OpenStreetMap Contributors ODbL 1.0"
)

// MBTilesSink writes every tile as a row of a single SQLite database
// under the TMS y-axis convention, grounded on the tiles/metadata schema
// of the "mb" MBTiles writer: a metadata(name,value) table plus a
// tiles(zoom_level,tile_column,tile_row,tile_data) table, with the unique
// index deferred to Finalize so bulk inserts aren't slowed by it.
type MBTilesSink struct {
	db   *sql.DB
	stmt *sql.Stmt
	name string
}

// NewMBTilesSink creates (overwriting) the MBTiles database at path and
// prepares it for tile inserts. name is written as the metadata "name"
// value.
func NewMBTilesSink(path, name string) (*MBTilesSink, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("encode: removing existing mbtiles database: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("encode: opening mbtiles database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE metadata (name TEXT, value TEXT);
		CREATE TABLE tiles (
			zoom_level INTEGER,
			tile_column INTEGER,
			tile_row INTEGER,
			tile_data BLOB
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("encode: creating mbtiles schema: %w", err)
	}

	stmt, err := db.Prepare("INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("encode: preparing tile insert: %w", err)
	}

	return &MBTilesSink{db: db, stmt: stmt, name: name}, nil
}

// bufferedEncoder accumulates one tile's gob stream in memory and hands
// the bytes to the sink's writeTile callback on Close, since MBTiles
// needs the complete blob up front rather than a streaming writer.
type bufferedEncoder struct {
	*gobEncoder
	buf *bytes.Buffer
}

func (s *MBTilesSink) NewEncoder(zoom, x, y int) (TileEncoder, error) {
	buf := &bytes.Buffer{}
	e := &bufferedEncoder{buf: buf}
	e.gobEncoder = newGobEncoder(buf, func() error {
		return s.writeTile(zoom, x, y, buf.Bytes())
	})
	return e, nil
}

func (s *MBTilesSink) writeTile(zoom, x, y int, data []byte) error {
	yTMS := (1 << uint(zoom)) - 1 - y
	_, err := s.stmt.Exec(zoom, x, yTMS, data)
	return err
}

// Finalize writes the run's summary metadata and creates the tiles table's
// unique index, which is deferred until every insert has completed.
func (s *MBTilesSink) Finalize(meta Metadata) error {
	bounds := fmt.Sprintf("%g,%g,%g,%g", meta.Bound.MinLon, meta.Bound.MinLat, meta.Bound.MaxLon, meta.Bound.MaxLat)
	rows := map[string]string{
		"name":        s.name,
		"format":      mbtilesFormat,
		"type":        mbtilesType,
		"version":     mbtilesVersion,
		"attribution": mbtilesAttribution,
		"minzoom":     strconv.Itoa(meta.MinZoom),
		"maxzoom":     strconv.Itoa(meta.MaxZoom),
		"bounds":      bounds,
		"latest_date": strconv.FormatInt(meta.LatestDate.Unix(), 10),
	}
	for name, value := range rows {
		if _, err := s.db.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", name, value); err != nil {
			return fmt.Errorf("encode: writing mbtiles metadata %q: %w", name, err)
		}
	}
	if _, err := s.db.Exec("CREATE UNIQUE INDEX tile_index ON tiles (zoom_level, tile_column, tile_row)"); err != nil {
		return fmt.Errorf("encode: creating mbtiles tile index: %w", err)
	}
	return nil
}

func (s *MBTilesSink) Close() error {
	if err := s.stmt.Close(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}
