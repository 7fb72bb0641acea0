// Package clip implements the optional polygon clip pass: narrowing the
// modified-tile set down to tiles that fall inside a user-supplied
// polygon, and the clip polygon file's text grammar.
package clip

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Polygon is a parsed clip region: zero or more "inside" rings (a tile
// survives if it falls in any of these) and zero or more "outside"
// rings (a tile is dropped if it falls in any of these).
type Polygon struct {
	Inside  []orb.Ring
	Outside []orb.Ring
}

// ParsePolygon reads the polygon file grammar: a header line (ignored),
// then any number of rings. Each ring starts with a header line (a `!`
// prefix marks it as a subtractive outside ring, otherwise it's an
// additive inside ring), followed by one `lon lat` pair per line,
// terminated by a line containing only `END`. The whole file is
// terminated by a further standalone `END`.
func ParsePolygon(r io.Reader) (*Polygon, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("clip: empty polygon file")
	}
	// header line is ignored

	poly := &Polygon{}
	for scanner.Scan() {
		header := strings.TrimSpace(scanner.Text())
		if header == "" {
			continue
		}
		if header == "END" {
			return poly, scanner.Err()
		}

		outside := strings.HasPrefix(header, "!")

		var ring orb.Ring
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "END" {
				break
			}
			fields := strings.Fields(line)
			if len(fields) != 2 {
				return nil, fmt.Errorf("clip: malformed ring point %q", line)
			}
			lon, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return nil, fmt.Errorf("clip: bad longitude %q: %w", fields[0], err)
			}
			lat, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, fmt.Errorf("clip: bad latitude %q: %w", fields[1], err)
			}
			ring = append(ring, orb.Point{lon, lat})
		}

		if outside {
			poly.Outside = append(poly.Outside, ring)
		} else {
			poly.Inside = append(poly.Inside, ring)
		}
	}
	return poly, scanner.Err()
}
