package geo

// HoleFillThreshold is the minimum tile-set size below which a hole cannot
// exist under 4-connectivity, so FillHoles is a no-op.
const HoleFillThreshold = 8

// FillHoles takes the tile set of a single way or relation and adds any
// interior "hole" tiles: tiles fully enclosed by the element's footprint
// that would otherwise be skipped because no node of the element falls
// inside them. It mirrors MapSplit.java's checkAndFill: build a local bit
// grid over the tile set's bounding box (enlarged by 2 tiles on each side),
// flood-fill the exterior from the north-west corner through 4-neighbours,
// and whatever never gets marked is an interior hole.
//
// newlyFilled receives every tile added by the fill, so the caller can also
// mark them in the modified-tile set.
func FillHoles(tiles []TileID, newlyFilled func(TileID)) []TileID {
	if len(tiles) < HoleFillThreshold {
		return tiles
	}

	minX, minY := int(^uint(0)>>1), int(^uint(0)>>1)
	maxX, maxY := -minX-1, -minY-1
	for _, t := range tiles {
		x, y := t.X(), t.Y()
		if x < minX {
			minX = x
		}
		if y < minY {
			minY = y
		}
		if x > maxX {
			maxX = x
		}
		if y > maxY {
			maxY = y
		}
	}

	minX -= 2
	minY -= 2
	maxX += 2
	maxY += 2
	sizeX := maxX - minX + 1
	sizeY := maxY - minY + 1

	grid := make([]bool, sizeX*sizeY)
	set := func(x, y int) {
		grid[(x-minX)+(y-minY)*sizeX] = true
	}
	for _, t := range tiles {
		set(t.X(), t.Y())
	}

	// Flood-fill the exterior from the frame's NW corner, never crossing
	// the outermost row/column.
	stack := []int{1 + 1*sizeX}
	for len(stack) > 0 {
		val := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if val < 0 || val >= sizeX*sizeY {
			continue
		}
		if grid[val] {
			continue
		}
		grid[val] = true

		ty := val / sizeX
		tx := val % sizeX
		if tx == 0 || ty == 0 || tx >= sizeX-1 || ty >= sizeY-1 {
			continue
		}

		stack = append(stack,
			tx+1+ty*sizeX,
			tx-1+ty*sizeX,
			tx+(ty+1)*sizeX,
			tx+(ty-1)*sizeX,
		)
	}

	// Anything still unset (outside the frame border) is an interior hole.
	for idx, marked := range grid {
		if marked {
			continue
		}
		tx := idx % sizeX
		ty := idx / sizeX
		if tx == 0 || ty == 0 || tx >= sizeX-1 || ty >= sizeY-1 {
			continue
		}
		hole := Encode(tx+minX, ty+minY)
		tiles = append(tiles, hole)
		if newlyFilled != nil {
			newlyFilled(hole)
		}
	}

	return tiles
}
