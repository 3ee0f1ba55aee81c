package applet

// FillGrid returns a height x width grid where every point is p.
// Non-positive dimensions yield a single empty row.
func FillGrid(width, height int, p Point) [][]Point {
	if width <= 0 || height <= 0 {
		return [][]Point{{}}
	}
	rows := make([][]Point, height)
	for y := range rows {
		row := make([]Point, width)
		for x := range row {
			row[x] = p
		}
		rows[y] = row
	}
	return rows
}

// ClampGrid truncates points to at most height rows of at most width
// columns. Oversized input is cut silently; the input is not modified.
func ClampGrid(points [][]Point, width, height int) [][]Point {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	n := min(len(points), height)
	out := make([][]Point, n)
	for y := 0; y < n; y++ {
		row := make([]Point, min(len(points[y]), width))
		copy(row, points[y])
		out[y] = row
	}
	return out
}
