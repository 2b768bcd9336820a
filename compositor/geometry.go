// Package compositor implements the video grid compositor and the
// RGB→ASCII/ANSI converter (spec §3.8, §4.7): picking a grid layout for N
// sources, letterbox-fitting each source's frame into its cell, mapping
// luminance to a character palette, and emitting optional ANSI color
// escapes around each cell.
package compositor

// Geometry describes a grid layout: cols x rows of source cells, with the
// pixel size of each cell.
type Geometry struct {
	Cols, Rows   int
	CellW, CellH int // pixel box allotted to each source within the canvas
}

// gridLayouts maps source count to a fixed cols x rows grid (spec §4.7
// "grid geometry selection by source count": 1x1, 2x1, 2x2, 3x3).
var gridLayouts = []struct {
	maxSources int
	cols, rows int
}{
	{1, 1, 1},
	{2, 2, 1},
	{4, 2, 2},
	{9, 3, 3},
}

// SelectGrid picks the smallest grid from spec §4.7's fixed set that fits
// sourceCount sources; counts above the largest grid's capacity clip to
// that grid (extra sources are dropped from composition, spec's implicit
// "compose once using a chosen dominant size" scope).
func SelectGrid(sourceCount int) (cols, rows int) {
	if sourceCount <= 0 {
		return 1, 1
	}
	for _, g := range gridLayouts {
		if sourceCount <= g.maxSources {
			return g.cols, g.rows
		}
	}
	last := gridLayouts[len(gridLayouts)-1]
	return last.cols, last.rows
}

// CellDimensions divides a canvasW x canvasH canvas into cols x rows equal
// cells; any remainder (canvasW % cols, canvasH % rows) lies outside every
// cell and stays blank. Callers pass
// pixel dimensions (compositor.Composite doubles canvasH to the pixel
// canvas height before calling), not character-cell dimensions.
func CellDimensions(canvasW, canvasH, cols, rows int) (cellW, cellH int) {
	if cols <= 0 {
		cols = 1
	}
	if rows <= 0 {
		rows = 1
	}
	return canvasW / cols, canvasH / rows
}
