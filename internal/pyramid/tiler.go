package pyramid

import (
	"errors"
	"fmt"

	"github.com/ironsheep/image-pyramid-service/internal/raster"
)

// ErrInvalidTileSize is returned when a non-positive tile size is requested.
var ErrInvalidTileSize = errors.New("invalid tile size")

// TileGrid is the decomposition of one raster into fixed-size tiles. Tiles
// are indexed [row][col]; the last row and column may hold smaller tiles when
// the raster dimensions are not exact multiples of the tile size.
type TileGrid struct {
	// Width and Height are the dimensions of the tiled raster.
	Width, Height int

	// TileSize is the nominal tile edge.
	TileSize int

	// Rows and Cols are the grid dimensions: ceil(Height/TileSize) and
	// ceil(Width/TileSize).
	Rows, Cols int

	// Tiles holds the tile rasters, row-major.
	Tiles [][]*raster.Raster
}

// Tile splits src into a grid of tiles of at most tileSize x tileSize
// pixels. Edge tiles keep their true partial dimensions; the union of all
// tile extents is exactly the raster extent.
func Tile(src *raster.Raster, tileSize int) (*TileGrid, error) {
	if tileSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTileSize, tileSize)
	}

	cols := (src.Width + tileSize - 1) / tileSize
	rows := (src.Height + tileSize - 1) / tileSize

	grid := &TileGrid{
		Width:    src.Width,
		Height:   src.Height,
		TileSize: tileSize,
		Rows:     rows,
		Cols:     cols,
		Tiles:    make([][]*raster.Raster, rows),
	}

	for row := 0; row < rows; row++ {
		grid.Tiles[row] = make([]*raster.Raster, cols)
		y0 := row * tileSize
		th := tileSize
		if y0+th > src.Height {
			th = src.Height - y0
		}
		for col := 0; col < cols; col++ {
			x0 := col * tileSize
			tw := tileSize
			if x0+tw > src.Width {
				tw = src.Width - x0
			}
			tile, err := crop(src, x0, y0, tw, th)
			if err != nil {
				return nil, err
			}
			grid.Tiles[row][col] = tile
		}
	}

	return grid, nil
}

// Assemble reconstructs the original raster by placing each tile at
// (col*TileSize, row*TileSize). The result is pixel-identical to the raster
// the grid was produced from.
func (g *TileGrid) Assemble() (*raster.Raster, error) {
	if g.Rows == 0 || g.Cols == 0 {
		return nil, fmt.Errorf("empty tile grid")
	}
	channels := g.Tiles[0][0].Channels
	dst, err := raster.New(g.Width, g.Height, channels)
	if err != nil {
		return nil, err
	}

	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			tile := g.Tiles[row][col]
			x0 := col * g.TileSize
			y0 := row * g.TileSize
			stride := tile.Width * channels
			for y := 0; y < tile.Height; y++ {
				dstRow := dst.Row(y0 + y)
				copy(dstRow[x0*channels:x0*channels+stride], tile.Row(y))
			}
		}
	}

	return dst, nil
}

// crop copies the w x h region of src anchored at (x0, y0) into a new
// raster.
func crop(src *raster.Raster, x0, y0, w, h int) (*raster.Raster, error) {
	dst, err := raster.New(w, h, src.Channels)
	if err != nil {
		return nil, err
	}
	stride := w * src.Channels
	for y := 0; y < h; y++ {
		srcRow := src.Row(y0 + y)
		copy(dst.Row(y), srcRow[x0*src.Channels:x0*src.Channels+stride])
	}
	return dst, nil
}
