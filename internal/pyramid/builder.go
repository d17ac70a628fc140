package pyramid

import (
	"fmt"

	"github.com/ironsheep/image-pyramid-service/internal/raster"
)

const (
	// DefaultTileSize is the nominal tile edge shared by the tiler and every
	// client-side addressing scheme.
	DefaultTileSize = 512

	// DefaultMinLevelSize stops level generation once a dimension reaches
	// this size, so the coarsest level bottoms out at a single pixel.
	DefaultMinLevelSize = 1
)

// Config carries the constants threaded through the builder and tiler.
// Constructed once and passed explicitly so tests can run with alternate
// sizes.
type Config struct {
	// TileSize is the nominal tile edge in pixels.
	TileSize int

	// MinLevelSize stops derivation: no level is produced whose smaller
	// dimension would fall below it.
	MinLevelSize int

	// Kernel is the smoothing kernel applied before each subsample.
	Kernel Kernel

	// Border is the convolution border mode used for the whole pyramid.
	Border Border
}

// DefaultConfig returns the production configuration: 512px tiles, levels
// down to 1px, 5x5 Gaussian smoothing with replicated borders.
func DefaultConfig() Config {
	return Config{
		TileSize:     DefaultTileSize,
		MinLevelSize: DefaultMinLevelSize,
		Kernel:       Gaussian5x5(),
		Border:       BorderReplicate,
	}
}

// Builder derives lowpass pyramids using a fixed Config.
type Builder struct {
	cfg Config
}

// NewBuilder validates the configuration and returns a Builder.
func NewBuilder(cfg Config) (*Builder, error) {
	if cfg.TileSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTileSize, cfg.TileSize)
	}
	if cfg.MinLevelSize <= 0 {
		return nil, fmt.Errorf("minimum level size must be positive, got %d", cfg.MinLevelSize)
	}
	if cfg.Kernel.Size <= 0 || cfg.Kernel.Size%2 == 0 || len(cfg.Kernel.Weights) != cfg.Kernel.Size*cfg.Kernel.Size {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidKernel, cfg.Kernel.Size, cfg.Kernel.Size)
	}
	return &Builder{cfg: cfg}, nil
}

// Config returns the builder's configuration.
func (b *Builder) Config() Config { return b.cfg }

// Build derives the full level sequence for src. Level 0 is src itself;
// each following level is the Gaussian-blurred, stride-2 subsampled previous
// level. Derivation is sequential across levels by nature: every level
// depends on the one before it.
func (b *Builder) Build(src *raster.Raster) ([]*raster.Raster, error) {
	levels := []*raster.Raster{src}

	cur := src
	for min(cur.Width, cur.Height) > b.cfg.MinLevelSize {
		// A candidate whose smaller dimension would land below the minimum
		// is discarded, not produced.
		if min((cur.Width+1)/2, (cur.Height+1)/2) < b.cfg.MinLevelSize {
			break
		}
		blurred, err := Convolve(cur, b.cfg.Kernel, b.cfg.Border)
		if err != nil {
			return nil, fmt.Errorf("smoothing level %d: %w", len(levels)-1, err)
		}
		next, err := subsample(blurred)
		if err != nil {
			return nil, fmt.Errorf("subsampling level %d: %w", len(levels)-1, err)
		}
		levels = append(levels, next)
		cur = next
	}

	return levels, nil
}

// subsample keeps every second row and column, producing a raster of
// dimensions (ceil(w/2), ceil(h/2)).
func subsample(src *raster.Raster) (*raster.Raster, error) {
	w := (src.Width + 1) / 2
	h := (src.Height + 1) / 2
	dst, err := raster.New(w, h, src.Channels)
	if err != nil {
		return nil, err
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for c := 0; c < src.Channels; c++ {
				dst.Set(x, y, c, src.At(2*x, 2*y, c))
			}
		}
	}
	return dst, nil
}
