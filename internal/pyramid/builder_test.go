package pyramid

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironsheep/image-pyramid-service/internal/raster"
)

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(DefaultConfig())
	require.NoError(t, err)
	return b
}

func levelDims(levels []*raster.Raster) [][2]int {
	dims := make([][2]int, len(levels))
	for i, l := range levels {
		dims[i] = [2]int{l.Width, l.Height}
	}
	return dims
}

func TestNewBuilder_Validation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TileSize = 0
	_, err := NewBuilder(cfg)
	require.ErrorIs(t, err, ErrInvalidTileSize)

	cfg = DefaultConfig()
	cfg.MinLevelSize = 0
	_, err = NewBuilder(cfg)
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.Kernel = Kernel{Size: 2, Weights: make([]float64, 4)}
	_, err = NewBuilder(cfg)
	require.ErrorIs(t, err, ErrInvalidKernel)
}

func TestBuild_PowerOfTwo(t *testing.T) {
	src := gradientRaster(t, 64, 64, 1)

	levels, err := newBuilder(t).Build(src)
	require.NoError(t, err)

	require.Equal(t, [][2]int{
		{64, 64}, {32, 32}, {16, 16}, {8, 8}, {4, 4}, {2, 2}, {1, 1},
	}, levelDims(levels))

	// Level 0 is the source raster itself.
	require.True(t, src.Equal(levels[0]))
}

func TestBuild_LargeSquare(t *testing.T) {
	if testing.Short() {
		t.Skip("large pyramid in -short mode")
	}
	src := gradientRaster(t, 1024, 1024, 1)

	levels, err := newBuilder(t).Build(src)
	require.NoError(t, err)
	require.Len(t, levels, 11)

	dims := levelDims(levels)
	require.Equal(t, [2]int{1024, 1024}, dims[0])
	require.Equal(t, [2]int{512, 512}, dims[1])
	require.Equal(t, [2]int{256, 256}, dims[2])
	require.Equal(t, [2]int{128, 128}, dims[3])
	require.Equal(t, [2]int{1, 1}, dims[10])
}

func TestBuild_NonSquareStopsOnSmallerDimension(t *testing.T) {
	src := gradientRaster(t, 64, 16, 4)

	levels, err := newBuilder(t).Build(src)
	require.NoError(t, err)

	require.Equal(t, [][2]int{
		{64, 16}, {32, 8}, {16, 4}, {8, 2}, {4, 1},
	}, levelDims(levels))
}

func TestBuild_OddDimensions(t *testing.T) {
	src := gradientRaster(t, 600, 600, 4)

	levels, err := newBuilder(t).Build(src)
	require.NoError(t, err)

	dims := levelDims(levels)
	require.Equal(t, [2]int{600, 600}, dims[0])
	require.Equal(t, [2]int{300, 300}, dims[1])
	require.Equal(t, [2]int{150, 150}, dims[2])
	require.Equal(t, [2]int{75, 75}, dims[3])
	require.Equal(t, [2]int{38, 38}, dims[4])

	// Monotonically non-increasing in both dimensions.
	for i := 1; i < len(dims); i++ {
		require.LessOrEqual(t, dims[i][0], dims[i-1][0])
		require.LessOrEqual(t, dims[i][1], dims[i-1][1])
	}
	require.Equal(t, [2]int{1, 1}, dims[len(dims)-1])
}

func TestBuild_SourceBelowMinimum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinLevelSize = 16
	b, err := NewBuilder(cfg)
	require.NoError(t, err)

	// 10 < 16 in one dimension: exactly one level, the source itself.
	src := gradientRaster(t, 40, 10, 1)
	levels, err := b.Build(src)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	require.True(t, src.Equal(levels[0]))
}

func TestBuild_AlternateMinimum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinLevelSize = 100
	b, err := NewBuilder(cfg)
	require.NoError(t, err)

	src := gradientRaster(t, 800, 800, 1)
	levels, err := b.Build(src)
	require.NoError(t, err)

	// 800 -> 400 -> 200 -> 100; a 50px level would violate the minimum.
	require.Equal(t, [][2]int{
		{800, 800}, {400, 400}, {200, 200}, {100, 100},
	}, levelDims(levels))
}

func TestBuild_DiscardsCandidateBelowMinimum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinLevelSize = 8
	b, err := NewBuilder(cfg)
	require.NoError(t, err)

	// 13x10 exceeds the minimum, but its reduction would be 7x5. The
	// below-minimum candidate is discarded, not retained.
	src := gradientRaster(t, 13, 10, 1)
	levels, err := b.Build(src)
	require.NoError(t, err)
	require.Equal(t, [][2]int{{13, 10}}, levelDims(levels))

	// Same rule mid-sequence: reduction stops at 13x10, never reaching 7x5.
	src = gradientRaster(t, 100, 73, 1)
	levels, err = b.Build(src)
	require.NoError(t, err)
	require.Equal(t, [][2]int{
		{100, 73}, {50, 37}, {25, 19}, {13, 10},
	}, levelDims(levels))

	for _, l := range levels {
		require.GreaterOrEqual(t, min(l.Width, l.Height), cfg.MinLevelSize)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	src := gradientRaster(t, 33, 21, 4)
	b := newBuilder(t)

	first, err := b.Build(src)
	require.NoError(t, err)
	second, err := b.Build(src)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		require.True(t, first[i].Equal(second[i]), "level %d differs between runs", i)
	}
}
