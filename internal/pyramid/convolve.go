package pyramid

import (
	"fmt"
	"math"

	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/image-pyramid-service/internal/raster"
)

// Border selects how convolution reads samples outside the raster extent.
type Border int

const (
	// BorderReplicate clamps coordinates to the nearest edge pixel.
	BorderReplicate Border = iota

	// BorderReflect mirrors coordinates across the edge (edge pixel not
	// repeated: for x = -1 the sample at x = 1 is used).
	BorderReflect

	// BorderZero treats everything outside the raster as zero.
	BorderZero
)

// Convolve applies kernel k to src and returns the filtered raster. The
// output has the same dimensions and channel layout as the input. Rows are
// processed in parallel.
func Convolve(src *raster.Raster, k Kernel, border Border) (*raster.Raster, error) {
	if k.Size <= 0 || k.Size%2 == 0 || len(k.Weights) != k.Size*k.Size {
		return nil, fmt.Errorf("%w: %dx%d with %d weights", ErrInvalidKernel, k.Size, k.Size, len(k.Weights))
	}

	dst, err := raster.New(src.Width, src.Height, src.Channels)
	if err != nil {
		return nil, err
	}

	radius := k.Size / 2
	w, h, ch := src.Width, src.Height, src.Channels

	parallel.Line(h, func(start, end int) {
		acc := make([]float64, ch)
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				for c := 0; c < ch; c++ {
					acc[c] = 0
				}
				for ky := -radius; ky <= radius; ky++ {
					sy, yin := borderIndex(y+ky, h, border)
					for kx := -radius; kx <= radius; kx++ {
						sx, xin := borderIndex(x+kx, w, border)
						if !yin || !xin {
							continue // BorderZero: sample contributes nothing
						}
						weight := k.weight(kx+radius, ky+radius)
						for c := 0; c < ch; c++ {
							acc[c] += float64(src.At(sx, sy, c)) * weight
						}
					}
				}
				for c := 0; c < ch; c++ {
					dst.Set(x, y, c, clampSample(acc[c]))
				}
			}
		}
	})

	return dst, nil
}

// borderIndex maps a possibly out-of-range coordinate to a source index.
// The second return is false only in zero-pad mode, when the sample should
// be skipped entirely.
func borderIndex(i, n int, border Border) (int, bool) {
	if i >= 0 && i < n {
		return i, true
	}
	switch border {
	case BorderReflect:
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
		// A kernel radius larger than the raster can still leave i out of
		// range after one reflection; clamp the remainder.
		if i < 0 {
			i = 0
		} else if i >= n {
			i = n - 1
		}
		return i, true
	case BorderZero:
		return 0, false
	default: // BorderReplicate
		if i < 0 {
			return 0, true
		}
		return n - 1, true
	}
}

// clampSample rounds an accumulated value to the nearest 8-bit sample.
func clampSample(v float64) uint8 {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}
