package pyramid

import (
	"errors"
	"fmt"
)

// ErrInvalidKernel is returned for kernels that are not square with odd
// dimensions, or that contain no weights.
var ErrInvalidKernel = errors.New("invalid convolution kernel")

// Kernel is a square, odd-sized matrix of convolution weights. Weights are
// not required to sum to 1; normalization is the caller's responsibility.
type Kernel struct {
	// Size is the kernel's width and height. Always odd.
	Size int

	// Weights holds Size*Size values in row-major order.
	Weights []float64
}

// NewKernel validates the weight matrix and wraps it in a Kernel.
func NewKernel(size int, weights []float64) (Kernel, error) {
	if size <= 0 || size%2 == 0 {
		return Kernel{}, fmt.Errorf("%w: size %d must be positive and odd", ErrInvalidKernel, size)
	}
	if len(weights) != size*size {
		return Kernel{}, fmt.Errorf("%w: got %d weights, want %d", ErrInvalidKernel, len(weights), size*size)
	}
	return Kernel{Size: size, Weights: weights}, nil
}

// weight returns the kernel value at kernel coordinates (kx, ky), both in
// [0, Size).
func (k Kernel) weight(kx, ky int) float64 {
	return k.Weights[ky*k.Size+kx]
}

// Gaussian5x5 returns the normalized 5x5 Gaussian kernel (sigma ~ 1.4)
//
//	1  4  7  4  1
//	4 16 26 16  4
//	7 26 41 26  7
//	4 16 26 16  4
//	1  4  7  4  1
//
// divided by its sum of 273. This is the smoothing kernel used between
// pyramid levels.
func Gaussian5x5() Kernel {
	raw := []float64{
		1, 4, 7, 4, 1,
		4, 16, 26, 16, 4,
		7, 26, 41, 26, 7,
		4, 16, 26, 16, 4,
		1, 4, 7, 4, 1,
	}
	weights := make([]float64, len(raw))
	for i, v := range raw {
		weights[i] = v / 273.0
	}
	return Kernel{Size: 5, Weights: weights}
}
