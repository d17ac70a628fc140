package raster

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Raster is a decoded image: a row-major buffer of 8-bit samples with
// interleaved channels.
type Raster struct {
	// Width is the raster width in pixels. Always > 0.
	Width int

	// Height is the raster height in pixels. Always > 0.
	Height int

	// Channels is the number of samples per pixel: 1 (grayscale) or 4 (NRGBA).
	Channels int

	// Pix holds the samples. len(Pix) == Width*Height*Channels.
	Pix []uint8
}

// New allocates a zeroed raster with the given dimensions.
//
// Returns an error if width or height is not positive, or if channels is
// neither 1 nor 4.
func New(width, height, channels int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster dimensions must be positive, got %dx%d", width, height)
	}
	if channels != 1 && channels != 4 {
		return nil, fmt.Errorf("unsupported channel count %d (want 1 or 4)", channels)
	}
	return &Raster{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}, nil
}

// At returns the sample for channel c of pixel (x,y). No bounds checking is
// performed; callers iterate within the raster's extent.
func (r *Raster) At(x, y, c int) uint8 {
	return r.Pix[(y*r.Width+x)*r.Channels+c]
}

// Set writes the sample for channel c of pixel (x,y).
func (r *Raster) Set(x, y, c int, v uint8) {
	r.Pix[(y*r.Width+x)*r.Channels+c] = v
}

// Row returns the slice of samples making up row y.
func (r *Raster) Row(y int) []uint8 {
	stride := r.Width * r.Channels
	return r.Pix[y*stride : (y+1)*stride]
}

// Clone returns a deep copy of the raster.
func (r *Raster) Clone() *Raster {
	pix := make([]uint8, len(r.Pix))
	copy(pix, r.Pix)
	return &Raster{Width: r.Width, Height: r.Height, Channels: r.Channels, Pix: pix}
}

// Equal reports whether two rasters have identical dimensions, channel
// layout, and samples.
func (r *Raster) Equal(other *Raster) bool {
	if r.Width != other.Width || r.Height != other.Height || r.Channels != other.Channels {
		return false
	}
	for i := range r.Pix {
		if r.Pix[i] != other.Pix[i] {
			return false
		}
	}
	return true
}

// FromImage converts a decoded image to a Raster.
//
// Grayscale images (*image.Gray) keep their single channel. Everything else
// is normalized to 4-channel NRGBA.
func FromImage(img image.Image) *Raster {
	if gray, ok := img.(*image.Gray); ok {
		b := gray.Bounds()
		w, h := b.Dx(), b.Dy()
		out := &Raster{Width: w, Height: h, Channels: 1, Pix: make([]uint8, w*h)}
		for y := 0; y < h; y++ {
			copy(out.Row(y), gray.Pix[y*gray.Stride:y*gray.Stride+w])
		}
		return out
	}

	// imaging.Clone normalizes any color model to NRGBA with a tight stride.
	nrgba := imaging.Clone(img)
	w, h := nrgba.Bounds().Dx(), nrgba.Bounds().Dy()
	pix := make([]uint8, w*h*4)
	copy(pix, nrgba.Pix)
	return &Raster{Width: w, Height: h, Channels: 4, Pix: pix}
}

// Image converts the raster back to a standard library image for encoding.
func (r *Raster) Image() image.Image {
	switch r.Channels {
	case 1:
		img := image.NewGray(image.Rect(0, 0, r.Width, r.Height))
		for y := 0; y < r.Height; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+r.Width], r.Row(y))
		}
		return img
	default:
		img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
		copy(img.Pix, r.Pix)
		return img
	}
}
