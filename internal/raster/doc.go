// Package raster provides the in-memory pixel representation used by the
// pyramid pipeline, plus encoding and decoding across the supported image
// formats.
//
// # Raster Layout
//
// A Raster stores samples row-major with interleaved channels: the sample for
// channel c of pixel (x,y) lives at Pix[(y*Width+x)*Channels+c]. Two channel
// layouts exist:
//   - 1 channel: grayscale, one 8-bit luminance sample per pixel
//   - 4 channels: non-premultiplied RGBA, 8 bits per sample
//
// Decoded grayscale images keep their single channel; every other color model
// is normalized to 4-channel NRGBA. This keeps pixel math in the rest of the
// pipeline independent of the source format.
//
// # Formats
//
// The codec table is a closed set: PNG, JPEG, GIF, BMP and TIFF. Each entry
// pairs a decoder, an encoder, and the magic-byte signature used for content
// sniffing when the caller supplies no format hint. Unknown formats fail fast
// with ErrUnsupportedFormat; decoder failures surface as ErrCorruptData.
//
// PNG, BMP and TIFF are lossless here: encoding a Raster and decoding the
// result reproduces it pixel for pixel. JPEG is lossy and GIF palettizes, so
// round trips through those formats are only visually stable.
package raster
