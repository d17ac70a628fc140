package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format identifies one of the supported image formats.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatGIF  Format = "gif"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

var (
	// ErrUnsupportedFormat is returned for format hints outside the codec
	// table and for content whose signature matches no known format.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrCorruptData is returned when content carries a recognized format
	// signature but fails to decode.
	ErrCorruptData = errors.New("corrupt image data")
)

// jpegQuality is used for all JPEG encoding. High enough to keep tile
// transcodes visually stable.
const jpegQuality = 90

// codec pairs the decode and encode halves for one format, plus the
// magic-byte prefixes used for sniffing.
type codec struct {
	decode   func(io.Reader) (image.Image, error)
	encodeAs imaging.Format
	lossless bool
	magic    [][]byte
}

// codecs is the closed set of supported formats. Dispatch is by table lookup;
// there is deliberately no extension point.
var codecs = map[Format]codec{
	FormatPNG: {
		decode:   png.Decode,
		encodeAs: imaging.PNG,
		lossless: true,
		magic:    [][]byte{{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}},
	},
	FormatJPEG: {
		decode:   jpeg.Decode,
		encodeAs: imaging.JPEG,
		magic:    [][]byte{{0xff, 0xd8, 0xff}},
	},
	FormatGIF: {
		decode:   gif.Decode,
		encodeAs: imaging.GIF,
		magic:    [][]byte{[]byte("GIF87a"), []byte("GIF89a")},
	},
	FormatBMP: {
		decode:   bmp.Decode,
		encodeAs: imaging.BMP,
		lossless: true,
		magic:    [][]byte{[]byte("BM")},
	},
	FormatTIFF: {
		decode:   tiff.Decode,
		encodeAs: imaging.TIFF,
		lossless: true,
		magic:    [][]byte{{'I', 'I', 0x2a, 0x00}, {'M', 'M', 0x00, 0x2a}},
	},
}

// ParseFormat normalizes a format hint such as "png", "JPG", ".tiff" or
// "image/jpeg" to a Format. Returns ErrUnsupportedFormat for anything outside
// the codec table.
func ParseFormat(hint string) (Format, error) {
	s := strings.ToLower(strings.TrimSpace(hint))
	s = strings.TrimPrefix(s, "image/")
	s = strings.TrimPrefix(s, ".")
	switch s {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "png", "gif", "bmp":
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, hint)
}

// Lossless reports whether encode/decode round trips through f are
// pixel-exact.
func Lossless(f Format) bool {
	return codecs[f].lossless
}

// Sniff determines the format of encoded image data from its leading magic
// bytes. Returns ErrUnsupportedFormat when no signature matches.
func Sniff(data []byte) (Format, error) {
	for f, c := range codecs {
		for _, m := range c.magic {
			if bytes.HasPrefix(data, m) {
				return f, nil
			}
		}
	}
	return "", fmt.Errorf("%w: unrecognized content signature", ErrUnsupportedFormat)
}

// Decode converts encoded image bytes to a Raster.
//
// If hint is non-empty the named codec is used directly; otherwise the format
// is sniffed from the content. The detected format is returned alongside the
// raster so callers can record it.
func Decode(data []byte, hint Format) (*Raster, Format, error) {
	f := hint
	if f == "" {
		var err error
		if f, err = Sniff(data); err != nil {
			return nil, "", err
		}
	}
	c, ok := codecs[f]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	img, err := c.decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: decoding %s: %v", ErrCorruptData, f, err)
	}
	return FromImage(img), f, nil
}

// Encode converts a Raster to encoded bytes in the target format.
func Encode(r *Raster, f Format) ([]byte, error) {
	c, ok := codecs[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, r.Image(), c.encodeAs, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", f, err)
	}
	return buf.Bytes(), nil
}
