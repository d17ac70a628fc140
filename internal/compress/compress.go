// Package compress provides the lossless framing used for stored tile blobs:
// a one-byte header naming the codec and checksum, an optional CRC32 of the
// compressed payload, then the payload itself. Decompress(Compress(b)) == b
// for every byte sequence, including the empty one.
package compress

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
)

// Codec is the compression algorithm applied to a blob.
type Codec uint8

const (
	// None stores the payload uncompressed.
	None Codec = 0

	// Snappy is the default codec: fast with reasonable ratios on
	// PNG-encoded tiles.
	Snappy Codec = 1

	// Gzip trades speed for a better ratio.
	Gzip Codec = 2
)

func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	case Gzip:
		return "gzip"
	default:
		return "unknown"
	}
}

// ParseCodec maps a configuration string to a Codec.
func ParseCodec(s string) (Codec, error) {
	switch s {
	case "", "snappy":
		return Snappy, nil
	case "none":
		return None, nil
	case "gzip":
		return Gzip, nil
	}
	return 0, fmt.Errorf("unknown compression codec %q", s)
}

// Checksum is the integrity check stored alongside the payload.
type Checksum uint8

const (
	NoChecksum Checksum = 0
	CRC32      Checksum = 1
)

// ErrDecompress is returned for truncated, garbled, or checksum-failing
// input.
var ErrDecompress = errors.New("cannot decompress blob")

// The header byte packs the codec into the high three bits and the checksum
// into the next two, leaving room for future codecs.
func encodeHeader(codec Codec, checksum Checksum) uint8 {
	return (uint8(codec)&0x07)<<5 | (uint8(checksum)&0x03)<<3
}

func decodeHeader(b uint8) (Codec, Checksum) {
	return Codec(b >> 5), Checksum((b >> 3) & 0x03)
}

// Compress frames data with the given codec and checksum. The input is never
// modified.
func Compress(data []byte, codec Codec, checksum Checksum) ([]byte, error) {
	var payload []byte
	switch codec {
	case None:
		payload = data
	case Snappy:
		payload = snappy.Encode(nil, data)
	case Gzip:
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("gzip write: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("gzip close: %w", err)
		}
		payload = buf.Bytes()
	default:
		return nil, fmt.Errorf("unknown compression codec %d", codec)
	}

	out := make([]byte, 0, 5+len(payload))
	out = append(out, encodeHeader(codec, checksum))
	switch checksum {
	case NoChecksum:
	case CRC32:
		var crc [4]byte
		binary.LittleEndian.PutUint32(crc[:], crc32.ChecksumIEEE(payload))
		out = append(out, crc[:]...)
	default:
		return nil, fmt.Errorf("unknown checksum type %d", checksum)
	}
	return append(out, payload...), nil
}

// Decompress reverses Compress, returning the original bytes. Malformed or
// truncated input fails with ErrDecompress.
func Decompress(data []byte) ([]byte, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: empty input", ErrDecompress)
	}
	codec, checksum := decodeHeader(data[0])
	payload := data[1:]

	switch checksum {
	case NoChecksum:
	case CRC32:
		if len(payload) < 4 {
			return nil, fmt.Errorf("%w: truncated checksum", ErrDecompress)
		}
		want := binary.LittleEndian.Uint32(payload[:4])
		payload = payload[4:]
		if crc32.ChecksumIEEE(payload) != want {
			return nil, fmt.Errorf("%w: checksum mismatch", ErrDecompress)
		}
	default:
		return nil, fmt.Errorf("%w: unknown checksum type %d", ErrDecompress, checksum)
	}

	switch codec {
	case None:
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	case Snappy:
		out, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, fmt.Errorf("%w: snappy: %v", ErrDecompress, err)
		}
		if out == nil {
			out = []byte{}
		}
		return out, nil
	case Gzip:
		zr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrDecompress, err)
		}
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrDecompress, err)
		}
		if err := zr.Close(); err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrDecompress, err)
		}
		if out == nil {
			out = []byte{}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown codec %d", ErrDecompress, codec)
	}
}
