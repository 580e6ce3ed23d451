// Package compression wraps the codecs used by snapshot persistence.
// Snapshots carry one algorithm tag per file, so the compressor here is
// symmetric: whatever wrote the payload can be reconstructed from the
// tag to read it back.
//
// Speed (fastest to slowest): LZ4 > S2 > Zstd > Gzip
// Ratio (best to worst): Zstd > Gzip > S2 > LZ4
package compression

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/tabular/pkg/errors"
)

// Algorithm identifies a compression codec.
type Algorithm string

const (
	None Algorithm = "none"
	Gzip Algorithm = "gzip"
	LZ4  Algorithm = "lz4"
	Zstd Algorithm = "zstd"
	S2   Algorithm = "s2"
)

// ParseAlgorithm validates an algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case None, Gzip, LZ4, Zstd, S2:
		return Algorithm(s), nil
	}
	return "", errors.Newf(errors.ErrorTypeValidation, "unknown compression algorithm %q", s)
}

// Compressor compresses and decompresses byte payloads. Implementations
// are safe for concurrent use.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Algorithm() Algorithm
}

// NewCompressor builds a compressor for the algorithm.
func NewCompressor(alg Algorithm) (Compressor, error) {
	switch alg {
	case None:
		return noneCompressor{}, nil
	case Gzip:
		return gzipCompressor{}, nil
	case LZ4:
		return lz4Compressor{}, nil
	case Zstd:
		return newZstdCompressor()
	case S2:
		return s2Compressor{}, nil
	}
	return nil, errors.Newf(errors.ErrorTypeValidation, "unknown compression algorithm %q", alg)
}

type noneCompressor struct{}

func (noneCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (noneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (noneCompressor) Algorithm() Algorithm                   { return None }

type gzipCompressor struct{}

func (gzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "gzip compress")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "gzip compress")
	}
	return buf.Bytes(), nil
}

func (gzipCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "gzip decompress")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "gzip decompress")
	}
	return out, nil
}

func (gzipCompressor) Algorithm() Algorithm { return Gzip }

type lz4Compressor struct{}

func (lz4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "lz4 compress")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "lz4 compress")
	}
	return buf.Bytes(), nil
}

func (lz4Compressor) Decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "lz4 decompress")
	}
	return out, nil
}

func (lz4Compressor) Algorithm() Algorithm { return LZ4 }

type zstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstdCompressor() (Compressor, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "zstd decoder")
	}
	return &zstdCompressor{enc: enc, dec: dec}, nil
}

func (c *zstdCompressor) Compress(data []byte) ([]byte, error) {
	return c.enc.EncodeAll(data, nil), nil
}

func (c *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "zstd decompress")
	}
	return out, nil
}

func (c *zstdCompressor) Algorithm() Algorithm { return Zstd }

type s2Compressor struct{}

func (s2Compressor) Compress(data []byte) ([]byte, error) {
	return s2.Encode(nil, data), nil
}

func (s2Compressor) Decompress(data []byte) ([]byte, error) {
	out, err := s2.Decode(nil, data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "s2 decompress")
	}
	return out, nil
}

func (s2Compressor) Algorithm() Algorithm { return S2 }
