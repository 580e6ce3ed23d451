package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("columnar blocks compress well "), 100)

	for _, alg := range []Algorithm{None, Gzip, LZ4, Zstd, S2} {
		t.Run(string(alg), func(t *testing.T) {
			c, err := NewCompressor(alg)
			require.NoError(t, err)
			assert.Equal(t, alg, c.Algorithm())

			compressed, err := c.Compress(payload)
			require.NoError(t, err)
			if alg != None {
				assert.Less(t, len(compressed), len(payload))
			}

			out, err := c.Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, payload, out)
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm("zstd")
	require.NoError(t, err)
	assert.Equal(t, Zstd, alg)

	_, err = ParseAlgorithm("brotli")
	require.Error(t, err)

	_, err = NewCompressor("nope")
	require.Error(t, err)
}

func TestDecompressGarbage(t *testing.T) {
	for _, alg := range []Algorithm{Gzip, Zstd, S2} {
		c, err := NewCompressor(alg)
		require.NoError(t, err)
		_, err = c.Decompress([]byte("definitely not compressed"))
		assert.Error(t, err, string(alg))
	}
}
