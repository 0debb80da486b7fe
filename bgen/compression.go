package bgen

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/carbocation/pfx"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Compression indicates how (and whether) the SNP block probability is compressed
type Compression uint32

const (
	CompressionDisabled Compression = iota
	CompressionZLIB
	CompressionZStandard
)

func (c Compression) String() string {
	switch c {
	case CompressionDisabled:
		return "CompressionDisabled"
	case CompressionZLIB:
		return "CompressionZLIB"
	case CompressionZStandard:
		return "CompressionZStandard"

	default:
		return "Illegal compression"
	}
}

// A single zstd decoder is safe for concurrent DecodeAll calls.
var (
	zstdDecoder     *zstd.Decoder
	zstdDecoderErr  error
	zstdDecoderOnce sync.Once
)

// DecompressZStandard decompresses Zstd compressed data for bgen13. If dst has
// enough capacity it is reused; otherwise a new buffer is allocated and
// returned.
func DecompressZStandard(dst, src []byte) ([]byte, error) {
	zstdDecoderOnce.Do(func() {
		zstdDecoder, zstdDecoderErr = zstd.NewReader(nil)
	})
	if zstdDecoderErr != nil {
		return nil, pfx.Err(zstdDecoderErr)
	}

	out, err := zstdDecoder.DecodeAll(src, dst[:0])
	if err != nil {
		return nil, pfx.Err(err)
	}
	return out, nil
}

// DecompressZLIB inflates src, which is expected to expand to exactly
// expectedLength bytes.
func DecompressZLIB(dst, src []byte, expectedLength int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer zr.Close()

	if cap(dst) < expectedLength {
		dst = make([]byte, expectedLength)
	}
	dst = dst[:expectedLength]

	if _, err := io.ReadFull(zr, dst); err != nil {
		return nil, pfx.Err(fmt.Errorf("Inflating genotype block of %d bytes: %w", expectedLength, err))
	}

	return dst, nil
}
