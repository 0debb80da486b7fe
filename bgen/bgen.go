package bgen

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/carbocation/pfx"
)

// MagicNumber contains the value required to confirm that a file is BGEN-conformant
const MagicNumber = "bgen"

const (
	offsetVariant        = 0
	offsetHeaderLength   = 4
	offsetNumberVariants = 8
	offsetNumberSamples  = 12
	offsetMagicNumber    = 16
	offsetFreeStorage    = 20
)

// BGENVersion is the supported version of the BGEN file format
const BGENVersion = "1.2"

// BGEN is the main object used for parsing BGEN files. File may be a local
// file or any other io.ReaderAt, such as an object in Google Storage.
type BGEN struct {
	FilePath         string
	File             io.ReaderAt
	NVariants        uint32
	NSamples         uint32
	FlagCompression  Compression
	FlagLayout       Layout
	FlagHasSampleIDs uint32
	SamplesStart     uint32
	VariantsStart    uint32

	closer io.Closer
}

// Open attempts to read a bgen file located at path. If successful,
// this returns a new BGEN object. Otherwise, it returns an error.
func Open(path string) (*BGEN, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	b, err := NewFromReaderAt(file)
	if err != nil {
		file.Close()
		return nil, pfx.Err(err)
	}
	b.FilePath = path
	b.closer = file

	return b, nil
}

// NewFromReaderAt parses the BGEN header found in r. The caller remains
// responsible for closing r.
func NewFromReaderAt(r io.ReaderAt) (*BGEN, error) {
	b := &BGEN{
		File: r,
	}

	if err := populateBGENHeader(b); err != nil {
		return nil, pfx.Err(err)
	}

	return b, nil
}

// Close releases the underlying file if this BGEN opened it.
func (b *BGEN) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

func populateBGENHeader(b *BGEN) error {
	var headerLength int64
	buffer := make([]byte, 4)

	if err := b.parseAtOffsetWithBuffer(offsetVariant, buffer); err != nil {
		return pfx.Err(err)
	}
	b.VariantsStart = binary.LittleEndian.Uint32(buffer) + 4 // First variant is at variant_offset + 4. Note that (b.VariantsStart = variant_offset + 4)

	if err := b.parseAtOffsetWithBuffer(offsetHeaderLength, buffer); err != nil {
		return pfx.Err(err)
	}
	headerLength = int64(binary.LittleEndian.Uint32(buffer))
	if headerLength < offsetFreeStorage {
		return pfx.Err(fmt.Errorf("The BGEN header length is %d; it must be at least %d", headerLength, offsetFreeStorage))
	}

	b.SamplesStart = uint32(headerLength + 4)

	if err := b.parseAtOffsetWithBuffer(offsetNumberVariants, buffer); err != nil {
		return pfx.Err(err)
	}
	b.NVariants = binary.LittleEndian.Uint32(buffer)

	if err := b.parseAtOffsetWithBuffer(offsetNumberSamples, buffer); err != nil {
		return pfx.Err(err)
	}
	b.NSamples = binary.LittleEndian.Uint32(buffer)

	if err := b.parseAtOffsetWithBuffer(offsetMagicNumber, buffer); err != nil {
		return pfx.Err(err)
	}
	// Early writers left the magic number zeroed, which the format permits
	if MagicNumber != string(buffer) && binary.LittleEndian.Uint32(buffer) != 0 {
		return pfx.Err(fmt.Errorf("The BGEN header value at offset %d is expected to resolve to the Magic Number %s (%v when printed as a byte slice), but instead resolved to byte slice %v", offsetMagicNumber, MagicNumber, []byte(MagicNumber), buffer))
	}

	if err := b.parseAtOffsetWithBuffer(headerLength, buffer); err != nil {
		return pfx.Err(err)
	}
	flags := binary.LittleEndian.Uint32(buffer)
	b.FlagCompression = Compression(flags & 3)
	b.FlagLayout = Layout((flags & (15 << 2)) >> 2)
	b.FlagHasSampleIDs = (flags & (1 << 31)) >> 31

	switch b.FlagLayout {
	case Layout1:
		if b.FlagCompression == CompressionZStandard {
			return pfx.Err(fmt.Errorf("Compression choice %s is not compatible with Layout %s", b.FlagCompression, b.FlagLayout))
		}
	case Layout2:
	default:
		return pfx.Err(fmt.Errorf("%s (%d) is not supported", b.FlagLayout, uint32(b.FlagLayout)))
	}
	if b.FlagCompression > CompressionZStandard {
		return pfx.Err(fmt.Errorf("%s is not supported", b.FlagCompression))
	}

	return nil
}

func (b *BGEN) parseAtOffsetWithBuffer(offset int64, buffer []byte) error {
	_, err := b.File.ReadAt(buffer, offset)
	if err != nil {
		return pfx.Err(err)
	}

	return nil
}
