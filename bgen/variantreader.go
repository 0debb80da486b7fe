package bgen

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/carbocation/pfx"
)

// VariantReader walks variant blocks. It is not safe for concurrent use; open
// one per goroutine.
type VariantReader struct {
	VariantsSeen  uint32
	b             *BGEN
	currentOffset int64
	err           error

	// Cached values
	buffer     []byte
	decompress []byte
}

func (b *BGEN) NewVariantReader() *VariantReader {
	vr := &VariantReader{
		currentOffset: int64(b.VariantsStart),
		b:             b,
	}

	return vr
}

func (vr *VariantReader) Error() error {
	return vr.err
}

// Read returns the next variant, or nil once every variant has been read or
// an error has occurred. Check Error after a nil return.
func (vr *VariantReader) Read() *Variant {
	if vr.err != nil || vr.VariantsSeen >= vr.b.NVariants {
		return nil
	}

	v, newOffset, err := vr.parseVariantAtOffset(vr.currentOffset)
	if err == io.EOF {
		// The header promised more variants than the file holds
		err = fmt.Errorf("header lists %d variants; file ended after %d: %w", vr.b.NVariants, vr.VariantsSeen, io.ErrUnexpectedEOF)
	}
	if err != nil {
		vr.err = pfx.Err(err)
		return nil
	}

	vr.VariantsSeen++
	vr.currentOffset = newOffset

	return v
}

// ReadAt parses the variant whose block starts at offset, such as a
// file_start_position from a .bgi index. It does not move the sequential
// position used by Read.
func (vr *VariantReader) ReadAt(offset int64) *Variant {
	v, _, err := vr.parseVariantAtOffset(offset)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		vr.err = pfx.Err(err)
		return nil
	}

	return v
}

// parseVariantAtOffset does not mutate the VariantReader other than its
// scratch buffers. It returns io.EOF only if there are no bytes at offset.
func (vr *VariantReader) parseVariantAtOffset(offset int64) (*Variant, int64, error) {
	v := &Variant{FileStartPosition: offset}
	var err error

	layout1Samples := vr.b.NSamples

VariantLoop:
	for {
		if vr.b.FlagLayout == Layout1 {
			// Layout1 blocks open with their own sample count
			if err = vr.readNBytesAtOffset(4, offset); err != nil {
				break
			}
			offset += 4
			layout1Samples = binary.LittleEndian.Uint32(vr.buffer[:4])
		}

		// ID:
		if v.ID, offset, err = vr.readString16(offset); err != nil {
			break
		}

		// RSID
		if v.RSID, offset, err = vr.readString16(offset); err != nil {
			break
		}

		// Chrom
		if v.Chromosome, offset, err = vr.readString16(offset); err != nil {
			break
		}

		// Position
		if err = vr.readNBytesAtOffset(4, offset); err != nil {
			break
		}
		offset += 4
		v.Position = binary.LittleEndian.Uint32(vr.buffer[:4])

		// NAlleles
		if vr.b.FlagLayout == Layout1 {
			// Assumed to be 2 in Layout1
			v.NAlleles = 2
		} else if vr.b.FlagLayout == Layout2 {
			if err = vr.readNBytesAtOffset(2, offset); err != nil {
				break
			}
			offset += 2
			v.NAlleles = binary.LittleEndian.Uint16(vr.buffer[:2])
		}

		// Allele slice
		var alleleLength int
		for i := uint16(0); i < v.NAlleles; i++ {
			if err = vr.readNBytesAtOffset(4, offset); err != nil {
				break VariantLoop
			}
			offset += 4
			alleleLength = int(binary.LittleEndian.Uint32(vr.buffer[:4]))

			if err = vr.readNBytesAtOffset(alleleLength, offset); err != nil {
				break VariantLoop
			}
			offset += int64(alleleLength)
			v.Alleles = append(v.Alleles, Allele(string(vr.buffer[:alleleLength])))
		}

		// Genotype data
		var block []byte
		if vr.b.FlagLayout == Layout1 {
			// From the BGEN format: "If CompressedSNPBlocks=0 this field is omitted
			// and the length of the uncompressed data is C=6N."
			uncompressedDataBlockSize := 6 * int(layout1Samples)
			if comp := vr.b.FlagCompression; comp == CompressionDisabled {
				if err = vr.readNBytesAtOffset(uncompressedDataBlockSize, offset); err != nil {
					break
				}
				offset += int64(uncompressedDataBlockSize)
				block = vr.buffer[:uncompressedDataBlockSize]

			} else if comp == CompressionZLIB {
				if err = vr.readNBytesAtOffset(4, offset); err != nil {
					break
				}
				offset += 4
				genoBlockLength := binary.LittleEndian.Uint32(vr.buffer[:4])

				if err = vr.readNBytesAtOffset(int(genoBlockLength), offset); err != nil {
					break
				}
				offset += int64(genoBlockLength)
				if vr.decompress, err = DecompressZLIB(vr.decompress, vr.buffer[:genoBlockLength], uncompressedDataBlockSize); err != nil {
					break
				}
				block = vr.decompress
			} else {
				err = fmt.Errorf("Compression choice %s is not compatible with Layout %s", vr.b.FlagCompression, vr.b.FlagLayout)
				break
			}

			if v.Probabilities, err = parseProbabilityLayout1(block, layout1Samples); err != nil {
				break
			}

		} else if vr.b.FlagLayout == Layout2 {
			// The genotype layout data block for Layout2 is guaranteed to have
			// a 4 byte chunk that indicates how much data is left for this
			// block (skipping ahead by this much will bring you to the next
			// chunk).
			if err = vr.readNBytesAtOffset(4, offset); err != nil {
				break
			}
			offset += 4
			nextDataOffset := binary.LittleEndian.Uint32(vr.buffer[:4])

			if vr.b.FlagCompression == CompressionDisabled {
				// If compression is disabled, it will not have the second 4
				// byte chunk that indicates how large the data chunk is after
				// decompression.

				if err = vr.readNBytesAtOffset(int(nextDataOffset), offset); err != nil {
					break
				}
				block = vr.buffer[:nextDataOffset]

				offset += int64(nextDataOffset)

			} else {
				// If compression is enabled, there will be a second 4 byte
				// chunk that indicates how large the data chunk is after
				// decompression.
				if nextDataOffset < 4 {
					err = fmt.Errorf("Compressed genotype block length %d is shorter than its own header", nextDataOffset)
					break
				}

				if err = vr.readNBytesAtOffset(4, offset); err != nil {
					break
				}
				offset += 4
				decompressedDataLength := int(binary.LittleEndian.Uint32(vr.buffer[:4]))

				// From the BGEN format: "If CompressedSNPBlocks is nonzero, this is
				// C-4 bytes which can be uncompressed to form D bytes in the
				// format described below." For us, "C" is nextDataOffset.
				genoBlockDataSizeToDecompress := nextDataOffset - 4
				// Compressed geno data
				if err = vr.readNBytesAtOffset(int(genoBlockDataSizeToDecompress), offset); err != nil {
					break
				}
				compressed := vr.buffer[:genoBlockDataSizeToDecompress]

				if vr.b.FlagCompression == CompressionZLIB {
					vr.decompress, err = DecompressZLIB(vr.decompress, compressed, decompressedDataLength)
				} else {
					vr.decompress, err = DecompressZStandard(vr.decompress, compressed)
				}
				if err != nil {
					break
				}
				if len(vr.decompress) != decompressedDataLength {
					err = fmt.Errorf("Genotype block decompressed to %d bytes; header says %d", len(vr.decompress), decompressedDataLength)
					break
				}
				block = vr.decompress

				offset += int64(genoBlockDataSizeToDecompress)
			}

			if v.Probabilities, err = parseProbabilityLayout2(block); err != nil {
				break
			}
			if v.Probabilities.NAlleles != v.NAlleles {
				err = fmt.Errorf("Variant %s lists %d alleles but its genotype block has %d", v.ID, v.NAlleles, v.Probabilities.NAlleles)
				break
			}
		}

		break
	}

	if err == io.EOF && offset != v.FileStartPosition {
		// Ran out of file part way through a block
		err = io.ErrUnexpectedEOF
	}

	return v, offset, err
}

// readString16 reads a string prefixed by its 2 byte length.
func (vr *VariantReader) readString16(offset int64) (string, int64, error) {
	if err := vr.readNBytesAtOffset(2, offset); err != nil {
		return "", offset, err
	}
	offset += 2
	stringSize := int(binary.LittleEndian.Uint16(vr.buffer[:2]))
	if err := vr.readNBytesAtOffset(stringSize, offset); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", offset, err
	}

	return string(vr.buffer[:stringSize]), offset + int64(stringSize), nil
}

// readNBytesAtOffset fills vr.buffer[:N]. A short read past the end of the
// file is reported as io.ErrUnexpectedEOF; io.EOF means nothing was there.
func (vr *VariantReader) readNBytesAtOffset(N int, offset int64) error {
	if vr.buffer == nil || len(vr.buffer) < N {
		vr.buffer = make([]byte, N)
	}
	if N == 0 {
		return nil
	}

	n, err := vr.b.File.ReadAt(vr.buffer[:N], offset)
	if n == N {
		return nil
	}
	if err == io.EOF && n > 0 {
		return io.ErrUnexpectedEOF
	}
	return err
}
