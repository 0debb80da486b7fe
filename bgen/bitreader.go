package bgen

import (
	"io"
)

// bitReader reads the packed probability stream of a Layout2 genotype block.
// BGEN packs each value least significant bit first, starting from the least
// significant bit of each byte. Adapted from https://play.golang.org/p/rn0bAjeEGtK

type bitReader struct {
	reader io.ByteReader
	byte   byte
	offset byte

	errCache    error
	lastBit     bool
	resultCache uint64
}

func newBitReader(r io.ByteReader) *bitReader {
	return &bitReader{r, 0, 8, nil, false, 0}
}

func (r *bitReader) ReadBit() (bool, error) {
	if r.offset == 8 {
		if r.byte, r.errCache = r.reader.ReadByte(); r.errCache != nil {
			return false, r.errCache
		}
		r.offset = 0
	}
	r.lastBit = (r.byte>>r.offset)&1 != 0
	r.offset++
	return r.lastBit, nil
}

// ReadUint reads an nbits-wide value (nbits <= 64).
func (r *bitReader) ReadUint(nbits int) (uint64, error) {
	// Whole bytes on a byte boundary, the common 8/16/24/32 bit case
	if r.offset == 8 && nbits%8 == 0 {
		r.resultCache = 0
		for i := 0; i < nbits/8; i++ {
			b, err := r.reader.ReadByte()
			if err != nil {
				return 0, err
			}
			r.resultCache |= uint64(b) << uint(8*i)
		}
		return r.resultCache, nil
	}

	r.resultCache = 0
	for i := 0; i < nbits; i++ {
		r.lastBit, r.errCache = r.ReadBit()
		if r.errCache != nil {
			return 0, r.errCache
		}
		if r.lastBit {
			r.resultCache |= 1 << uint(i)
		}
	}
	return r.resultCache, nil
}
