package bgen

import (
	"encoding/binary"
	"fmt"

	"github.com/carbocation/pfx"
)

type Sample struct {
	SampleID string
}

func ReadSamples(b *BGEN) ([]Sample, error) {
	if b.File == nil {
		return nil, pfx.Err(fmt.Errorf("b.File is nil"))
	}

	if b.FlagHasSampleIDs == 0 {
		return nil, pfx.Err(fmt.Errorf("This file indicates that it does not have sample IDs"))
	}

	bufferLength := make([]byte, 4)
	if err := b.parseAtOffsetWithBuffer(int64(b.SamplesStart+4), bufferLength); err != nil {
		return nil, pfx.Err(err)
	}
	if n := binary.LittleEndian.Uint32(bufferLength); n != b.NSamples {
		return nil, pfx.Err(fmt.Errorf("The sample identifier block lists %d samples but the header lists %d", n, b.NSamples))
	}

	samples := make([]Sample, 0, b.NSamples)

	bufferLength = bufferLength[:2]
	bufferID := make([]byte, 2)
	offset := int64(b.SamplesStart + 8) // SamplesStart is at sample_block_length, and SamplesStart+4 is at number_samples

	nSamples := int(b.NSamples)
	var sampleTextSize uint16
	for i := 0; i < nSamples; i++ {
		if err := b.parseAtOffsetWithBuffer(offset, bufferLength); err != nil {
			return nil, pfx.Err(err)
		}
		offset += 2

		sampleTextSize = binary.LittleEndian.Uint16(bufferLength)

		// resize the sample buffer to the size dictated by the result of bufferLength
		if int(sampleTextSize) > cap(bufferID) {
			bufferID = make([]byte, sampleTextSize)
		}
		bufferID = bufferID[:sampleTextSize]
		if err := b.parseAtOffsetWithBuffer(offset, bufferID); err != nil {
			return nil, pfx.Err(err)
		}

		// Copy the buffer into a string so that the buffer can be reused
		samples = append(samples, Sample{SampleID: string(bufferID)})
		offset += int64(sampleTextSize)
	}

	return samples, nil
}

// SampleNames returns the sample identifiers stored in the file, in order.
func SampleNames(b *BGEN) ([]string, error) {
	samples, err := ReadSamples(b)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(samples))
	for i, s := range samples {
		names[i] = s.SampleID
	}
	return names, nil
}
