package bgen

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/carbocation/pfx"
)

const (
	layout1ProbabilityDivisor = 32768.0
	missingBit                = 0x80
	ploidyMask                = 0x3f
)

type Probability struct {
	NSamples            uint32
	NAlleles            uint16
	MinimumPloidy       uint8
	MaximumPloidy       uint8
	Phased              bool
	NProbabilityBits    uint8 // nbits. Must be 1-32 inclusive (there is no uint4 which would otherwise suffice)
	SampleProbabilities []SampleProbability
}

// SampleProbability represents the variant data for one specfific individual at
// one specific locus, including information on whether this data is missing,
// what that individual's ploidy is, and then either (1) the probabilities for
// the phased haplotype or (2) the probabilies for the genotypes.
//
// Probabilities is complete: the value implied by the format (one minus the
// stored values) is filled in. Phased data holds NAlleles probabilities per
// haplotype, haplotype by haplotype. Unphased data holds one probability per
// genotype in the BGEN (colex) order, e.g. AA, AB, BB for a biallelic diploid.
type SampleProbability struct {
	Missing       bool
	Ploidy        uint8 // Limited to 0-63
	Probabilities []float64
}

// parseProbabilityLayout1 interprets an uncompressed Layout1 genotype block:
// three 16-bit fixed point probabilities (AA, AB, BB) per sample.
func parseProbabilityLayout1(data []byte, nSamples uint32) (*Probability, error) {
	if want := 6 * int(nSamples); len(data) != want {
		return nil, pfx.Err(fmt.Errorf("Layout1 genotype block has %d bytes; expected %d for %d samples", len(data), want, nSamples))
	}

	p := &Probability{
		NSamples:            nSamples,
		NAlleles:            2,
		MinimumPloidy:       2,
		MaximumPloidy:       2,
		NProbabilityBits:    16,
		SampleProbabilities: make([]SampleProbability, nSamples),
	}

	// One backing array for every sample's probabilities
	values := make([]float64, 3*nSamples)
	for i := range p.SampleProbabilities {
		sp := &p.SampleProbabilities[i]
		sp.Ploidy = 2
		sp.Probabilities = values[3*i : 3*i+3 : 3*i+3]

		var sum uint32
		for j := 0; j < 3; j++ {
			raw := binary.LittleEndian.Uint16(data[6*i+2*j:])
			sum += uint32(raw)
			sp.Probabilities[j] = float64(raw) / layout1ProbabilityDivisor
		}
		sp.Missing = sum == 0
	}

	return p, nil
}

// parseProbabilityLayout2 interprets an uncompressed Layout2 genotype block.
func parseProbabilityLayout2(data []byte) (*Probability, error) {
	const fixed = 4 + 2 + 1 + 1
	if len(data) < fixed {
		return nil, pfx.Err(fmt.Errorf("Layout2 genotype block is only %d bytes", len(data)))
	}

	p := &Probability{
		NSamples:      binary.LittleEndian.Uint32(data[0:4]),
		NAlleles:      binary.LittleEndian.Uint16(data[4:6]),
		MinimumPloidy: data[6],
		MaximumPloidy: data[7],
	}
	if p.NAlleles < 2 {
		return nil, pfx.Err(fmt.Errorf("Layout2 genotype block has %d alleles; at least 2 are required", p.NAlleles))
	}

	offset := fixed
	if len(data) < offset+int(p.NSamples)+2 {
		return nil, pfx.Err(fmt.Errorf("Layout2 genotype block of %d bytes is too short for %d samples", len(data), p.NSamples))
	}
	ploidyBytes := data[offset : offset+int(p.NSamples)]
	offset += int(p.NSamples)

	p.Phased = data[offset] == 1
	if data[offset] > 1 {
		return nil, pfx.Err(fmt.Errorf("Layout2 phased flag is %d; expected 0 or 1", data[offset]))
	}
	p.NProbabilityBits = data[offset+1]
	offset += 2
	if p.NProbabilityBits < 1 || p.NProbabilityBits > 32 {
		return nil, pfx.Err(fmt.Errorf("Layout2 probability width is %d bits; expected 1-32", p.NProbabilityBits))
	}

	nbits := int(p.NProbabilityBits)
	k := int(p.NAlleles)
	denominator := float64(uint64(1)<<uint(nbits) - 1)

	// Size everything up front so the per-sample slices share one allocation
	total := 0
	for _, pb := range ploidyBytes {
		total += nStoredValues(int(pb&ploidyMask), k, p.Phased) + nImpliedValues(int(pb&ploidyMask), p.Phased)
	}
	values := make([]float64, total)

	br := newBitReader(bytes.NewReader(data[offset:]))
	p.SampleProbabilities = make([]SampleProbability, p.NSamples)
	for i, pb := range ploidyBytes {
		sp := &p.SampleProbabilities[i]
		sp.Missing = pb&missingBit != 0
		sp.Ploidy = pb & ploidyMask

		ploidy := int(sp.Ploidy)
		size := nStoredValues(ploidy, k, p.Phased) + nImpliedValues(ploidy, p.Phased)
		sp.Probabilities = values[:size:size]
		values = values[size:]

		// Each group of stored values omits its final entry, which is one minus
		// the sum of the others
		groups, perGroup := 1, nStoredValues(ploidy, k, false)
		if p.Phased {
			groups, perGroup = ploidy, k-1
		}
		pos := 0
		for g := 0; g < groups; g++ {
			remaining := 1.0
			for j := 0; j < perGroup; j++ {
				raw, err := br.ReadUint(nbits)
				if err != nil {
					return nil, pfx.Err(fmt.Errorf("Reading probabilities for sample %d: %w", i, err))
				}
				v := float64(raw) / denominator
				sp.Probabilities[pos] = v
				remaining -= v
				pos++
			}
			sp.Probabilities[pos] = math.Max(remaining, 0)
			pos++
		}

		if sp.Missing {
			// Missing samples are stored as zeros; do not report an implied mass
			for j := range sp.Probabilities {
				sp.Probabilities[j] = 0
			}
		}
	}

	return p, nil
}

// nStoredValues is the number of probabilities written per sample.
func nStoredValues(ploidy, nAlleles int, phased bool) int {
	if ploidy == 0 {
		return 0
	}
	if phased {
		return ploidy * (nAlleles - 1)
	}
	return Choose(ploidy+nAlleles-1, nAlleles-1) - 1
}

// nImpliedValues is the number of probabilities that are implied rather than
// stored: one per haplotype for phased data, one per sample otherwise.
func nImpliedValues(ploidy int, phased bool) int {
	if ploidy == 0 {
		return 0
	}
	if phased {
		return ploidy
	}
	return 1
}
