package bgen

import (
	"fmt"
	"io"

	"github.com/carbocation/gtsample"
	"github.com/carbocation/pfx"
)

// Source adapts a BGEN file to gtsample.Source. Variants are read in file
// order, or in the order of Offsets when it is set (e.g. from a .bgi query).
type Source struct {
	b       *BGEN
	vr      *VariantReader
	names   []string
	offsets []int64
	next    int
}

// NewSource reads variants from b. If names is nil, the sample identifiers
// stored in the file are used.
func NewSource(b *BGEN, names []string) (*Source, error) {
	if names == nil {
		var err error
		if names, err = SampleNames(b); err != nil {
			return nil, pfx.Err(err)
		}
	}
	if len(names) != int(b.NSamples) {
		return nil, pfx.Err(fmt.Errorf("%d sample names given for a file with %d samples", len(names), b.NSamples))
	}

	return &Source{b: b, vr: b.NewVariantReader(), names: names}, nil
}

// NewIndexedSource reads only the variants listed in idx, in that order.
func NewIndexedSource(b *BGEN, names []string, idx []VariantIndex) (*Source, error) {
	s, err := NewSource(b, names)
	if err != nil {
		return nil, err
	}

	s.offsets = make([]int64, len(idx))
	for i, row := range idx {
		s.offsets[i] = int64(row.FileStartPosition)
	}

	return s, nil
}

func (s *Source) SampleNames() []string {
	return s.names
}

func (s *Source) Read() (*gtsample.Variant, error) {
	var v *Variant
	if s.offsets != nil {
		if s.next >= len(s.offsets) {
			return nil, io.EOF
		}
		v = s.vr.ReadAt(s.offsets[s.next])
		s.next++
	} else {
		v = s.vr.Read()
	}

	if v == nil {
		if err := s.vr.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	return Genotypes(v)
}

// Genotypes converts one decoded BGEN variant into the sampler's genotype
// vector. Only biallelic sites with haploid or diploid samples can be
// represented; anything else is reported as a *gtsample.DataError.
func Genotypes(v *Variant) (*gtsample.Variant, error) {
	out := &gtsample.Variant{
		ID:         v.ID,
		RSID:       v.RSID,
		Chromosome: v.Chromosome,
		Position:   v.Position,
		Alleles:    make([]string, len(v.Alleles)),
	}
	for i, a := range v.Alleles {
		out.Alleles[i] = a.String()
	}

	p := v.Probabilities
	if p == nil {
		return nil, gtsample.NewDataError(out.Label(), -1, "no genotype probabilities")
	}
	if p.NAlleles != 2 {
		return nil, gtsample.NewDataError(out.Label(), -1, "%d alleles; only biallelic variants can be sampled", p.NAlleles)
	}

	out.Genotypes = make([]gtsample.Distribution, len(p.SampleProbabilities))
	for i, sp := range p.SampleProbabilities {
		if sp.Missing {
			out.Genotypes[i] = gtsample.MissingDist()
			continue
		}

		pr := sp.Probabilities
		switch {
		case sp.Ploidy == 1:
			out.Genotypes[i] = gtsample.HaploidDist(pr[0], pr[1])
		case sp.Ploidy == 2 && p.Phased:
			// Per haplotype: P(first allele), P(second allele)
			out.Genotypes[i] = gtsample.HaplotypeDist(pr[0], pr[2])
		case sp.Ploidy == 2:
			out.Genotypes[i] = gtsample.UnphasedDist(pr[0], pr[1], pr[2])
		default:
			return nil, gtsample.NewDataError(out.Label(), i, "ploidy %d is neither haploid nor diploid", sp.Ploidy)
		}
	}

	return out, nil
}
