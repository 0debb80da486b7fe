package vcf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/carbocation/gtsample"
	"github.com/carbocation/pfx"
	"github.com/carbocation/vcfgo"
	"github.com/klauspost/pgzip"
)

var BufferSize = 4096 * 8

// Source adapts a VCF carrying imputed or phased genotypes to
// gtsample.Source. For each sample the GP field is used when present;
// otherwise the GT call itself is treated as certain.
type Source struct {
	rdr    *vcfgo.Reader
	closer io.Closer
}

// Open reads a plain or gzip-compressed VCF from path.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	var r io.Reader
	gz, err := pgzip.NewReader(f)
	if err == nil {
		r = gz
	} else {
		// Not gzipped; start over with the raw file
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return nil, pfx.Err(err)
		}
		r = f
	}

	s, err := NewSource(r)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f

	return s, nil
}

// NewSource parses the VCF header from r.
func NewSource(r io.Reader) (*Source, error) {
	// Samples are parsed per variant in Read
	rdr, err := vcfgo.NewReader(bufio.NewReaderSize(r, BufferSize), true)
	if err != nil && rdr == nil {
		return nil, pfx.Err(err)
	} else if err != nil {
		// Header validation complaints that still leave a usable reader
		rdr.Clear()
	}

	return &Source{rdr: rdr}, nil
}

func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *Source) SampleNames() []string {
	return s.rdr.Header.SampleNames
}

func (s *Source) Read() (*gtsample.Variant, error) {
	v := s.rdr.Read()

	// Validation complaints about a variant that was still parsed are not
	// fatal; only a failure to produce a variant is.
	err := s.rdr.Error()
	s.rdr.Clear()
	if v == nil {
		if err != nil {
			return nil, pfx.Err(err)
		}
		return nil, io.EOF
	}

	if err := v.Header.ParseSamples(v); err != nil {
		return nil, pfx.Err(err)
	}

	out := &gtsample.Variant{
		Chromosome: v.Chromosome,
		Position:   uint32(v.Pos),
		Alleles:    append([]string{v.Ref()}, v.Alt()...),
	}
	if id := v.Id(); id != "." {
		out.ID = id
		if strings.HasPrefix(id, "rs") {
			out.RSID = id
		}
	}

	if len(out.Alleles) != 2 {
		return nil, gtsample.NewDataError(out.Label(), -1, "%d alleles; only biallelic variants can be sampled", len(out.Alleles))
	}

	out.Genotypes = make([]gtsample.Distribution, len(v.Samples))
	for i, sample := range v.Samples {
		d, err := distribution(sample)
		if err != nil {
			return nil, gtsample.NewDataError(out.Label(), i, "%v", err)
		}
		out.Genotypes[i] = d
	}

	return out, nil
}

// distribution builds one sample's genotype distribution from its GP field,
// falling back to a certain call at its GT.
func distribution(sample *vcfgo.SampleGenotype) (gtsample.Distribution, error) {
	if sample == nil || len(sample.GT) == 0 {
		return gtsample.MissingDist(), nil
	}
	for _, a := range sample.GT {
		if a < 0 {
			return gtsample.MissingDist(), nil
		}
		if a > 1 {
			return gtsample.Distribution{}, fmt.Errorf("GT allele %d on a biallelic site", a)
		}
	}

	if gp, ok := sample.Fields["GP"]; ok && gp != "." && gp != "" {
		p, err := parseFloats(gp)
		if err != nil {
			return gtsample.Distribution{}, err
		}
		return gpDistribution(sample, p)
	}

	gt := sample.GT
	switch {
	case len(gt) == 1:
		d := gtsample.HaploidDist(1, 0)
		if gt[0] == 1 {
			d = gtsample.HaploidDist(0, 1)
		}
		return d, nil
	case len(gt) == 2 && sample.Phased:
		var d gtsample.Distribution
		d.Kind = gtsample.KindDiploidPhased
		d.P[2*gt[0]+gt[1]] = 1
		return d, nil
	case len(gt) == 2:
		var d gtsample.Distribution
		d.Kind = gtsample.KindDiploidUnphased
		d.P[gt[0]+gt[1]] = 1
		return d, nil
	}

	return gtsample.Distribution{}, fmt.Errorf("GT has ploidy %d", len(gt))
}

// gpDistribution interprets GP values. A phased heterozygous GT places all of
// the heterozygous mass on its own allele order; a phased homozygous GT gives
// no order, so that mass is split between both.
func gpDistribution(sample *vcfgo.SampleGenotype, p []float64) (gtsample.Distribution, error) {
	switch len(p) {
	case 2:
		if len(sample.GT) != 1 {
			return gtsample.Distribution{}, fmt.Errorf("2 GP values with a GT of ploidy %d", len(sample.GT))
		}
		return gtsample.HaploidDist(p[0], p[1]), nil
	case 3:
		if len(sample.GT) != 2 {
			return gtsample.Distribution{}, fmt.Errorf("3 GP values with a GT of ploidy %d", len(sample.GT))
		}
		if !sample.Phased {
			return gtsample.UnphasedDist(p[0], p[1], p[2]), nil
		}
		gt := sample.GT
		switch {
		case gt[0] == 0 && gt[1] == 1:
			return gtsample.PhasedDist(p[0], p[1], 0, p[2]), nil
		case gt[0] == 1 && gt[1] == 0:
			return gtsample.PhasedDist(p[0], 0, p[1], p[2]), nil
		default:
			return gtsample.PhasedDist(p[0], p[1]/2, p[1]/2, p[2]), nil
		}
	}

	return gtsample.Distribution{}, fmt.Errorf("%d GP values; expected 2 (haploid) or 3 (diploid)", len(p))
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("GP %q: %v", s, err)
		}
		out[i] = v
	}
	return out, nil
}
