package gtsample

import "strconv"

// Variant is one site's identity plus its genotype vector in registry order.
// The adapter that produced it owns Genotypes; the sampler only reads it for
// the duration of one call.
type Variant struct {
	ID         string
	RSID       string
	Chromosome string
	Position   uint32
	Alleles    []string

	Genotypes []Distribution
}

// Label identifies the variant in error messages.
func (v *Variant) Label() string {
	if v.ID != "" {
		return v.ID
	}
	if v.RSID != "" {
		return v.RSID
	}
	return v.Chromosome + ":" + strconv.Itoa(int(v.Position))
}

// Source supplies variants with samples in a fixed order. Read returns io.EOF
// once the input is exhausted.
type Source interface {
	SampleNames() []string
	Read() (*Variant, error)
}

// Sink receives each variant's calls, in the same sample order. calls is only
// valid for the duration of Write; the caller may reuse it for the next
// variant, so a Sink that keeps calls must copy them.
type Sink interface {
	Write(v *Variant, calls []Call) error
}
