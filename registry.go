package gtsample

import "sort"

// Ploidy is the number of genome copies carried by a sample at a site.
type Ploidy uint8

const (
	Haploid Ploidy = 1
	Diploid Ploidy = 2
)

func (p Ploidy) Valid() bool {
	return p == Haploid || p == Diploid
}

// Sample is one member of the cohort. Index is its position in the fixed
// sample order shared by every variant.
type Sample struct {
	Name   string
	Ploidy Ploidy
	Index  int
}

// Registry classifies each sample as haploid or diploid. It is built once and
// never mutated, so it may be shared freely between goroutines.
type Registry struct {
	samples       []Sample
	defaultPloidy Ploidy
	nDiploid      int
	nHaploid      int
	maxPloidy     Ploidy
	unmatched     []string
}

// NewRegistry resolves each sample's ploidy as its override if present, or
// defaultPloidy otherwise. Overrides naming samples that are not in names are
// ignored and reported by Unmatched, so one samples file can serve any subset
// of a cohort.
func NewRegistry(names []string, overrides map[string]Ploidy, defaultPloidy Ploidy) (*Registry, error) {
	if len(names) == 0 {
		return nil, configErrorf("samples", "no samples given")
	}

	r := &Registry{
		samples:       make([]Sample, len(names)),
		defaultPloidy: defaultPloidy,
	}

	seen := make(map[string]struct{}, len(names))
	for i, name := range names {
		if _, dup := seen[name]; dup {
			return nil, configErrorf("samples", "sample %q is listed more than once", name)
		}
		seen[name] = struct{}{}

		p, ok := overrides[name]
		if !ok {
			p = defaultPloidy
		}
		if !p.Valid() {
			if ok {
				return nil, configErrorf("ploidy", "sample %q has ploidy %d; expected 1 or 2", name, p)
			}
			return nil, configErrorf("default_ploidy", "default ploidy %d; expected 1 or 2", p)
		}

		r.samples[i] = Sample{Name: name, Ploidy: p, Index: i}
		if p == Diploid {
			r.nDiploid++
		} else {
			r.nHaploid++
		}
	}

	for name := range overrides {
		if _, ok := seen[name]; !ok {
			r.unmatched = append(r.unmatched, name)
		}
	}
	sort.Strings(r.unmatched)

	r.maxPloidy = Haploid
	if r.nDiploid > 0 {
		r.maxPloidy = Diploid
	}

	return r, nil
}

// Unmatched lists, sorted, the override names that matched no sample.
func (r *Registry) Unmatched() []string {
	return append([]string(nil), r.unmatched...)
}

func (r *Registry) Len() int { return len(r.samples) }

func (r *Registry) PloidyOf(i int) Ploidy { return r.samples[i].Ploidy }

func (r *Registry) NDiploid() int { return r.nDiploid }

func (r *Registry) NHaploid() int { return r.nHaploid }

// MaxPloidy bounds the number of alleles any call for this cohort can carry.
func (r *Registry) MaxPloidy() Ploidy { return r.maxPloidy }

// DefaultPloidy is the ploidy given to samples without an override.
func (r *Registry) DefaultPloidy() Ploidy { return r.defaultPloidy }

// Samples returns a copy of the sample list in registry order.
func (r *Registry) Samples() []Sample {
	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.samples))
	for i, s := range r.samples {
		out[i] = s.Name
	}
	return out
}

// CheckOrder confirms that an adapter presents samples in exactly the
// registry's order.
func (r *Registry) CheckOrder(names []string) error {
	if len(names) != len(r.samples) {
		return configErrorf("samples", "input has %d samples; registry has %d", len(names), len(r.samples))
	}
	for i, name := range names {
		if name != r.samples[i].Name {
			return configErrorf("samples", "input sample %d is %q; registry expects %q", i, name, r.samples[i].Name)
		}
	}
	return nil
}
