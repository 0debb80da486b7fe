package gtsample

import (
	"math"
	"sync"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// zeroMass is the smallest probability sum that can still be renormalized.
const zeroMass = 1e-12

// Options tune how the Sampler turns distributions into calls. The zero value
// samples randomly, preserves phase and uses DefaultTolerance. A negative
// Tolerance renormalizes every distribution.
type Options struct {
	Mode      Mode
	Phase     PhasePolicy
	Tolerance float64
}

// Sampler draws one genotype per sample per variant. It holds no state between
// variants; all randomness comes from the stream passed to each call, so a
// single Sampler may be used from many goroutines as long as each has its own
// stream.
type Sampler struct {
	reg  *Registry
	opts Options

	// scratch holds *[][4]float64 of prepared probabilities, one per call in
	// flight.
	scratch sync.Pool
}

func NewSampler(reg *Registry, opts Options) *Sampler {
	if opts.Tolerance == 0 {
		opts.Tolerance = DefaultTolerance
	}
	s := &Sampler{reg: reg, opts: opts}
	s.scratch.New = func() interface{} { return new([][4]float64) }
	return s
}

func (s *Sampler) Registry() *Registry { return s.reg }

// SampleVariant returns one call per sample, in registry order.
//
// The whole genotype vector is validated before any draw is made, so a
// variant rejected with a *DataError leaves rng untouched. In ModeSample
// exactly one value is drawn from rng per non-missing sample, in sample order.
// rng may be nil in ModeSolve.
func (s *Sampler) SampleVariant(rng *rand.Rand, v *Variant) ([]Call, error) {
	return s.SampleVariantInto(rng, v, nil)
}

// SampleVariantInto is SampleVariant writing into dst, which is grown if
// needed and returned.
func (s *Sampler) SampleVariantInto(rng *rand.Rand, v *Variant, dst []Call) ([]Call, error) {
	n := s.reg.Len()
	if len(v.Genotypes) != n {
		return nil, dataErrorf(v.Label(), -1, "%d genotype entries for %d samples", len(v.Genotypes), n)
	}

	buf := s.scratch.Get().(*[][4]float64)
	defer s.scratch.Put(buf)
	if cap(*buf) < n {
		*buf = make([][4]float64, n)
	}
	prepared := (*buf)[:n]

	for i := range v.Genotypes {
		p, err := s.prepare(v, i)
		if err != nil {
			return nil, err
		}
		prepared[i] = p
	}

	if cap(dst) < n {
		dst = make([]Call, n)
	}
	dst = dst[:n]

	for i := range v.Genotypes {
		p := &prepared[i]
		ploidy := s.reg.PloidyOf(i)
		kind := v.Genotypes[i].Kind
		if kind == KindMissing {
			dst[i] = Call{Ploidy: ploidy, Missing: true}
			continue
		}

		states := p[:kind.NStates()]
		var state int
		if s.opts.Mode == ModeSolve {
			state = mostLikely(states)
		} else {
			state = drawState(states, rng.Float64())
		}

		dst[i] = s.call(ploidy, kind, state)
	}

	return dst, nil
}

// prepare checks sample i's distribution against its ploidy and returns its
// probabilities, renormalized if they drift from 1 by more than the tolerance.
func (s *Sampler) prepare(v *Variant, i int) ([4]float64, error) {
	d := &v.Genotypes[i]
	p := d.P

	if d.Kind == KindMissing {
		return p, nil
	}

	ploidy := s.reg.PloidyOf(i)
	if d.Kind.Ploidy() != ploidy {
		if d.Kind.NStates() == 0 {
			return p, dataErrorf(v.Label(), i, "unknown distribution kind %d", d.Kind)
		}
		return p, dataErrorf(v.Label(), i, "%d-state %s distribution for a sample with ploidy %d", d.Kind.NStates(), d.Kind, ploidy)
	}

	states := p[:d.Kind.NStates()]
	if !finiteNonNegative(states) {
		return p, dataErrorf(v.Label(), i, "probabilities %v are not all finite and non-negative", states)
	}

	sum := floats.Sum(states)
	if sum <= zeroMass {
		return p, dataErrorf(v.Label(), i, "probabilities %v have no mass to renormalize", states)
	}
	if math.Abs(sum-1) > s.opts.Tolerance {
		floats.Scale(1/sum, states)
	}

	return p, nil
}

func (s *Sampler) call(ploidy Ploidy, kind Kind, state int) Call {
	c := Call{Ploidy: ploidy, Alleles: kind.alleles(state)}
	if kind != KindDiploidPhased {
		return c
	}

	if s.opts.Phase == PhaseUnordered {
		if c.Alleles[0] > c.Alleles[1] {
			c.Alleles[0], c.Alleles[1] = c.Alleles[1], c.Alleles[0]
		}
		return c
	}

	c.Phased = true
	return c
}

// drawState picks the first state whose cumulative mass reaches u. A u that
// falls exactly on a boundary goes to the lower state, and states without mass
// are never chosen.
func drawState(p []float64, u float64) int {
	var cum [4]float64
	floats.CumSum(cum[:len(p)], p)

	last := 0
	for i := range p {
		if p[i] <= 0 {
			continue
		}
		last = i
		if u <= cum[i] {
			return i
		}
	}

	// u beyond the final cumulative value through rounding
	return last
}

// mostLikely returns the most probable state, preferring the lower index on ties.
func mostLikely(p []float64) int {
	best := 0
	for i := 1; i < len(p); i++ {
		if p[i] > p[best] {
			best = i
		}
	}
	return best
}
