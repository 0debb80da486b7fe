package gtsample

import "math"

// Kind tags which genotype states a Distribution holds.
type Kind uint8

const (
	// KindMissing carries no data; the sample gets a missing call.
	KindMissing Kind = iota
	// KindHaploid holds P(A), P(B).
	KindHaploid
	// KindDiploidUnphased holds P(AA), P(AB), P(BB).
	KindDiploidUnphased
	// KindDiploidPhased holds the ordered pairs P(AA), P(AB), P(BA), P(BB),
	// first allele from the first haplotype.
	KindDiploidPhased
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindHaploid:
		return "haploid"
	case KindDiploidUnphased:
		return "diploid-unphased"
	case KindDiploidPhased:
		return "diploid-phased"
	default:
		return "illegal kind"
	}
}

// NStates is the number of genotype states carried by a Distribution of this
// kind.
func (k Kind) NStates() int {
	switch k {
	case KindHaploid:
		return 2
	case KindDiploidUnphased:
		return 3
	case KindDiploidPhased:
		return 4
	}
	return 0
}

// Ploidy is the number of alleles a sample with this kind of data carries, or
// 0 for missing data.
func (k Kind) Ploidy() Ploidy {
	switch k {
	case KindHaploid:
		return Haploid
	case KindDiploidUnphased, KindDiploidPhased:
		return Diploid
	}
	return 0
}

// Distribution is one sample's genotype probabilities at one variant. It is a
// fixed-size value so that a whole variant fits in one flat slice.
type Distribution struct {
	Kind Kind
	P    [4]float64
}

func MissingDist() Distribution {
	return Distribution{Kind: KindMissing}
}

func HaploidDist(a, b float64) Distribution {
	return Distribution{Kind: KindHaploid, P: [4]float64{a, b}}
}

func UnphasedDist(aa, ab, bb float64) Distribution {
	return Distribution{Kind: KindDiploidUnphased, P: [4]float64{aa, ab, bb}}
}

func PhasedDist(aa, ab, ba, bb float64) Distribution {
	return Distribution{Kind: KindDiploidPhased, P: [4]float64{aa, ab, ba, bb}}
}

// HaplotypeDist builds the ordered-pair distribution implied by two
// independent haplotype probabilities of carrying allele A.
func HaplotypeDist(pA1, pA2 float64) Distribution {
	return PhasedDist(
		pA1*pA2,
		pA1*(1-pA2),
		(1-pA1)*pA2,
		(1-pA1)*(1-pA2),
	)
}

// States returns the populated probability slots.
func (d *Distribution) States() []float64 {
	return d.P[:d.Kind.NStates()]
}

// alleles maps a state index to its allele pair.
func (k Kind) alleles(state int) [2]uint8 {
	switch k {
	case KindHaploid:
		return [2]uint8{uint8(state), 0}
	case KindDiploidUnphased:
		return [...][2]uint8{{0, 0}, {0, 1}, {1, 1}}[state]
	case KindDiploidPhased:
		return [...][2]uint8{{0, 0}, {0, 1}, {1, 0}, {1, 1}}[state]
	}
	return [2]uint8{}
}

func finiteNonNegative(p []float64) bool {
	for _, v := range p {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
