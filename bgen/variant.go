package bgen

// Allele is one allele's sequence as stored in the variant identifying data.
type Allele string

func (a Allele) String() string {
	return string(a)
}

type Variant struct {
	ID            string
	RSID          string
	Chromosome    string
	Position      uint32
	NAlleles      uint16
	Alleles       []Allele
	Probabilities *Probability

	// FileStartPosition is the offset of this variant's block in the file, as
	// recorded in .bgi indexes.
	FileStartPosition int64
}
