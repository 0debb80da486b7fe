package gtsample

import "strconv"

// Call is the discrete genotype drawn for one sample at one variant. Only the
// first Ploidy entries of Alleles are meaningful.
type Call struct {
	Ploidy  Ploidy
	Alleles [2]uint8
	Phased  bool
	Missing bool
}

// String renders the call as a VCF GT value.
func (c Call) String() string {
	if c.Ploidy == Haploid {
		if c.Missing {
			return "."
		}
		return strconv.Itoa(int(c.Alleles[0]))
	}

	sep := "/"
	if c.Phased {
		sep = "|"
	}
	if c.Missing {
		return "." + sep + "."
	}
	return strconv.Itoa(int(c.Alleles[0])) + sep + strconv.Itoa(int(c.Alleles[1]))
}

// AltCount is the number of non-reference alleles in the call.
func (c Call) AltCount() int {
	if c.Missing {
		return 0
	}
	n := 0
	for i := 0; i < int(c.Ploidy); i++ {
		if c.Alleles[i] != 0 {
			n++
		}
	}
	return n
}
