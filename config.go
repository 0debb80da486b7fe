package gtsample

import (
	"math"
	"runtime"
)

// Mode selects how a genotype is chosen from a distribution.
type Mode uint8

const (
	// ModeSample draws a genotype at random, proportionally to its probability.
	ModeSample Mode = iota
	// ModeSolve takes the most probable genotype without consuming randomness.
	ModeSolve
)

func (m Mode) String() string {
	switch m {
	case ModeSample:
		return "sample"
	case ModeSolve:
		return "solve"
	default:
		return "illegal mode"
	}
}

// PhasePolicy controls whether the allele order of diploid calls is kept.
type PhasePolicy uint8

const (
	// PhasePreserve reports ordered pairs as phased calls.
	PhasePreserve PhasePolicy = iota
	// PhaseUnordered collapses 1|0 into 0/1 and reports every diploid call unphased.
	PhaseUnordered
)

func (p PhasePolicy) String() string {
	switch p {
	case PhasePreserve:
		return "preserve"
	case PhaseUnordered:
		return "unordered"
	default:
		return "illegal phase policy"
	}
}

// Seeding chooses how random streams are assigned to variants. The two
// policies produce different (but individually reproducible) output and must
// not be mixed within a run.
type Seeding uint8

const (
	// SeedShared advances one stream across all variants in input order.
	// Only valid for sequential processing.
	SeedShared Seeding = iota
	// SeedPerVariant gives each variant its own stream derived from the seed
	// and the variant's ordinal, which makes parallel processing reproducible.
	SeedPerVariant
)

func (s Seeding) String() string {
	switch s {
	case SeedShared:
		return "shared"
	case SeedPerVariant:
		return "per-variant"
	default:
		return "illegal seeding"
	}
}

// DefaultTolerance is how far a distribution may sum away from 1 before it is
// renormalized.
const DefaultTolerance = 1e-6

// AlwaysRenormalize as a tolerance rescales every distribution to sum to
// exactly 1, however small its drift.
const AlwaysRenormalize = -1.0

// Config is the validated configuration consumed by the sampling core. It is
// filled in by the command-line layer.
type Config struct {
	DefaultPloidy   Ploidy
	PloidyOverrides map[string]Ploidy
	Seed            uint64

	Mode    Mode
	Phase   PhasePolicy
	Seeding Seeding
	Threads int

	// Tolerance is the drift from 1 allowed before renormalizing. Zero means
	// DefaultTolerance; any negative value means AlwaysRenormalize.
	Tolerance float64
}

// DefaultConfig returns a configuration for a diploid cohort processed
// sequentially.
func DefaultConfig() Config {
	return Config{
		DefaultPloidy: Diploid,
		Seeding:       SeedShared,
		Threads:       1,
		Tolerance:     DefaultTolerance,
	}
}

// Validate fills in zero values and rejects inconsistent settings.
func (c *Config) Validate() error {
	if !c.DefaultPloidy.Valid() {
		return configErrorf("default_ploidy", "%d; expected 1 or 2", c.DefaultPloidy)
	}
	for name, p := range c.PloidyOverrides {
		if !p.Valid() {
			return configErrorf("ploidy", "sample %q has ploidy %d; expected 1 or 2", name, p)
		}
	}
	if c.Mode > ModeSolve {
		return configErrorf("mode", "unknown mode %d", c.Mode)
	}
	if c.Phase > PhaseUnordered {
		return configErrorf("phase", "unknown phase policy %d", c.Phase)
	}
	if c.Seeding > SeedPerVariant {
		return configErrorf("seeding", "unknown seeding %d", c.Seeding)
	}
	if c.Threads < 0 {
		return configErrorf("threads", "%d is negative", c.Threads)
	}
	if c.Threads == 0 {
		c.Threads = 1
		if c.Seeding == SeedPerVariant {
			c.Threads = runtime.NumCPU()
		}
	}
	if c.Threads > 1 && c.Seeding == SeedShared {
		return configErrorf("threads", "%d threads need per-variant seeding; a shared stream is only reproducible sequentially", c.Threads)
	}
	if c.Tolerance == 0 {
		c.Tolerance = DefaultTolerance
	}
	if math.IsNaN(c.Tolerance) || c.Tolerance >= 1 {
		return configErrorf("tolerance", "%g is not below 1", c.Tolerance)
	}
	return nil
}

// Registry builds the ploidy registry for the given sample order.
func (c *Config) Registry(names []string) (*Registry, error) {
	return NewRegistry(names, c.PloidyOverrides, c.DefaultPloidy)
}

// Options returns the sampler options implied by the configuration.
func (c *Config) Options() Options {
	return Options{Mode: c.Mode, Phase: c.Phase, Tolerance: c.Tolerance}
}
