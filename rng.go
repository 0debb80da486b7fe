package gtsample

import "golang.org/x/exp/rand"

// NewStream returns the single RNG stream used when variants are processed
// strictly in order and share one sequence of draws.
func NewStream(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// VariantStream returns an RNG stream that depends only on the run seed and the
// variant's ordinal in the input. Variants sampled with their own stream give
// identical output regardless of which goroutine handles them.
func VariantStream(seed, variantIndex uint64) *rand.Rand {
	return rand.New(rand.NewSource(VariantSeed(seed, variantIndex)))
}

// VariantSeed derives a per-variant seed with the splitmix64 finalizer, so
// neighbouring indices get unrelated streams.
func VariantSeed(seed, variantIndex uint64) uint64 {
	z := seed + (variantIndex+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
