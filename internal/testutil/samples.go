package testutil

import (
	"math"
	"math/rand"
	"slices"
	"sort"
)

// Distribution generates samples from a random source.
type Distribution struct {
	Name   string
	Sample func(rng *rand.Rand) float64
}

// Distributions covers symmetric, skewed, heavy tailed, multimodal, and discrete inputs.
var Distributions = []Distribution{
	{"uniform", func(rng *rand.Rand) float64 { return rng.Float64() * 1000 }},
	{"normal", func(rng *rand.Rand) float64 { return rng.NormFloat64()*10 + 100 }},
	{"exponential", func(rng *rand.Rand) float64 { return rng.ExpFloat64() * 50 }},
	{"lognormal", func(rng *rand.Rand) float64 { return 100 * math.Exp(rng.NormFloat64()) }},
	{"bimodal", func(rng *rand.Rand) float64 {
		if rng.Float64() < .7 {
			return rng.NormFloat64() + 10
		}
		return rng.NormFloat64()*5 + 50
	}},
	{"discrete", func(rng *rand.Rand) float64 { return float64(rng.Intn(10)) }},
}

// Samples returns count samples from the distribution using a source seeded with seed.
func Samples(d Distribution, seed int64, count int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	samples := make([]float64, count)
	for i := range samples {
		samples[i] = d.Sample(rng)
	}
	return samples
}

// ExactQuantile returns the sample at rank floor(quantile * len(samples)) in sorted order, clamped to the last sample.
// Returns 0 if there are no samples.
func ExactQuantile(samples []float64, quantile float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	return sorted[min(int(quantile*float64(len(sorted))), len(sorted)-1)]
}

// RankError returns how far the ratio of samples <= estimate is from the quantile. Unlike the absolute error of an
// estimate, this is comparable across distributions.
func RankError(samples []float64, quantile float64, estimate float64) float64 {
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	rank := sort.Search(len(sorted), func(i int) bool {
		return sorted[i] > estimate
	})
	return math.Abs(float64(rank)/float64(len(sorted)) - quantile)
}
