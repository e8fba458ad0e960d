package evo

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"dspgp/internal/sampler"
)

// FitnessPostprocessor turns similarity scores into fitness before ranking.
type FitnessPostprocessor interface {
	Name() string
	Process(population []Individual) []Individual
}

// SimilarityFitness uses the similarity score as fitness.
type SimilarityFitness struct{}

func (SimilarityFitness) Name() string {
	return "similarity"
}

func (SimilarityFitness) Process(population []Individual) []Individual {
	out := clonePopulation(population)
	for i := range out {
		out[i].Fitness = out[i].Similarity
	}
	return out
}

// ComplexityPenalty divides similarity by lerp(1, nodes/meanNodes, Factor),
// favoring programs smaller than the population average.
type ComplexityPenalty struct {
	Factor float64
}

func (ComplexityPenalty) Name() string {
	return "complexity_penalty"
}

func (p ComplexityPenalty) Process(population []Individual) []Individual {
	out := clonePopulation(population)
	if len(out) == 0 {
		return out
	}
	counts := make([]float64, len(out))
	for i := range out {
		counts[i] = float64(out[i].NodeCount)
	}
	mean := stat.Mean(counts, nil)
	for i := range out {
		deviation := 1.0
		if mean > 0 {
			deviation = counts[i] / mean
		}
		out[i].Fitness = finite(out[i].Similarity / sampler.Lerp(1, deviation, p.Factor))
	}
	return out
}

// PostprocessorFor returns the fitness rule for a complexity factor.
func PostprocessorFor(complexityFactor float64) FitnessPostprocessor {
	if complexityFactor == 0 {
		return SimilarityFitness{}
	}
	return ComplexityPenalty{Factor: complexityFactor}
}

func clonePopulation(population []Individual) []Individual {
	out := make([]Individual, len(population))
	copy(out, population)
	return out
}

// finite clamps overflowed scores so they stay comparable and encodable.
func finite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}
