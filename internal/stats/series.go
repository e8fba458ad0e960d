package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SeriesSummary condenses a best-fitness-per-generation series.
type SeriesSummary struct {
	Generations int     `json:"generations"`
	InitialBest float64 `json:"initial_best"`
	FinalBest   float64 `json:"final_best"`
	BestMean    float64 `json:"best_mean"`
	BestStd     float64 `json:"best_std"`
	BestMax     float64 `json:"best_max"`
	BestMin     float64 `json:"best_min"`
	Improvement float64 `json:"improvement"`
	// Stalled counts trailing generations without a new best.
	Stalled int `json:"stalled"`
}

func SummarizeSeries(bestByGeneration []float64) SeriesSummary {
	n := len(bestByGeneration)
	if n == 0 {
		return SeriesSummary{}
	}
	mean, std := stat.MeanStdDev(bestByGeneration, nil)
	if n < 2 || math.IsNaN(std) || math.IsInf(std, 0) {
		std = 0
	}
	if math.IsInf(mean, 1) {
		mean = math.MaxFloat64
	}
	stalled := 0
	for i := n - 1; i > 0 && bestByGeneration[i] <= bestByGeneration[i-1]; i-- {
		stalled++
	}
	return SeriesSummary{
		Generations: n,
		InitialBest: bestByGeneration[0],
		FinalBest:   bestByGeneration[n-1],
		BestMean:    mean,
		BestStd:     std,
		BestMax:     floats.Max(bestByGeneration),
		BestMin:     floats.Min(bestByGeneration),
		Improvement: bestByGeneration[n-1] - bestByGeneration[0],
		Stalled:     stalled,
	}
}
