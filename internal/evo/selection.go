package evo

import (
	"fmt"
	"math/rand"
	"slices"
)

// Selector chooses the survivors of a generation from individuals ranked by
// descending fitness.
type Selector interface {
	Name() string
	Select(rng *rand.Rand, ranked []Individual, count int) ([]Individual, error)
}

// TruncationSelector keeps the top ranked individuals.
type TruncationSelector struct{}

func (TruncationSelector) Name() string {
	return "truncation"
}

func (TruncationSelector) Select(_ *rand.Rand, ranked []Individual, count int) ([]Individual, error) {
	if count <= 0 {
		return nil, fmt.Errorf("invalid selection count: %d", count)
	}
	if count > len(ranked) {
		count = len(ranked)
	}
	return append([]Individual(nil), ranked[:count]...), nil
}

// TournamentSelector always keeps the best individual, then fills the
// remaining slots with winners of small tournaments among the individuals
// not yet selected. Survivors come back in rank order.
type TournamentSelector struct {
	TournamentSize int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) Select(rng *rand.Rand, ranked []Individual, count int) ([]Individual, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if count <= 0 {
		return nil, fmt.Errorf("invalid selection count: %d", count)
	}
	if count >= len(ranked) {
		return append([]Individual(nil), ranked...), nil
	}

	tournamentSize := s.TournamentSize
	if tournamentSize <= 0 {
		tournamentSize = 3
	}

	// indexes into ranked, so a lower index is a fitter individual
	remaining := make([]int, 0, len(ranked)-1)
	for i := 1; i < len(ranked); i++ {
		remaining = append(remaining, i)
	}
	chosen := []int{0}
	for len(chosen) < count {
		size := min(tournamentSize, len(remaining))
		best := rng.Intn(len(remaining))
		for i := 1; i < size; i++ {
			if candidate := rng.Intn(len(remaining)); remaining[candidate] < remaining[best] {
				best = candidate
			}
		}
		chosen = append(chosen, remaining[best])
		remaining = append(remaining[:best], remaining[best+1:]...)
	}

	slices.Sort(chosen)
	out := make([]Individual, 0, count)
	for _, idx := range chosen {
		out = append(out, ranked[idx])
	}
	return out, nil
}

// SelectorByName resolves a configured selection strategy.
func SelectorByName(name string) (Selector, error) {
	switch name {
	case "", "truncation":
		return TruncationSelector{}, nil
	case "tournament":
		return TournamentSelector{}, nil
	default:
		return nil, fmt.Errorf("unsupported selection: %s", name)
	}
}
