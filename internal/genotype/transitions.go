package genotype

import (
	"fmt"

	"dspgp/internal/catalog"
)

// TransitionTable gives, for each parent category (TagOutput included), the
// relative weight of choosing a child opcode from each real category.
type TransitionTable [catalog.NumTags + 1]catalog.Weights

// DefaultTransitions is the hand-authored category transition table. Rows are
// parent tags, columns child tags, both in catalog tag order.
var DefaultTransitions = TransitionTable{
	catalog.TagOscillator: {1, 1, 4, 1, 1, 1, 1},
	catalog.TagRandom:     {1, 1, 2, 1, 1, 1, 1},
	catalog.TagEnvelope:   {1, 1, 1, 1, 1, 1, 1},
	catalog.TagDelay:      {1, 1, 0, 1, 1, 1, 1},
	catalog.TagFilter:     {1, 1, 0, 1, 1, 1, 1},
	catalog.TagReverb:     {1, 1, 0, 1, 1, 0, 1},
	catalog.TagMath:       {1, 1, 1, 1, 1, 1, 1},
	catalog.TagOutput:     {1, 1, 0, 2, 2, 2, 2},
}

// Row returns the weights used below a node of the given category.
func (t *TransitionTable) Row(parent catalog.Tag) catalog.Weights {
	if int(parent) >= len(t) {
		return catalog.Weights{}
	}
	return t[parent]
}

// ParseTransitions builds a table from a row-major matrix with one row per
// parent tag and one column per real tag.
func ParseTransitions(rows [][]float64) (TransitionTable, error) {
	var table TransitionTable
	if len(rows) != len(table) {
		return TransitionTable{}, fmt.Errorf("transition table needs %d rows, got %d", len(table), len(rows))
	}
	for i, row := range rows {
		if len(row) != catalog.NumTags {
			return TransitionTable{}, fmt.Errorf("transition row %s needs %d weights, got %d", catalog.Tag(i), catalog.NumTags, len(row))
		}
		for j, w := range row {
			if w < 0 {
				return TransitionTable{}, fmt.Errorf("transition %s -> %s has negative weight %g", catalog.Tag(i), catalog.Tag(j), w)
			}
			table[i][j] = w
		}
	}
	return table, nil
}

// Rows returns the table as a row-major matrix.
func (t *TransitionTable) Rows() [][]float64 {
	rows := make([][]float64, len(t))
	for i := range t {
		rows[i] = append([]float64(nil), t[i][:]...)
	}
	return rows
}
