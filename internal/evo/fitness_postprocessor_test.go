package evo

import (
	"math"
	"testing"
)

func TestSimilarityFitness(t *testing.T) {
	in := []Individual{{Similarity: 3, NodeCount: 10}, {Similarity: 1, NodeCount: 2}}
	out := SimilarityFitness{}.Process(in)
	if out[0].Fitness != 3 || out[1].Fitness != 1 {
		t.Fatalf("unexpected fitness: %+v", out)
	}
	if in[0].Fitness != 0 {
		t.Fatal("processing must not modify its input")
	}
}

func TestComplexityPenalty(t *testing.T) {
	in := []Individual{{Similarity: 2, NodeCount: 30}, {Similarity: 2, NodeCount: 10}}
	out := ComplexityPenalty{Factor: 0.5}.Process(in)
	// mean nodes 20: deviations 1.5 and 0.5
	want := []float64{2 / 1.25, 2 / 0.75}
	for i := range want {
		if math.Abs(out[i].Fitness-want[i]) > 1e-12 {
			t.Fatalf("individual %d: got %v want %v", i, out[i].Fitness, want[i])
		}
	}
	if out[1].Fitness <= out[0].Fitness {
		t.Fatal("smaller program should win at equal similarity")
	}

	same := ComplexityPenalty{Factor: 0}.Process(in)
	if same[0].Fitness != 2 || same[1].Fitness != 2 {
		t.Fatalf("factor 0 must leave similarity unchanged: %+v", same)
	}
}

func TestPostprocessorFor(t *testing.T) {
	if got := PostprocessorFor(0).Name(); got != "similarity" {
		t.Fatalf("unexpected postprocessor %s", got)
	}
	if got := PostprocessorFor(0.4).Name(); got != "complexity_penalty" {
		t.Fatalf("unexpected postprocessor %s", got)
	}
}
