package evo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/stat"

	"dspgp/internal/codegen"
	"dspgp/internal/genotype"
	"dspgp/internal/model"
	"dspgp/internal/sampler"
	"dspgp/internal/scape"
	"dspgp/internal/storage"
)

// DefaultOperators are applied, in order, to every survivor each generation.
var DefaultOperators = []string{OperationConstants, OperationSubtree}

type RunResult struct {
	BestByGeneration []float64
	// FitnessByGeneration holds the survivors' fitness in rank order.
	FitnessByGeneration   [][]float64
	GenerationDiagnostics []model.GenerationDiagnostics
	FinalPopulation       []Individual
	Lineage               []model.LineageRecord
}

type MonitorConfig struct {
	Scape               scape.Scape
	Generator           *genotype.Generator
	Sampler             *sampler.Sampler
	Selector            Selector
	Postprocessor       FitnessPostprocessor
	Operators           []string
	PopulationSize      int
	Selected            int
	Generations         int
	Workers             int
	Seed                int64
	TerminalProbability float64
	MaxDepth            int
	BlendFactor         float64
	Logger              *slog.Logger
}

// PopulationMonitor runs the evolutionary loop: every generation the
// survivors are kept, each registered operator is applied to each survivor,
// as many fresh programs as survivors are added, the unevaluated individuals
// are scored, and the fittest are selected.
type PopulationMonitor struct {
	cfg MonitorConfig
	rng *rand.Rand
}

func NewPopulationMonitor(cfg MonitorConfig) (*PopulationMonitor, error) {
	if cfg.Scape == nil {
		return nil, fmt.Errorf("scape is required")
	}
	if cfg.Generator == nil || cfg.Generator.Catalog == nil {
		return nil, fmt.Errorf("generator with a catalog is required")
	}
	if cfg.Sampler == nil {
		cfg.Sampler = cfg.Generator.Sampler
	}
	if cfg.Sampler == nil {
		return nil, fmt.Errorf("sampler is required")
	}
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.Selected <= 0 {
		return nil, fmt.Errorf("selected count must be > 0")
	}
	if cfg.Generations <= 0 {
		return nil, fmt.Errorf("generations must be > 0")
	}
	if cfg.MaxDepth < 1 {
		return nil, fmt.Errorf("max depth must be >= 1")
	}
	if cfg.TerminalProbability < 0 || cfg.TerminalProbability > 1 {
		return nil, fmt.Errorf("terminal probability must be in [0, 1]")
	}
	if cfg.BlendFactor < 0 || cfg.BlendFactor > 1 {
		return nil, fmt.Errorf("blend factor must be in [0, 1]")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Selector == nil {
		cfg.Selector = TruncationSelector{}
	}
	if cfg.Postprocessor == nil {
		cfg.Postprocessor = SimilarityFitness{}
	}
	if len(cfg.Operators) == 0 {
		cfg.Operators = DefaultOperators
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	return &PopulationMonitor{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// SeedPopulation generates the initial random population.
func (m *PopulationMonitor) SeedPopulation() ([]Individual, error) {
	population := make([]Individual, 0, m.cfg.PopulationSize)
	for i := 0; i < m.cfg.PopulationSize; i++ {
		ind, err := m.randomIndividual(OperationSeed, 0)
		if err != nil {
			return nil, err
		}
		population = append(population, ind)
	}
	return population, nil
}

func (m *PopulationMonitor) Run(ctx context.Context, initial []Individual) (RunResult, error) {
	if len(initial) == 0 {
		return RunResult{}, fmt.Errorf("initial population is required")
	}

	population := clonePopulation(initial)
	bestHistory := make([]float64, 0, m.cfg.Generations)
	fitnessHistory := make([][]float64, 0, m.cfg.Generations)
	diagnostics := make([]model.GenerationDiagnostics, 0, m.cfg.Generations)
	lineage := make([]model.LineageRecord, 0, len(initial)*(m.cfg.Generations+1))
	for _, ind := range population {
		lineage = append(lineage, lineageRecord(ind))
	}

	for gen := 1; gen <= m.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		offspring, noops, err := m.offspring(ctx, population, gen)
		if err != nil {
			return RunResult{}, err
		}
		for _, ind := range offspring[len(population):] {
			lineage = append(lineage, lineageRecord(ind))
		}

		evaluated, failures, err := m.evaluate(ctx, offspring)
		if err != nil {
			return RunResult{}, err
		}

		scored := m.cfg.Postprocessor.Process(offspring)
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].Fitness > scored[j].Fitness
		})
		survivors, err := m.cfg.Selector.Select(m.rng, scored, m.cfg.Selected)
		if err != nil {
			return RunResult{}, err
		}
		if len(survivors) == 0 {
			return RunResult{}, errors.New("selection returned no survivors")
		}

		summary := summarizeGeneration(scored, gen)
		summary.Evaluated = evaluated
		summary.RenderFailures = failures
		summary.MutationNoOps = noops
		diagnostics = append(diagnostics, summary)
		bestHistory = append(bestHistory, survivors[0].Fitness)
		row := make([]float64, 0, len(survivors))
		for _, ind := range survivors {
			row = append(row, ind.Fitness)
		}
		fitnessHistory = append(fitnessHistory, row)

		m.cfg.Logger.InfoContext(ctx, "generation complete",
			"generation", gen,
			"best_fitness", summary.BestFitness,
			"mean_fitness", summary.MeanFitness,
			"population", summary.PopulationSize,
			"evaluated", evaluated,
			"render_failures", failures,
			"mutation_noops", noops,
		)
		population = survivors
	}

	return RunResult{
		BestByGeneration:      bestHistory,
		FitnessByGeneration:   fitnessHistory,
		GenerationDiagnostics: diagnostics,
		FinalPopulation:       population,
		Lineage:               lineage,
	}, nil
}

// offspring returns the survivors followed by their mutants and fresh
// programs. Operators with no eligible mutation are counted, not fatal.
func (m *PopulationMonitor) offspring(ctx context.Context, population []Individual, generation int) ([]Individual, int, error) {
	out := clonePopulation(population)
	params := OperatorParams{
		Rand:                m.rng,
		Generator:           m.cfg.Generator,
		Sampler:             m.cfg.Sampler,
		BlendFactor:         m.cfg.BlendFactor,
		TerminalProbability: m.cfg.TerminalProbability,
		MaxDepth:            m.cfg.MaxDepth,
	}

	noops := 0
	for _, name := range m.cfg.Operators {
		for _, parent := range population {
			op, err := ResolveOperator(name, params, parent.Tree)
			if errors.Is(err, ErrOperatorIncompatible) {
				noops++
				continue
			}
			if err != nil {
				return nil, 0, err
			}
			mutated, err := op.Apply(ctx, parent.Tree)
			if errors.Is(err, ErrNoMutationChoice) {
				noops++
				continue
			}
			if err != nil {
				return nil, 0, fmt.Errorf("%s on %s: %w", op.Name(), parent.ID, err)
			}
			child, err := NewIndividual(m.rng, mutated, parent.ID, op.Name(), generation)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, child)
		}
	}

	for range population {
		ind, err := m.randomIndividual(OperationRandom, generation)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, ind)
	}
	return out, noops, nil
}

func (m *PopulationMonitor) randomIndividual(operation string, generation int) (Individual, error) {
	root, err := m.cfg.Generator.Generate(m.rng, m.cfg.TerminalProbability, m.cfg.MaxDepth)
	if err != nil {
		return Individual{}, err
	}
	return NewIndividual(m.rng, root, "", operation, generation)
}

// evaluate scores every unevaluated individual in place, at most Workers at
// a time.
func (m *PopulationMonitor) evaluate(ctx context.Context, population []Individual) (int, int, error) {
	p := pool.New().WithMaxGoroutines(m.cfg.Workers).WithContext(ctx).WithCancelOnError()
	evaluated := 0
	for i := range population {
		if population[i].Evaluated {
			continue
		}
		evaluated++
		ind := &population[i]
		p.Go(func(ctx context.Context) error {
			fitness, trace, err := m.cfg.Scape.Evaluate(ctx, ind.Agent())
			if err != nil {
				return fmt.Errorf("evaluate %s: %w", ind.ID, err)
			}
			ind.Similarity = float64(fitness)
			ind.Trace = trace
			ind.Evaluated = true
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return 0, 0, err
	}

	failures := 0
	for _, ind := range population {
		if ind.Trace.Failed() {
			failures++
		}
	}
	return evaluated, failures, nil
}

func summarizeGeneration(scored []Individual, generation int) model.GenerationDiagnostics {
	if len(scored) == 0 {
		return model.GenerationDiagnostics{Generation: generation}
	}

	fitness := make([]float64, len(scored))
	nodes := make([]float64, len(scored))
	programs := make(map[string]struct{}, len(scored))
	minFitness := scored[0].Fitness
	for i, ind := range scored {
		fitness[i] = ind.Fitness
		nodes[i] = float64(ind.NodeCount)
		if ind.Fitness < minFitness {
			minFitness = ind.Fitness
		}
		programs[codegen.Serialize(ind.Tree)] = struct{}{}
	}
	mean, std := stat.MeanStdDev(fitness, nil)
	if len(fitness) < 2 {
		std = 0
	}

	return model.GenerationDiagnostics{
		Generation:       generation,
		BestFitness:      scored[0].Fitness,
		MeanFitness:      finite(mean),
		MinFitness:       minFitness,
		StdDevFitness:    finite(std),
		PopulationSize:   len(scored),
		MeanNodeCount:    stat.Mean(nodes, nil),
		ProgramDiversity: len(programs),
	}
}

func lineageRecord(ind Individual) model.LineageRecord {
	return model.LineageRecord{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		IndividualID: ind.ID,
		ParentID:     ind.ParentID,
		Generation:   ind.Generation,
		Operation:    ind.Operation,
		NodeCount:    ind.NodeCount,
	}
}
