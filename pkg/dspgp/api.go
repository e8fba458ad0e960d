package dspgp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"dspgp/internal/catalog"
	"dspgp/internal/codegen"
	"dspgp/internal/config"
	"dspgp/internal/evo"
	"dspgp/internal/logs"
	"dspgp/internal/model"
	"dspgp/internal/render"
	"dspgp/internal/scape"
	"dspgp/internal/stats"
	"dspgp/internal/storage"
	"dspgp/internal/tree"
	"dspgp/internal/viz"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "dspgp.db"

	// fixed width so index timestamps sort as strings
	createdAtLayout = "2006-01-02T15:04:05.000000000Z"
)

type (
	Experiment  = config.Experiment
	Renderer    = render.Renderer
	Diagnostics = model.GenerationDiagnostics
	// FitnessSummary condenses a best-fitness-per-generation series.
	FitnessSummary = stats.SeriesSummary
)

// LoadExperiment reads and unifies experiment files over the defaults.
func LoadExperiment(paths ...string) (Experiment, error) {
	return config.Load(paths...)
}

// SummarizeFitness summarizes a FitnessHistory result.
func SummarizeFitness(history []float64) FitnessSummary {
	return stats.SummarizeSeries(history)
}

// DefaultExperiment returns the experiment defaults.
func DefaultExperiment() Experiment {
	return config.Default()
}

type Options struct {
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string
	Logger     *slog.Logger
	// Renderer replaces the csound command line renderer.
	Renderer Renderer
}

type Client struct {
	store    storage.Store
	logger   *slog.Logger
	renderer Renderer

	initOnce sync.Once
	initErr  error

	runsDir    string
	exportsDir string
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	BestByGeneration []float64
	FinalBestFitness float64
	BestID           string
	// BestProgram is the instrument block of the fittest program.
	BestProgram string
	Elapsed     time.Duration
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID            string
	CreatedAtUTC     time.Time
	Target           string
	Seed             int64
	Population       int
	Generations      int
	FinalBestFitness float64
	BestID           string
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type LineageRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type LineageItem struct {
	IndividualID string
	ParentID     string
	Generation   int
	Operation    string
	NodeCount    int
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type IndividualRequest struct {
	ID string
}

type PopulationRequest struct {
	RunID  string
	Latest bool
}

type IndividualItem struct {
	ID         string
	RunID      string
	ParentID   string
	Operation  string
	Generation int
	Fitness    float64
	Similarity float64
	Tree       Tree
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = logs.Discard()
	}

	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		logger:     logger,
		renderer:   opts.Renderer,
		runsDir:    runsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.store.Init(ctx)
	})
	return c.initErr
}

// Run evolves programs towards exp.Target and records the run in the store
// and under the runs directory.
func (c *Client) Run(ctx context.Context, exp Experiment) (RunSummary, error) {
	if exp.Target == "" {
		return RunSummary{}, errors.New("run requires a target recording")
	}
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}
	timeout, err := exp.Timeout()
	if err != nil {
		return RunSummary{}, err
	}
	cat, err := c.loadCatalog(exp)
	if err != nil {
		return RunSummary{}, err
	}
	selector, err := evo.SelectorByName(exp.Selection)
	if err != nil {
		return RunSummary{}, err
	}

	started := time.Now().UTC()
	runID := uuid.NewString()
	ctx = logs.WithRunID(ctx, runID)

	workDir := exp.WorkDir
	if workDir == "" {
		workDir, err = os.MkdirTemp("", "dspgp-"+runID[:8]+"-")
		if err != nil {
			return RunSummary{}, err
		}
		if !exp.KeepRenders {
			defer os.RemoveAll(workDir)
		}
	} else {
		workDir = filepath.Join(workDir, runID)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return RunSummary{}, err
	}

	renderer := c.renderer
	if renderer == nil {
		renderer = render.NewCsound(exp.Csound, timeout, c.logger)
	}
	sm, err := scape.NewSoundMatch(renderer, exp.Target, workDir, cat.wavetables)
	if err != nil {
		return RunSummary{}, err
	}
	sm.KeepFiles = exp.KeepRenders

	monitor, err := evo.NewPopulationMonitor(evo.MonitorConfig{
		Scape:               sm,
		Generator:           cat.gen,
		Selector:            selector,
		Postprocessor:       evo.PostprocessorFor(exp.ComplexityFactor),
		PopulationSize:      exp.PopulationSize,
		Selected:            exp.Selected,
		Generations:         exp.Generations,
		Workers:             exp.Workers,
		Seed:                exp.Seed,
		TerminalProbability: exp.TerminalProbability,
		MaxDepth:            exp.MaxDepth,
		BlendFactor:         exp.BlendFactor,
		Logger:              c.logger,
	})
	if err != nil {
		return RunSummary{}, err
	}
	initial, err := monitor.SeedPopulation()
	if err != nil {
		return RunSummary{}, err
	}
	c.logger.InfoContext(ctx, "run started",
		"target", exp.Target,
		"descriptors", cat.Len(),
		"population", exp.PopulationSize,
		"generations", exp.Generations,
	)
	result, err := monitor.Run(ctx, initial)
	if err != nil {
		return RunSummary{}, err
	}
	if len(result.FinalPopulation) == 0 {
		return RunSummary{}, errors.New("run produced no survivors")
	}
	best := result.FinalPopulation[0]
	elapsed := time.Since(started)

	if err := c.persistRun(ctx, runID, exp, result, started, elapsed); err != nil {
		return RunSummary{}, err
	}

	encodedTree, err := tree.Marshal(best.Tree)
	if err != nil {
		return RunSummary{}, err
	}
	prog := codegen.Assemble(best.Tree, cat.wavetables, sm.Duration)
	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:               runID,
			Target:              exp.Target,
			Opcodes:             exp.Opcodes,
			Transitions:         exp.Transitions,
			PopulationSize:      exp.PopulationSize,
			Selected:            exp.Selected,
			Generations:         exp.Generations,
			MaxDepth:            exp.MaxDepth,
			TerminalProbability: exp.TerminalProbability,
			BlendFactor:         exp.BlendFactor,
			ComplexityFactor:    exp.ComplexityFactor,
			Selection:           exp.Selection,
			Workers:             exp.Workers,
			Seed:                exp.Seed,
			RenderTimeout:       exp.RenderTimeout,
			Csound:              exp.Csound,
		},
		History: stats.FitnessHistory{
			BestByGeneration:    result.BestByGeneration,
			FitnessByGeneration: result.FitnessByGeneration,
			FinalBestFitness:    best.Fitness,
		},
		GenerationDiagnostics: result.GenerationDiagnostics,
		Lineage:               result.Lineage,
		Best: &stats.BestProgram{
			ID:        best.ID,
			Fitness:   best.Fitness,
			Orchestra: prog.Orchestra,
			Score:     prog.Score,
			Tree:      encodedTree,
			Graph:     viz.DOT(best.Tree),
		},
	})
	if err != nil {
		return RunSummary{}, err
	}

	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:            runID,
		Target:           exp.Target,
		PopulationSize:   exp.PopulationSize,
		Generations:      exp.Generations,
		Seed:             exp.Seed,
		Workers:          exp.Workers,
		FinalBestFitness: best.Fitness,
		BestID:           best.ID,
		CreatedAtUTC:     started.Format(createdAtLayout),
	}); err != nil {
		return RunSummary{}, err
	}

	series := stats.SummarizeSeries(result.BestByGeneration)
	c.logger.InfoContext(ctx, "run complete",
		"best_fitness", best.Fitness,
		"improvement", series.Improvement,
		"stalled_generations", series.Stalled,
		"best_id", best.ID,
		"artifacts", runDir,
		"elapsed", elapsed,
	)
	return RunSummary{
		RunID:            runID,
		ArtifactsDir:     runDir,
		BestByGeneration: append([]float64(nil), result.BestByGeneration...),
		FinalBestFitness: best.Fitness,
		BestID:           best.ID,
		BestProgram:      codegen.Serialize(best.Tree),
		Elapsed:          elapsed,
	}, nil
}

func (c *Client) loadCatalog(exp Experiment) (*Catalog, error) {
	var cat *Catalog
	if exp.Opcodes == "" {
		built, err := BuildCatalog(nil)
		if err != nil {
			return nil, err
		}
		cat = built
	} else {
		f, err := os.Open(exp.Opcodes)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		built, err := BuildCatalog(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", exp.Opcodes, err)
		}
		cat = built
	}
	if len(exp.Transitions) == 0 {
		return cat, nil
	}
	return cat.WithTransitions(exp.Transitions)
}

func (c *Client) persistRun(ctx context.Context, runID string, exp Experiment, result evo.RunResult, started time.Time, elapsed time.Duration) error {
	ids := make([]string, 0, len(result.FinalPopulation))
	for _, ind := range result.FinalPopulation {
		rec, err := ind.Record(runID)
		if err != nil {
			return err
		}
		if err := c.store.SaveIndividual(ctx, rec); err != nil {
			return err
		}
		ids = append(ids, ind.ID)
	}
	if err := c.store.SavePopulation(ctx, model.Population{
		VersionedRecord: storage.Versioned(),
		ID:              runID,
		IndividualIDs:   ids,
		Generation:      exp.Generations,
	}); err != nil {
		return err
	}
	if err := c.store.SaveFitnessHistory(ctx, runID, result.BestByGeneration); err != nil {
		return err
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, runID, result.GenerationDiagnostics); err != nil {
		return err
	}
	if err := c.store.SaveLineage(ctx, runID, result.Lineage); err != nil {
		return err
	}
	best := result.FinalPopulation[0]
	return c.store.SaveRunSummary(ctx, model.RunSummary{
		VersionedRecord: storage.Versioned(),
		RunID:           runID,
		Target:          exp.Target,
		Generations:     exp.Generations,
		BestFitness:     best.Fitness,
		BestID:          best.ID,
		CreatedAtUTC:    started,
		DurationMilli:   elapsed.Milliseconds(),
	})
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		// a persistent store may outlive the runs directory
		return c.storedRuns(ctx, req.Limit)
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		created, err := time.Parse(createdAtLayout, e.CreatedAtUTC)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", e.RunID, err)
		}
		out = append(out, RunItem{
			RunID:            e.RunID,
			CreatedAtUTC:     created,
			Target:           e.Target,
			Seed:             e.Seed,
			Population:       e.PopulationSize,
			Generations:      e.Generations,
			FinalBestFitness: e.FinalBestFitness,
			BestID:           e.BestID,
		})
	}
	return out, nil
}

func (c *Client) storedRuns(ctx context.Context, limit int) ([]RunItem, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	summaries, err := c.store.ListRunSummaries(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAtUTC.After(summaries[j].CreatedAtUTC)
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	out := make([]RunItem, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, RunItem{
			RunID:            s.RunID,
			CreatedAtUTC:     s.CreatedAtUTC,
			Target:           s.Target,
			Generations:      s.Generations,
			FinalBestFitness: s.BestFitness,
			BestID:           s.BestID,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID, err := c.resolveRunID(req.RunID, req.Latest, "export")
	if err != nil {
		return ExportSummary{}, err
	}
	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) Lineage(ctx context.Context, req LineageRequest) ([]LineageItem, error) {
	if req.RunID != "" && req.Latest {
		return nil, errors.New("use either run id or latest")
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "lineage")
	if err != nil {
		return nil, err
	}

	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	lineage, ok, err := c.store.GetLineage(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		lineage, ok, err = stats.ReadLineage(c.runsDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("lineage not found for run id: %s", runID)
	}

	if req.Limit > 0 && len(lineage) > req.Limit {
		lineage = lineage[:req.Limit]
	}
	out := make([]LineageItem, 0, len(lineage))
	for _, rec := range lineage {
		out = append(out, LineageItem{
			IndividualID: rec.IndividualID,
			ParentID:     rec.ParentID,
			Generation:   rec.Generation,
			Operation:    rec.Operation,
			NodeCount:    rec.NodeCount,
		})
	}
	return out, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	if req.RunID != "" && req.Latest {
		return nil, errors.New("use either run id or latest")
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "fitness history")
	if err != nil {
		return nil, err
	}

	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// runs recorded by an earlier process with a memory store
		var artifact stats.FitnessHistory
		artifact, ok, err = stats.ReadFitnessHistory(c.runsDir, runID)
		if err != nil {
			return nil, err
		}
		history = artifact.BestByGeneration
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]Diagnostics, error) {
	if req.RunID != "" && req.Latest {
		return nil, errors.New("use either run id or latest")
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "diagnostics")
	if err != nil {
		return nil, err
	}

	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		diagnostics, ok, err = stats.ReadGenerationDiagnostics(c.runsDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]Diagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

// Individual loads a stored individual with its decoded program.
func (c *Client) Individual(ctx context.Context, req IndividualRequest) (IndividualItem, error) {
	if req.ID == "" {
		return IndividualItem{}, errors.New("individual requires an id")
	}
	if err := c.Init(ctx); err != nil {
		return IndividualItem{}, err
	}
	rec, ok, err := c.store.GetIndividual(ctx, req.ID)
	if err != nil {
		return IndividualItem{}, err
	}
	if !ok {
		return IndividualItem{}, fmt.Errorf("individual not found: %s", req.ID)
	}
	ind, err := evo.IndividualFromRecord(rec)
	if err != nil {
		return IndividualItem{}, err
	}
	if err := tree.Validate(ind.Tree, catalog.RateAudio); err != nil {
		return IndividualItem{}, fmt.Errorf("individual %s: %w", req.ID, err)
	}
	return IndividualItem{
		ID:         ind.ID,
		RunID:      rec.RunID,
		ParentID:   ind.ParentID,
		Operation:  ind.Operation,
		Generation: ind.Generation,
		Fitness:    ind.Fitness,
		Similarity: ind.Similarity,
		Tree:       Tree{root: ind.Tree},
	}, nil
}

// Population loads the final survivors of a run, fittest first.
func (c *Client) Population(ctx context.Context, req PopulationRequest) ([]IndividualItem, error) {
	if req.RunID != "" && req.Latest {
		return nil, errors.New("use either run id or latest")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "population")
	if err != nil {
		return nil, err
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	population, ok, err := c.store.GetPopulation(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("population not found for run id: %s", runID)
	}
	out := make([]IndividualItem, 0, len(population.IndividualIDs))
	for _, id := range population.IndividualIDs {
		item, err := c.Individual(ctx, IndividualRequest{ID: id})
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (c *Client) resolveRunID(runID string, latest bool, what string) (string, error) {
	if latest {
		entries, err := stats.ListRunIndex(c.runsDir)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "", errors.New("no runs available")
		}
		return entries[0].RunID, nil
	}
	if runID == "" {
		return "", fmt.Errorf("%s requires run id or latest", what)
	}
	return runID, nil
}
