package dspgp

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dspgp/internal/analysis"
	"dspgp/internal/codegen"
	"dspgp/internal/render"
	"dspgp/internal/stats"
)

type rendererFunc func(ctx context.Context, prog codegen.Program, dir, name string) (string, error)

func (f rendererFunc) Render(ctx context.Context, prog codegen.Program, dir, name string) (string, error) {
	return f(ctx, prog, dir, name)
}

func tone(freq float64, n int) analysis.Signal {
	s := analysis.Signal{Samples: make([]float64, n), SampleRate: 8000}
	for i := range s.Samples {
		s.Samples[i] = math.Round(8000 * math.Sin(2*math.Pi*freq*float64(i)/8000))
	}
	return s
}

// pitchRenderer plays a tone whose pitch depends on the orchestra text, so
// different programs score differently.
func pitchRenderer() rendererFunc {
	return func(_ context.Context, prog codegen.Program, dir, name string) (string, error) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		files := render.FilesFor(dir, name)
		freq := 200 + float64(len(prog.Orchestra)%40)*50
		return files.WAV, analysis.WriteWAV(files.WAV, tone(freq, 4000))
	}
}

func newTestClient(t *testing.T) (*Client, string) {
	t.Helper()
	base := t.TempDir()
	client, err := New(Options{
		StoreKind:  "memory",
		RunsDir:    filepath.Join(base, "runs"),
		ExportsDir: filepath.Join(base, "exports"),
		Renderer:   pitchRenderer(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, base
}

func testExperiment(t *testing.T, base string) Experiment {
	t.Helper()
	target := filepath.Join(base, "target.wav")
	if err := analysis.WriteWAV(target, tone(1000, 4000)); err != nil {
		t.Fatalf("write target: %v", err)
	}
	exp := DefaultExperiment()
	exp.Target = target
	exp.PopulationSize = 4
	exp.Selected = 2
	exp.Generations = 2
	exp.Workers = 2
	exp.Seed = 5
	exp.MaxDepth = 3
	exp.WorkDir = filepath.Join(base, "work")
	return exp
}

func TestClientRunRunsAndExport(t *testing.T) {
	client, base := newTestClient(t)
	ctx := context.Background()

	summary, err := client.Run(ctx, testExperiment(t, base))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID == "" || summary.BestID == "" {
		t.Fatalf("incomplete summary: %+v", summary)
	}
	if len(summary.BestByGeneration) != 2 {
		t.Fatalf("unexpected generation history length: %d", len(summary.BestByGeneration))
	}
	if summary.FinalBestFitness != summary.BestByGeneration[1] {
		t.Fatalf("final best %v does not match history %v", summary.FinalBestFitness, summary.BestByGeneration)
	}
	if !strings.Contains(summary.BestProgram, "out aout__") {
		t.Fatalf("unexpected best program:\n%s", summary.BestProgram)
	}
	for _, name := range []string{stats.ConfigFile, stats.BestOrchestraFile, stats.BestGraphFile, stats.FitnessCSVFile} {
		if _, err := os.Stat(filepath.Join(summary.ArtifactsDir, name)); err != nil {
			t.Fatalf("missing artifact %s: %v", name, err)
		}
	}

	runs, err := client.Runs(ctx, RunsRequest{Limit: 5})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID || runs[0].BestID != summary.BestID {
		t.Fatalf("expected run %s in runs list: %+v", summary.RunID, runs)
	}
	if runs[0].CreatedAtUTC.IsZero() {
		t.Fatal("expected creation time")
	}

	lineage, err := client.Lineage(ctx, LineageRequest{Latest: true, Limit: 3})
	if err != nil {
		t.Fatalf("lineage: %v", err)
	}
	if len(lineage) != 3 {
		t.Fatalf("expected 3 lineage records, got %d", len(lineage))
	}

	history, err := client.FitnessHistory(ctx, FitnessHistoryRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("fitness history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("unexpected fitness history: %v", history)
	}

	diagnostics, err := client.Diagnostics(ctx, DiagnosticsRequest{Latest: true})
	if err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	if len(diagnostics) != 2 || diagnostics[0].Generation != 1 {
		t.Fatalf("unexpected diagnostics: %+v", diagnostics)
	}

	best, err := client.Individual(ctx, IndividualRequest{ID: summary.BestID})
	if err != nil {
		t.Fatalf("individual: %v", err)
	}
	if best.RunID != summary.RunID || best.Tree.Serialize() != summary.BestProgram {
		t.Fatalf("stored best does not match summary: %+v", best)
	}

	population, err := client.Population(ctx, PopulationRequest{Latest: true})
	if err != nil {
		t.Fatalf("population: %v", err)
	}
	if len(population) != 2 || population[0].ID != summary.BestID {
		t.Fatalf("unexpected final population: %+v", population)
	}
	if population[0].Fitness < population[1].Fitness {
		t.Fatal("population should be ordered fittest first")
	}

	exported, err := client.Export(ctx, ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported.RunID != summary.RunID {
		t.Fatalf("exported %s, want %s", exported.RunID, summary.RunID)
	}
	if _, err := os.Stat(filepath.Join(exported.Directory, stats.LineageFile)); err != nil {
		t.Fatalf("exported lineage: %v", err)
	}
}

func TestClientReadsArtifactsWithoutStore(t *testing.T) {
	client, base := newTestClient(t)
	summary, err := client.Run(context.Background(), testExperiment(t, base))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// a fresh memory store knows nothing about the run
	reader, err := New(Options{StoreKind: "memory", RunsDir: filepath.Join(base, "runs")})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	history, err := reader.FitnessHistory(context.Background(), FitnessHistoryRequest{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("fitness history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("unexpected history: %v", history)
	}
	if _, err := reader.Lineage(context.Background(), LineageRequest{RunID: summary.RunID}); err != nil {
		t.Fatalf("lineage: %v", err)
	}
	if _, err := reader.Individual(context.Background(), IndividualRequest{ID: summary.BestID}); err == nil {
		t.Fatal("expected missing individual")
	}
}

func TestClientRunsFallsBackToStore(t *testing.T) {
	client, base := newTestClient(t)
	ctx := context.Background()
	summary, err := client.Run(ctx, testExperiment(t, base))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := os.Remove(filepath.Join(base, "runs", "run_index.json")); err != nil {
		t.Fatalf("remove run index: %v", err)
	}

	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID || runs[0].Generations != 2 {
		t.Fatalf("unexpected stored runs: %+v", runs)
	}

	series := SummarizeFitness(summary.BestByGeneration)
	if series.Generations != 2 || series.FinalBest != summary.FinalBestFitness {
		t.Fatalf("unexpected fitness summary: %+v", series)
	}
	if series.Improvement < 0 {
		t.Fatalf("best fitness regressed: %+v", series)
	}
}

func TestClientRequestValidation(t *testing.T) {
	client, base := newTestClient(t)
	ctx := context.Background()

	if _, err := client.Export(ctx, ExportRequest{RunID: "x", Latest: true}); err == nil {
		t.Fatal("expected error for run id with latest")
	}
	if _, err := client.Export(ctx, ExportRequest{}); err == nil {
		t.Fatal("expected error without run id")
	}
	if _, err := client.Lineage(ctx, LineageRequest{RunID: "x", Limit: -1}); err == nil {
		t.Fatal("expected error for negative limit")
	}
	if _, err := client.FitnessHistory(ctx, FitnessHistoryRequest{Latest: true}); err == nil {
		t.Fatal("expected error without runs")
	}
	if _, err := client.Diagnostics(ctx, DiagnosticsRequest{RunID: "missing"}); err == nil {
		t.Fatal("expected error for unknown run")
	}

	exp := testExperiment(t, base)
	exp.Target = ""
	if _, err := client.Run(ctx, exp); err == nil {
		t.Fatal("expected error without target")
	}
	exp = testExperiment(t, base)
	exp.Selection = "roulette"
	if _, err := client.Run(ctx, exp); err == nil {
		t.Fatal("expected error for unknown selection")
	}
	exp = testExperiment(t, base)
	exp.Opcodes = filepath.Join(base, "missing.txt")
	if _, err := client.Run(ctx, exp); err == nil {
		t.Fatal("expected error for missing opcode table")
	}
}

func TestNewRejectsUnknownStore(t *testing.T) {
	if _, err := New(Options{StoreKind: "bogus"}); err == nil {
		t.Fatal("expected unsupported store error")
	}
}
