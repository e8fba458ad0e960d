package stats

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"dspgp/internal/model"
)

func testArtifacts(runID string) RunArtifacts {
	return RunArtifacts{
		Config: RunConfig{
			RunID:          runID,
			Target:         "target.wav",
			PopulationSize: 6,
			Selected:       3,
			Generations:    3,
			MaxDepth:       5,
			Seed:           1,
			Workers:        2,
		},
		History: FitnessHistory{
			BestByGeneration:    []float64{0.5, 0.6, 0.7},
			FitnessByGeneration: [][]float64{{0.5, 0.4, 0.1}, {0.6, 0.5}, {0.7, 0.6, 0.5}},
			FinalBestFitness:    0.7,
		},
		GenerationDiagnostics: []model.GenerationDiagnostics{{Generation: 1, BestFitness: 0.5}},
		Lineage: []model.LineageRecord{{
			IndividualID: "i1",
			Generation:   0,
			Operation:    "seed",
		}},
	}
}

func TestWriteAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	runID := "run-123"
	artifacts := testArtifacts(runID)
	artifacts.Best = &BestProgram{
		ID:        "i1",
		Fitness:   0.7,
		Orchestra: "sr = 44100\n",
		Score:     "i1 0 1\n",
		Tree:      []byte(`{"value":{"kind":"real","num":1}}`),
		Graph:     "digraph program {\n}\n",
	}

	runDir, err := WriteRunArtifacts(baseDir, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	all := []string{ConfigFile, FitnessHistoryFile, FitnessCSVFile, DiagnosticsFile, LineageFile, BestOrchestraFile, BestScoreFile, BestTreeFile, BestGraphFile}
	for _, file := range all {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}
	score, err := os.ReadFile(filepath.Join(runDir, BestScoreFile))
	if err != nil || string(score) != "i1 0 1\n" {
		t.Fatalf("unexpected score %q err=%v", score, err)
	}

	exportedDir, err := ExportRunArtifacts(baseDir, runID, outDir)
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	for _, file := range all {
		if _, err := os.Stat(filepath.Join(exportedDir, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}

	cfg, ok, err := ReadRunConfig(baseDir, runID)
	if err != nil || !ok || cfg.Target != "target.wav" || cfg.Selected != 3 {
		t.Fatalf("unexpected config %+v ok=%t err=%v", cfg, ok, err)
	}
	history, ok, err := ReadFitnessHistory(baseDir, runID)
	if err != nil || !ok || !reflect.DeepEqual(history, artifacts.History) {
		t.Fatalf("unexpected history %+v ok=%t err=%v", history, ok, err)
	}
	lineage, ok, err := ReadLineage(baseDir, runID)
	if err != nil || !ok || len(lineage) != 1 || lineage[0].IndividualID != "i1" {
		t.Fatalf("unexpected lineage %+v ok=%t err=%v", lineage, ok, err)
	}
	diagnostics, ok, err := ReadGenerationDiagnostics(baseDir, runID)
	if err != nil || !ok || len(diagnostics) != 1 {
		t.Fatalf("unexpected diagnostics %+v ok=%t err=%v", diagnostics, ok, err)
	}
}

func TestExportRunArtifactsWithoutBestProgram(t *testing.T) {
	baseDir := t.TempDir()
	if _, err := WriteRunArtifacts(baseDir, testArtifacts("run-1")); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	exported, err := ExportRunArtifacts(baseDir, "run-1", t.TempDir())
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exported, BestOrchestraFile)); !os.IsNotExist(err) {
		t.Fatalf("expected no best program, got %v", err)
	}
	if _, err := ExportRunArtifacts(baseDir, "missing", t.TempDir()); err == nil {
		t.Fatal("expected error for unknown run")
	}
	if _, err := WriteRunArtifacts(baseDir, RunArtifacts{}); err == nil {
		t.Fatal("expected error without run id")
	}
}

func TestFitnessOverTimeCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), FitnessCSVFile)
	input := [][]float64{{3, 2, 1}, {4, 3}}
	if err := WriteFitnessOverTime(path, input); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	want := "generation,rank_1,rank_2,rank_3\n1,3,2,1\n2,4,3,\n"
	if string(data) != want {
		t.Fatalf("unexpected csv:\n%s", data)
	}
	output, err := ReadFitnessOverTime(path)
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if !reflect.DeepEqual(input, output) {
		t.Fatalf("unexpected rows: %v", output)
	}

	bad := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(bad, []byte(strings.Join([]string{"gen,best", "1,2"}, "\n")), 0o644); err != nil {
		t.Fatalf("write bad csv: %v", err)
	}
	if _, err := ReadFitnessOverTime(bad); err == nil {
		t.Fatal("expected header error")
	}
}

func TestRunIndexAppendListAndUpsert(t *testing.T) {
	baseDir := t.TempDir()

	err := AppendRunIndex(baseDir, RunIndexEntry{
		RunID:            "run-1",
		Target:           "bell.wav",
		PopulationSize:   6,
		Generations:      3,
		Seed:             1,
		Workers:          2,
		FinalBestFitness: 0.80,
		CreatedAtUTC:     "2026-02-10T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("append run-1: %v", err)
	}

	err = AppendRunIndex(baseDir, RunIndexEntry{
		RunID:            "run-2",
		Target:           "bell.wav",
		PopulationSize:   6,
		Generations:      3,
		Seed:             2,
		Workers:          2,
		FinalBestFitness: 0.82,
		CreatedAtUTC:     "2026-02-10T11:00:00Z",
	})
	if err != nil {
		t.Fatalf("append run-2: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "run-2" || entries[1].RunID != "run-1" {
		t.Fatalf("unexpected order: %+v", entries)
	}

	err = AppendRunIndex(baseDir, RunIndexEntry{
		RunID:            "run-1",
		Target:           "bell.wav",
		FinalBestFitness: 0.90,
		CreatedAtUTC:     "2026-02-10T12:00:00Z",
	})
	if err != nil {
		t.Fatalf("upsert run-1: %v", err)
	}

	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list after upsert: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after upsert, got %d", len(entries))
	}
	if entries[0].RunID != "run-1" || entries[0].FinalBestFitness != 0.90 {
		t.Fatalf("unexpected upsert result: %+v", entries[0])
	}
}

func TestRunIndexEqualTimestampPrefersLaterAppend(t *testing.T) {
	baseDir := t.TempDir()
	ts := "2026-02-10T12:00:00Z"

	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-a", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-a: %v", err)
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-b", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-b: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "run-b" {
		t.Fatalf("expected latest appended run-b first, got %+v", entries)
	}
}

func TestWriteRunConfigRunIDMismatch(t *testing.T) {
	if err := WriteRunConfig(t.TempDir(), "run-1", RunConfig{RunID: "run-2"}); err == nil {
		t.Fatal("expected run id mismatch error")
	}
	baseDir := t.TempDir()
	if err := WriteRunConfig(baseDir, "run-1", RunConfig{Generations: 4}); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, ok, err := ReadRunConfig(baseDir, "run-1")
	if err != nil || !ok || cfg.RunID != "run-1" || cfg.Generations != 4 {
		t.Fatalf("unexpected config %+v ok=%t err=%v", cfg, ok, err)
	}
}
