package stats

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"dspgp/internal/model"
)

const runIndexFile = "run_index.json"

// Artifact file names inside a run directory.
const (
	ConfigFile         = "config.json"
	FitnessHistoryFile = "fitness_history.json"
	FitnessCSVFile     = "fitness_over_time.csv"
	DiagnosticsFile    = "diagnostics.json"
	LineageFile        = "lineage.json"
	BestOrchestraFile  = "best.orc"
	BestScoreFile      = "best.sco"
	BestTreeFile       = "best_tree.json"
	BestGraphFile      = "graph.dot"
)

type RunConfig struct {
	RunID               string      `json:"run_id"`
	Target              string      `json:"target"`
	Opcodes             string      `json:"opcodes,omitempty"`
	Transitions         [][]float64 `json:"transitions,omitempty"`
	PopulationSize      int         `json:"population_size"`
	Selected            int         `json:"selected"`
	Generations         int         `json:"generations"`
	MaxDepth            int         `json:"max_depth"`
	TerminalProbability float64     `json:"terminal_probability"`
	BlendFactor         float64     `json:"blend_factor"`
	ComplexityFactor    float64     `json:"complexity_factor"`
	Selection           string      `json:"selection"`
	Workers             int         `json:"workers"`
	Seed                int64       `json:"seed"`
	RenderTimeout       string      `json:"render_timeout"`
	Csound              string      `json:"csound"`
}

// FitnessHistory is the per-generation fitness record of a run.
type FitnessHistory struct {
	BestByGeneration    []float64   `json:"best_by_generation"`
	FitnessByGeneration [][]float64 `json:"fitness_by_generation"`
	FinalBestFitness    float64     `json:"final_best_fitness"`
}

// BestProgram is the fittest individual of a run in its rendered forms.
type BestProgram struct {
	ID        string
	Fitness   float64
	Orchestra string
	Score     string
	Tree      json.RawMessage
	Graph     string
}

type RunArtifacts struct {
	Config                RunConfig
	History               FitnessHistory
	GenerationDiagnostics []model.GenerationDiagnostics
	Lineage               []model.LineageRecord
	Best                  *BestProgram
}

type RunIndexEntry struct {
	RunID            string  `json:"run_id"`
	Target           string  `json:"target"`
	PopulationSize   int     `json:"population_size"`
	Generations      int     `json:"generations"`
	Seed             int64   `json:"seed"`
	Workers          int     `json:"workers"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	BestID           string  `json:"best_id,omitempty"`
	CreatedAtUTC     string  `json:"created_at_utc"`
}

// WriteRunArtifacts writes every artifact of a run under baseDir/<run id>
// and returns that directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, ConfigFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, FitnessHistoryFile), artifacts.History); err != nil {
		return "", err
	}
	if err := WriteFitnessOverTime(filepath.Join(runDir, FitnessCSVFile), artifacts.History.FitnessByGeneration); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, DiagnosticsFile), artifacts.GenerationDiagnostics); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, LineageFile), artifacts.Lineage); err != nil {
		return "", err
	}

	if best := artifacts.Best; best != nil {
		files := map[string][]byte{
			BestOrchestraFile: []byte(best.Orchestra),
			BestScoreFile:     []byte(best.Score),
			BestTreeFile:      append(append([]byte(nil), best.Tree...), '\n'),
			BestGraphFile:     []byte(best.Graph),
		}
		for name, data := range files {
			if err := os.WriteFile(filepath.Join(runDir, name), data, 0o644); err != nil {
				return "", err
			}
		}
	}

	return runDir, nil
}

// WriteFitnessOverTime writes one row per generation and one column per
// survivor rank.
func WriteFitnessOverTime(path string, fitnessByGeneration [][]float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	ranks := 0
	for _, row := range fitnessByGeneration {
		ranks = max(ranks, len(row))
	}
	header := make([]string, 0, ranks+1)
	header = append(header, "generation")
	for r := 1; r <= ranks; r++ {
		header = append(header, "rank_"+strconv.Itoa(r))
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return err
	}
	for i, row := range fitnessByGeneration {
		record := make([]string, ranks+1)
		record[0] = strconv.Itoa(i + 1)
		for r, value := range row {
			record[r+1] = strconv.FormatFloat(value, 'f', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadFitnessOverTime reads a file written by WriteFitnessOverTime. Empty
// cells end a row early.
func ReadFitnessOverTime(path string) ([][]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return [][]float64{}, nil
		}
		return nil, err
	}
	if len(header) < 1 || header[0] != "generation" {
		return nil, fmt.Errorf("fitness csv header must start with generation")
	}

	out := make([][]float64, 0, 32)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]float64, 0, len(record)-1)
		for _, cell := range record[1:] {
			if cell == "" {
				break
			}
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, err
			}
			row = append(row, value)
		}
		out = append(out, row)
	}
	return out, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns indexed runs, newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// later appends win ties
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies the artifact files of a run into outDir/<run id>.
// Files a run did not produce are skipped.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	required := []string{ConfigFile, FitnessHistoryFile, LineageFile}
	optional := []string{FitnessCSVFile, DiagnosticsFile, BestOrchestraFile, BestScoreFile, BestTreeFile, BestGraphFile}
	for _, file := range required {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	for _, file := range optional {
		err := copyFile(filepath.Join(src, file), filepath.Join(dst, file))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, ConfigFile), &cfg)
	return cfg, ok, err
}

func WriteRunConfig(baseDir, runID string, cfg RunConfig) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run id is required")
	}
	if strings.TrimSpace(cfg.RunID) == "" {
		cfg.RunID = strings.TrimSpace(runID)
	}
	if cfg.RunID != strings.TrimSpace(runID) {
		return fmt.Errorf("run config run id mismatch: got=%s want=%s", cfg.RunID, strings.TrimSpace(runID))
	}
	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(runDir, ConfigFile), cfg)
}

func ReadFitnessHistory(baseDir, runID string) (FitnessHistory, bool, error) {
	var history FitnessHistory
	ok, err := readJSON(filepath.Join(baseDir, runID, FitnessHistoryFile), &history)
	return history, ok, err
}

func ReadLineage(baseDir, runID string) ([]model.LineageRecord, bool, error) {
	var lineage []model.LineageRecord
	ok, err := readJSON(filepath.Join(baseDir, runID, LineageFile), &lineage)
	return lineage, ok, err
}

func ReadGenerationDiagnostics(baseDir, runID string) ([]model.GenerationDiagnostics, bool, error) {
	var diagnostics []model.GenerationDiagnostics
	ok, err := readJSON(filepath.Join(baseDir, runID, DiagnosticsFile), &diagnostics)
	return diagnostics, ok, err
}

func readJSON(path string, target any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
