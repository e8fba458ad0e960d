package model

import (
	"encoding/json"
	"time"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Individual is a stored candidate program. Tree holds the JSON tree
// encoding and Program its rendered instrument.
type Individual struct {
	VersionedRecord
	ID         string          `json:"id"`
	RunID      string          `json:"run_id,omitempty"`
	ParentID   string          `json:"parent_id,omitempty"`
	Operation  string          `json:"operation"`
	Generation int             `json:"generation"`
	Tree       json.RawMessage `json:"tree"`
	Program    string          `json:"program"`
	NodeCount  int             `json:"node_count"`
	Depth      int             `json:"depth"`
	Similarity float64         `json:"similarity"`
	Fitness    float64         `json:"fitness"`
	Evaluated  bool            `json:"evaluated"`
}

// Population lists the individuals alive at a generation, in rank order.
type Population struct {
	VersionedRecord
	ID            string   `json:"id"`
	IndividualIDs []string `json:"individual_ids"`
	Generation    int      `json:"generation"`
}

// RunSummary describes one finished evolutionary run.
type RunSummary struct {
	VersionedRecord
	RunID         string    `json:"run_id"`
	Target        string    `json:"target"`
	Generations   int       `json:"generations"`
	BestFitness   float64   `json:"best_fitness"`
	BestID        string    `json:"best_id"`
	CreatedAtUTC  time.Time `json:"created_at_utc"`
	DurationMilli int64     `json:"duration_ms"`
}

type GenerationDiagnostics struct {
	Generation       int     `json:"generation"`
	BestFitness      float64 `json:"best_fitness"`
	MeanFitness      float64 `json:"mean_fitness"`
	MinFitness       float64 `json:"min_fitness"`
	StdDevFitness    float64 `json:"stddev_fitness"`
	PopulationSize   int     `json:"population_size"`
	Evaluated        int     `json:"evaluated"`
	RenderFailures   int     `json:"render_failures"`
	MutationNoOps    int     `json:"mutation_noops"`
	MeanNodeCount    float64 `json:"mean_node_count"`
	ProgramDiversity int     `json:"program_diversity"`
}

type LineageRecord struct {
	VersionedRecord
	IndividualID string `json:"individual_id"`
	ParentID     string `json:"parent_id,omitempty"`
	Generation   int    `json:"generation"`
	Operation    string `json:"operation"`
	NodeCount    int    `json:"node_count"`
}
