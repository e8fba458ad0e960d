package evo

import (
	"io"

	"github.com/google/uuid"

	"dspgp/internal/codegen"
	"dspgp/internal/model"
	"dspgp/internal/scape"
	"dspgp/internal/storage"
	"dspgp/internal/tree"
)

// Operation names recorded in lineage.
const (
	OperationSeed      = "seed"
	OperationConstants = "mutate_constants"
	OperationSubtree   = "mutate_subtree"
	OperationRandom    = "random"
)

// Individual is one candidate program with its cached evaluation. It is not
// modified after evaluation; descendants are new individuals.
type Individual struct {
	ID         string
	ParentID   string
	Operation  string
	Generation int
	Tree       tree.Node
	NodeCount  int
	Similarity float64
	Fitness    float64
	Evaluated  bool
	Trace      scape.Trace
}

// NewIndividual wraps a program. IDs are drawn from ids so seeded runs are
// reproducible; a nil reader uses crypto randomness.
func NewIndividual(ids io.Reader, root tree.Node, parentID, operation string, generation int) (Individual, error) {
	id, err := newID(ids)
	if err != nil {
		return Individual{}, err
	}
	return Individual{
		ID:         id,
		ParentID:   parentID,
		Operation:  operation,
		Generation: generation,
		Tree:       root,
		NodeCount:  tree.NodeCount(root),
	}, nil
}

func newID(ids io.Reader) (string, error) {
	if ids == nil {
		return uuid.NewString(), nil
	}
	id, err := uuid.NewRandomFromReader(ids)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Agent exposes the individual to a scape.
func (i Individual) Agent() scape.Agent {
	return scape.NewAgent(i.ID, i.Tree)
}

// Record converts the individual into its persistent form.
func (i Individual) Record(runID string) (model.Individual, error) {
	encoded, err := tree.Marshal(i.Tree)
	if err != nil {
		return model.Individual{}, err
	}
	return model.Individual{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		ID:         i.ID,
		RunID:      runID,
		ParentID:   i.ParentID,
		Operation:  i.Operation,
		Generation: i.Generation,
		Tree:       encoded,
		Program:    codegen.Serialize(i.Tree),
		NodeCount:  i.NodeCount,
		Depth:      tree.Depth(i.Tree),
		Similarity: i.Similarity,
		Fitness:    i.Fitness,
		Evaluated:  i.Evaluated,
	}, nil
}

// IndividualFromRecord restores an individual saved with Record.
func IndividualFromRecord(rec model.Individual) (Individual, error) {
	root, err := tree.Unmarshal(rec.Tree)
	if err != nil {
		return Individual{}, err
	}
	return Individual{
		ID:         rec.ID,
		ParentID:   rec.ParentID,
		Operation:  rec.Operation,
		Generation: rec.Generation,
		Tree:       root,
		NodeCount:  rec.NodeCount,
		Similarity: rec.Similarity,
		Fitness:    rec.Fitness,
		Evaluated:  rec.Evaluated,
	}, nil
}
