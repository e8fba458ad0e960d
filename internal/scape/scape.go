package scape

import (
	"context"

	"dspgp/internal/tree"
)

type Fitness float64

type Trace map[string]any

// TraceError is set when an evaluation could not score the agent.
const TraceError = "error"

// Failed reports whether the evaluation recorded an error.
func (t Trace) Failed() bool {
	_, ok := t[TraceError]
	return ok
}

// Agent is a candidate program under evaluation.
type Agent interface {
	ID() string
	Program() tree.Node
}

type Scape interface {
	Name() string
	Evaluate(ctx context.Context, agent Agent) (Fitness, Trace, error)
}

type agent struct {
	id   string
	root tree.Node
}

// NewAgent wraps a program for evaluation.
func NewAgent(id string, root tree.Node) Agent {
	return agent{id: id, root: root}
}

func (a agent) ID() string { return a.id }

func (a agent) Program() tree.Node { return a.root }
