package evo

import (
	"context"
	"math/rand"

	"dspgp/internal/genotype"
	"dspgp/internal/sampler"
	"dspgp/internal/tree"
)

type Operator interface {
	Name() string
	Apply(ctx context.Context, root tree.Node) (tree.Node, error)
}

// ConstantMutation resamples every constant leaf of a program.
type ConstantMutation struct {
	Rand    *rand.Rand
	Sampler *sampler.Sampler
	Blend   float64
}

func (o *ConstantMutation) Name() string {
	return "mutate_constants"
}

func (o *ConstantMutation) Apply(ctx context.Context, root tree.Node) (tree.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !hasConstant(root) {
		return nil, ErrNoMutationChoice
	}
	return MutateConstants(o.Rand, o.Sampler, root, o.Blend)
}

// SubtreeMutation regenerates one argument subtree of a program.
type SubtreeMutation struct {
	Rand                *rand.Rand
	Generator           *genotype.Generator
	TerminalProbability float64
	MaxDepth            int
}

func (o *SubtreeMutation) Name() string {
	return "mutate_subtree"
}

func (o *SubtreeMutation) Apply(ctx context.Context, root tree.Node) (tree.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mutated, ok, err := MutateSubtree(o.Rand, o.Generator, root, o.TerminalProbability, o.MaxDepth)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoMutationChoice
	}
	return mutated, nil
}

func hasConstant(root tree.Node) bool {
	for n := range tree.DepthFirst(root) {
		if _, ok := n.(*tree.Const); ok {
			return true
		}
	}
	return false
}

func hasArguments(root tree.Node) bool {
	call, ok := root.(*tree.Call)
	return ok && len(call.Args) > 0
}
