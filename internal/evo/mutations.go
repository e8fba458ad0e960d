package evo

import (
	"errors"
	"fmt"
	"math/rand"

	"dspgp/internal/genotype"
	"dspgp/internal/sampler"
	"dspgp/internal/tree"
)

var (
	ErrNoMutationChoice = errors.New("no mutation choice available")
	ErrDepthBudget      = errors.New("mutation depth exceeds budget")
)

const (
	// draws spent looking for an opcode child before falling back to the first child
	descentAttempts = 3
	// scales the random descent target against the depth budget
	descentScale = 0.5
)

// MutateConstants returns a deep copy of root where every constant leaf is
// resampled from its own spec and blended with its old value: 0 keeps the
// old value and 1 takes the fresh sample.
//
// Integers from sets and wavetable names are never interpolated. Unlike
// continuous leaves they are not replaced on every call: each takes the fresh
// sample with probability blend, so blend 0 leaves the whole tree unchanged
// and the default blend of 0.2 swaps roughly one discrete leaf in five.
func MutateConstants(rng *rand.Rand, s *sampler.Sampler, root tree.Node, blend float64) (tree.Node, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if s == nil {
		return nil, errors.New("sampler is required")
	}
	if root == nil {
		return nil, errors.New("program is required")
	}
	child := root.Clone()
	for n := range tree.DepthFirst(child) {
		leaf, ok := n.(*tree.Const)
		if !ok {
			continue
		}
		value, err := blendConstant(rng, s, leaf, blend)
		if err != nil {
			return nil, err
		}
		leaf.Value = value
	}
	return child, nil
}

func blendConstant(rng *rand.Rand, s *sampler.Sampler, leaf *tree.Const, blend float64) (sampler.Value, error) {
	sample, err := s.Sample(rng, leaf.Spec)
	if err != nil {
		return sampler.Value{}, err
	}
	if sample.Continuous() && leaf.Value.Continuous() {
		return sampler.Real(sampler.Lerp(leaf.Value.Num, sample.Num, blend)), nil
	}
	if rng.Float64() < blend {
		return sample, nil
	}
	return leaf.Value, nil
}

// MutateSubtree returns a deep copy of root with one argument subtree
// regenerated. It descends from the root toward a random target depth in
// [0, maxDepth/2), preferring opcode children, then regenerates one argument
// of the node it lands on with the remaining depth budget, which may be zero.
// Descending past maxDepth is ErrDepthBudget. The boolean is
// false, and the copy unchanged, when the landing node is a constant or takes
// no arguments.
func MutateSubtree(rng *rand.Rand, g *genotype.Generator, root tree.Node, terminalProbability float64, maxDepth int) (tree.Node, bool, error) {
	if rng == nil {
		return nil, false, errors.New("random source is required")
	}
	if g == nil {
		return nil, false, errors.New("generator is required")
	}
	if root == nil {
		return nil, false, errors.New("program is required")
	}
	child := root.Clone()

	node := child
	depth := 0
	target := float64(maxDepth) * rng.Float64() * descentScale
	for len(node.Children()) > 0 && float64(depth) <= target {
		node = pickDescent(rng, node.Children())
		depth++
	}
	if depth > maxDepth {
		return nil, false, fmt.Errorf("%w: descended to depth %d with max depth %d", ErrDepthBudget, depth, maxDepth)
	}

	call, ok := node.(*tree.Call)
	if !ok || len(call.Op.Args) == 0 {
		return child, false, nil
	}
	idx := rng.Intn(len(call.Op.Args))
	replacement, err := g.Continue(rng, call.Op.Tag, call.Op.Args[idx], terminalProbability, maxDepth-depth)
	if err != nil {
		return nil, false, err
	}
	call.Args[idx] = replacement
	return child, true, nil
}

func pickDescent(rng *rand.Rand, children []tree.Node) tree.Node {
	for i := 0; i < descentAttempts; i++ {
		candidate := children[rng.Intn(len(children))]
		if _, ok := candidate.(*tree.Call); ok {
			return candidate
		}
	}
	return children[0]
}
