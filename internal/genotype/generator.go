// Package genotype builds well-typed random program trees from an opcode
// catalog.
package genotype

import (
	"errors"
	"fmt"
	"math/rand"

	"dspgp/internal/catalog"
	"dspgp/internal/sampler"
	"dspgp/internal/tree"
)

var ErrDepthUnderflow = errors.New("depth budget underflow")

// RootArg is the slot a whole program fills: an unnamed audio-rate value.
var RootArg = catalog.Arg{Rate: catalog.RateAudio}

// Generator grows trees by recursive typed descent. It is safe for concurrent
// use as long as each caller supplies its own random source.
type Generator struct {
	Catalog     *catalog.Catalog
	Sampler     *sampler.Sampler
	Transitions TransitionTable
}

// NewGenerator returns a generator using the default transition table.
func NewGenerator(c *catalog.Catalog, s *sampler.Sampler) *Generator {
	return &Generator{Catalog: c, Sampler: s, Transitions: DefaultTransitions}
}

// Generate builds a whole program below the synthetic output category.
func (g *Generator) Generate(rng *rand.Rand, terminalProbability float64, maxDepth int) (tree.Node, error) {
	return g.Continue(rng, catalog.TagOutput, RootArg, terminalProbability, maxDepth)
}

// Continue builds the subtree filling arg under a parent of the given
// category. Constant-rate slots always get a sampled leaf; otherwise a
// terminal opcode is used with probability terminalProbability, and always
// once maxDepth reaches zero.
func (g *Generator) Continue(rng *rand.Rand, parent catalog.Tag, arg catalog.Arg, terminalProbability float64, maxDepth int) (tree.Node, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if maxDepth < -1 {
		return nil, fmt.Errorf("%w: max depth %d filling %s", ErrDepthUnderflow, maxDepth, arg)
	}
	switch arg.Rate {
	case catalog.RateConstant:
		value, err := g.Sampler.Sample(rng, arg.Spec)
		if err != nil {
			return nil, err
		}
		return &tree.Const{Value: value, Spec: arg.Spec}, nil
	case catalog.RatePolymorphic:
		return nil, fmt.Errorf("%w: unexpanded argument %s", tree.ErrIllTyped, arg)
	}

	partition := catalog.Internal
	if rng.Float64() < terminalProbability || maxDepth <= 0 {
		partition = catalog.Terminal
	}
	op, err := g.Catalog.Pick(rng, partition, arg.Rate, g.Transitions.Row(parent))
	if err != nil {
		return nil, err
	}

	call := &tree.Call{Op: op, Args: make([]tree.Node, 0, len(op.Args))}
	for _, child := range op.Args {
		node, err := g.Continue(rng, op.Tag, child, terminalProbability, maxDepth-1)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, node)
	}
	return call, nil
}
