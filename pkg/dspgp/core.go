// Package dspgp synthesises Csound instruments by grammar-constrained genetic
// programming. Catalogs, program generation and the two mutation operators
// are usable on their own; Client drives whole evolutionary runs.
package dspgp

import (
	"io"
	"iter"
	"math/rand"

	"dspgp/internal/catalog"
	"dspgp/internal/codegen"
	"dspgp/internal/evo"
	"dspgp/internal/genotype"
	"dspgp/internal/sampler"
	"dspgp/internal/tree"
	"dspgp/internal/viz"
)

type (
	Node      = tree.Node
	Program   = codegen.Program
	Wavetable = catalog.Wavetable
)

// Catalog is an immutable opcode catalog bound to the default wavetable
// registry and a category transition table.
type Catalog struct {
	gen        *genotype.Generator
	wavetables []catalog.Wavetable
}

// BuildCatalog parses an opcode table (see catalog.ParseTable for the
// format). A nil reader selects the built-in table.
func BuildCatalog(table io.Reader) (*Catalog, error) {
	var (
		c   *catalog.Catalog
		err error
	)
	if table == nil {
		c, err = catalog.Default()
	} else {
		c, err = catalog.LoadTable(table)
	}
	if err != nil {
		return nil, err
	}
	wavetables := catalog.DefaultWavetables
	return &Catalog{
		gen:        genotype.NewGenerator(c, sampler.New(catalog.WavetableNames(wavetables))),
		wavetables: wavetables,
	}, nil
}

// WithTransitions returns a copy of c using the given category transition
// matrix, one row per parent category and one column per child category.
func (c *Catalog) WithTransitions(rows [][]float64) (*Catalog, error) {
	table, err := genotype.ParseTransitions(rows)
	if err != nil {
		return nil, err
	}
	gen := *c.gen
	gen.Transitions = table
	return &Catalog{gen: &gen, wavetables: c.wavetables}, nil
}

// Len is the number of concrete descriptors.
func (c *Catalog) Len() int {
	return c.gen.Catalog.Len()
}

// Descriptors lists every concrete descriptor, terminal ones first.
func (c *Catalog) Descriptors() []catalog.Descriptor {
	out := c.gen.Catalog.All(catalog.Terminal)
	return append(out, c.gen.Catalog.All(catalog.Internal)...)
}

// Transitions returns the category transition matrix in use.
func (c *Catalog) Transitions() [][]float64 {
	return c.gen.Transitions.Rows()
}

// Tree is an immutable handle on a generated program.
type Tree struct {
	root tree.Node
}

// Generate builds a random audio-rate program no deeper than maxDepth+1.
func Generate(rng *rand.Rand, c *Catalog, terminalProbability float64, maxDepth int) (Tree, error) {
	root, err := c.gen.Generate(rng, terminalProbability, maxDepth)
	if err != nil {
		return Tree{}, err
	}
	return Tree{root: root}, nil
}

// MutateConstants resamples every constant of t and blends it with its old
// value; blend 0 keeps t's values and 1 replaces them.
func MutateConstants(rng *rand.Rand, c *Catalog, t Tree, blend float64) (Tree, error) {
	root, err := evo.MutateConstants(rng, c.gen.Sampler, t.root, blend)
	if err != nil {
		return Tree{}, err
	}
	return Tree{root: root}, nil
}

// MutateSubtree regenerates one argument subtree of t. The boolean reports
// whether a subtree was replaced; when false the returned tree equals t.
func MutateSubtree(rng *rand.Rand, c *Catalog, t Tree, terminalProbability float64, maxDepth int) (Tree, bool, error) {
	root, ok, err := evo.MutateSubtree(rng, c.gen, t.root, terminalProbability, maxDepth)
	if err != nil {
		return Tree{}, false, err
	}
	return Tree{root: root}, ok, nil
}

// ParseTree decodes a tree written by Tree.MarshalJSON and checks that it
// is a well-typed audio-rate program.
func ParseTree(data []byte) (Tree, error) {
	root, err := tree.Unmarshal(data)
	if err != nil {
		return Tree{}, err
	}
	if err := tree.Validate(root, catalog.RateAudio); err != nil {
		return Tree{}, err
	}
	return Tree{root: root}, nil
}

func (t Tree) Root() Node {
	return t.root
}

// Serialize renders the program as a Csound instrument block.
func (t Tree) Serialize() string {
	return codegen.Serialize(t.root)
}

// Assemble renders a complete orchestra and a score playing it for duration
// seconds.
func (t Tree) Assemble(c *Catalog, duration float64) Program {
	return codegen.Assemble(t.root, c.wavetables, duration)
}

func (t Tree) NodeCount() int {
	return tree.NodeCount(t.root)
}

// Depth counts edges on the longest root to leaf path.
func (t Tree) Depth() int {
	return tree.Depth(t.root)
}

// DepthFirst yields every node, parents before their children.
func (t Tree) DepthFirst() iter.Seq[Node] {
	return tree.DepthFirst(t.root)
}

func (t Tree) Equal(other Tree) bool {
	return tree.Equal(t.root, other.root)
}

// DOT renders the tree as a Graphviz digraph.
func (t Tree) DOT() string {
	return viz.DOT(t.root)
}

func (t Tree) MarshalJSON() ([]byte, error) {
	return tree.Marshal(t.root)
}
