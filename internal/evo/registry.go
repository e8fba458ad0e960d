package evo

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"dspgp/internal/genotype"
	"dspgp/internal/sampler"
	"dspgp/internal/tree"
)

var (
	ErrOperatorExists       = errors.New("operator already registered")
	ErrOperatorNotFound     = errors.New("operator not found")
	ErrOperatorIncompatible = errors.New("operator incompatible with program")
)

// OperatorParams carries the run settings an operator is built from.
type OperatorParams struct {
	Rand                *rand.Rand
	Generator           *genotype.Generator
	Sampler             *sampler.Sampler
	BlendFactor         float64
	TerminalProbability float64
	MaxDepth            int
}

type OperatorFactory func(params OperatorParams) (Operator, error)

type CompatibilityFn func(root tree.Node) error

type OperatorSpec struct {
	Name       string
	Factory    OperatorFactory
	Compatible CompatibilityFn
}

type registeredOperator struct {
	factory    OperatorFactory
	compatible CompatibilityFn
}

var operatorRegistry = struct {
	mu sync.RWMutex
	m  map[string]registeredOperator
}{
	m: make(map[string]registeredOperator),
}

func init() {
	registerBuiltinOperators()
}

func registerBuiltinOperators() {
	builtins := []OperatorSpec{
		{
			Name: "mutate_constants",
			Factory: func(p OperatorParams) (Operator, error) {
				if p.Sampler == nil {
					return nil, errors.New("sampler is required")
				}
				return &ConstantMutation{Rand: p.Rand, Sampler: p.Sampler, Blend: p.BlendFactor}, nil
			},
			Compatible: func(root tree.Node) error {
				if !hasConstant(root) {
					return errors.New("program has no constant leaf")
				}
				return nil
			},
		},
		{
			Name: "mutate_subtree",
			Factory: func(p OperatorParams) (Operator, error) {
				if p.Generator == nil {
					return nil, errors.New("generator is required")
				}
				return &SubtreeMutation{
					Rand:                p.Rand,
					Generator:           p.Generator,
					TerminalProbability: p.TerminalProbability,
					MaxDepth:            p.MaxDepth,
				}, nil
			},
			Compatible: func(root tree.Node) error {
				if !hasArguments(root) {
					return errors.New("program root takes no arguments")
				}
				return nil
			},
		},
	}
	for _, spec := range builtins {
		if err := RegisterOperator(spec); err != nil {
			panic(err)
		}
	}
}

// RegisterOperator adds a named operator factory.
func RegisterOperator(spec OperatorSpec) error {
	if spec.Name == "" {
		return errors.New("operator name is required")
	}
	if spec.Factory == nil {
		return errors.New("operator factory is required")
	}

	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()

	if _, exists := operatorRegistry.m[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrOperatorExists, spec.Name)
	}
	operatorRegistry.m[spec.Name] = registeredOperator{
		factory:    spec.Factory,
		compatible: spec.Compatible,
	}
	return nil
}

// ResolveOperator builds a registered operator after checking it can apply
// to root.
func ResolveOperator(name string, params OperatorParams, root tree.Node) (Operator, error) {
	operatorRegistry.mu.RLock()
	entry, ok := operatorRegistry.m[name]
	operatorRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, name)
	}
	if entry.compatible != nil {
		if err := entry.compatible(root); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrOperatorIncompatible, name, err)
		}
	}
	return entry.factory(params)
}

func ListOperators() []string {
	operatorRegistry.mu.RLock()
	defer operatorRegistry.mu.RUnlock()

	names := make([]string, 0, len(operatorRegistry.m))
	for name := range operatorRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetOperatorRegistryForTests() {
	operatorRegistry.mu.Lock()
	operatorRegistry.m = make(map[string]registeredOperator)
	operatorRegistry.mu.Unlock()
	registerBuiltinOperators()
}
