package main

import (
	"flag"
	"strings"

	"dspgp/pkg/dspgp"
)

type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// experimentFlags holds the run flags that may override config files.
type experimentFlags struct {
	target              *string
	opcodes             *string
	generations         *int
	population          *int
	selected            *int
	maxDepth            *int
	terminalProbability *float64
	blendFactor         *float64
	complexityFactor    *float64
	selection           *string
	workers             *int
	seed                *int64
	renderTimeout       *string
	csound              *string
	keepRenders         *bool
	workDir             *string
	store               *string
	dbPath              *string
	outDir              *string
}

func registerExperimentFlags(fs *flag.FlagSet, d dspgp.Experiment) experimentFlags {
	return experimentFlags{
		target:              fs.String("target", d.Target, "target recording (WAV)"),
		opcodes:             fs.String("opcodes", d.Opcodes, "opcode table path (built-in table when empty)"),
		generations:         fs.Int("gens", d.Generations, "generation count"),
		population:          fs.Int("pop", d.PopulationSize, "initial population size"),
		selected:            fs.Int("selected", d.Selected, "survivors kept per generation"),
		maxDepth:            fs.Int("max-depth", d.MaxDepth, "depth budget"),
		terminalProbability: fs.Float64("terminal-probability", d.TerminalProbability, "probability of choosing a terminal opcode"),
		blendFactor:         fs.Float64("blend", d.BlendFactor, "constant mutation blend factor"),
		complexityFactor:    fs.Float64("complexity", d.ComplexityFactor, "program size penalty factor (0 disables)"),
		selection:           fs.String("selection", d.Selection, "survivor selection: truncation|tournament"),
		workers:             fs.Int("workers", d.Workers, "concurrent renders"),
		seed:                fs.Int64("seed", d.Seed, "rng seed"),
		renderTimeout:       fs.String("render-timeout", d.RenderTimeout, "per render timeout"),
		csound:              fs.String("csound", d.Csound, "csound binary"),
		keepRenders:         fs.Bool("keep-renders", d.KeepRenders, "keep rendered orchestra, score and sound files"),
		workDir:             fs.String("work-dir", d.WorkDir, "render directory (temporary when empty)"),
		store:               fs.String("store", d.Store, "store backend: memory|sqlite"),
		dbPath:              fs.String("db-path", d.DBPath, "sqlite database path"),
		outDir:              fs.String("out", d.OutDir, "run artifacts directory"),
	}
}

// overrideFromFlags copies every explicitly set flag into exp.
func overrideFromFlags(exp *dspgp.Experiment, set map[string]bool, f experimentFlags) {
	if set["target"] {
		exp.Target = *f.target
	}
	if set["opcodes"] {
		exp.Opcodes = *f.opcodes
	}
	if set["gens"] {
		exp.Generations = *f.generations
	}
	if set["pop"] {
		exp.PopulationSize = *f.population
	}
	if set["selected"] {
		exp.Selected = *f.selected
	}
	if set["max-depth"] {
		exp.MaxDepth = *f.maxDepth
	}
	if set["terminal-probability"] {
		exp.TerminalProbability = *f.terminalProbability
	}
	if set["blend"] {
		exp.BlendFactor = *f.blendFactor
	}
	if set["complexity"] {
		exp.ComplexityFactor = *f.complexityFactor
	}
	if set["selection"] {
		exp.Selection = *f.selection
	}
	if set["workers"] {
		exp.Workers = *f.workers
	}
	if set["seed"] {
		exp.Seed = *f.seed
	}
	if set["render-timeout"] {
		exp.RenderTimeout = *f.renderTimeout
	}
	if set["csound"] {
		exp.Csound = *f.csound
	}
	if set["keep-renders"] {
		exp.KeepRenders = *f.keepRenders
	}
	if set["work-dir"] {
		exp.WorkDir = *f.workDir
	}
	if set["store"] {
		exp.Store = *f.store
	}
	if set["db-path"] {
		exp.DBPath = *f.dbPath
	}
	if set["out"] {
		exp.OutDir = *f.outDir
	}
}
