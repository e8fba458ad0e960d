// Package config loads experiment settings written in CUE. Plain JSON is
// accepted as well since it is valid CUE.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

var ErrInvalidConfig = errors.New("invalid experiment config")

type Experiment struct {
	Target              string      `json:"target,omitempty"`
	Opcodes             string      `json:"opcodes,omitempty"`
	Transitions         [][]float64 `json:"transitions,omitempty"`
	Generations         int         `json:"generations"`
	PopulationSize      int         `json:"population_size"`
	Selected            int         `json:"selected"`
	MaxDepth            int         `json:"max_depth"`
	TerminalProbability float64     `json:"terminal_probability"`
	BlendFactor         float64     `json:"blend_factor"`
	ComplexityFactor    float64     `json:"complexity_factor"`
	Selection           string      `json:"selection"`
	Workers             int         `json:"workers"`
	Seed                int64       `json:"seed"`
	RenderTimeout       string      `json:"render_timeout"`
	Csound              string      `json:"csound"`
	KeepRenders         bool        `json:"keep_renders"`
	WorkDir             string      `json:"work_dir"`
	Store               string      `json:"store"`
	DBPath              string      `json:"db_path"`
	OutDir              string      `json:"out_dir"`
}

// Default returns the schema defaults.
func Default() Experiment {
	exp, err := Load()
	if err != nil {
		panic(err)
	}
	return exp
}

// Load unifies the schema with every file in order. Files must agree on any
// field they both set.
func Load(paths ...string) (Experiment, error) {
	sources := make([]source, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return Experiment{}, err
		}
		sources = append(sources, source{name: path, content: content})
	}
	return load(sources)
}

// Parse loads a single in-memory document.
func Parse(name string, content []byte) (Experiment, error) {
	return load([]source{{name: name, content: content}})
}

type source struct {
	name    string
	content []byte
}

func load(sources []source) (Experiment, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString("close({"+schemaSource+"})", cue.Filename("schema.cue"))
	if err := value.Err(); err != nil {
		return Experiment{}, err
	}

	for _, src := range sources {
		file := ctx.CompileBytes(src.content, cue.Filename(src.name))
		if err := file.Err(); err != nil {
			return Experiment{}, fmt.Errorf("%w: %s", ErrInvalidConfig, cueerrors.Details(err, nil))
		}
		value = value.Unify(file)
	}

	if err := value.Validate(cue.Concrete(true)); err != nil {
		return Experiment{}, fmt.Errorf("%w: %s", ErrInvalidConfig, cueerrors.Details(err, nil))
	}

	var exp Experiment
	if err := value.Decode(&exp); err != nil {
		return Experiment{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := exp.Timeout(); err != nil {
		return Experiment{}, err
	}
	return exp, nil
}

// Timeout parses RenderTimeout.
func (e Experiment) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(e.RenderTimeout)
	if err != nil {
		return 0, fmt.Errorf("%w: render_timeout: %v", ErrInvalidConfig, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: render_timeout must be positive", ErrInvalidConfig)
	}
	return d, nil
}
