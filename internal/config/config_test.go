package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	exp := Default()
	if exp.Generations != 10 || exp.PopulationSize != 6 || exp.Selected != 6 || exp.MaxDepth != 5 {
		t.Fatalf("unexpected sizes: %+v", exp)
	}
	if exp.TerminalProbability != 0.5 || exp.BlendFactor != 0.2 || exp.ComplexityFactor != 0 {
		t.Fatalf("unexpected rates: %+v", exp)
	}
	if exp.Selection != "truncation" || exp.Store != "memory" || exp.Csound != "csound" || exp.Workers != 4 {
		t.Fatalf("unexpected strings: %+v", exp)
	}
	timeout, err := exp.Timeout()
	if err != nil || timeout != 5*time.Second {
		t.Fatalf("unexpected timeout %v err=%v", timeout, err)
	}
}

func TestLoadFilesUnify(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.cue")
	local := filepath.Join(dir, "local.json")
	writeFile(t, base, `
target: "bell.wav"
generations: 25
selection: "tournament"
transitions: [
	[1, 1, 1, 1, 1, 1, 1], [1, 1, 1, 1, 1, 1, 1],
	[1, 1, 1, 1, 1, 1, 1], [1, 1, 1, 1, 1, 1, 1],
	[1, 1, 1, 1, 1, 1, 1], [1, 1, 1, 1, 1, 1, 1],
	[1, 1, 1, 1, 1, 1, 1], [0, 0, 1, 0, 0, 0, 2.5],
]
`)
	writeFile(t, local, `{"seed": 42, "workers": 8, "render_timeout": "750ms"}`)

	exp, err := Load(base, local)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exp.Target != "bell.wav" || exp.Generations != 25 || exp.Selection != "tournament" {
		t.Fatalf("unexpected base values: %+v", exp)
	}
	if exp.Seed != 42 || exp.Workers != 8 || exp.PopulationSize != 6 {
		t.Fatalf("unexpected merged values: %+v", exp)
	}
	if len(exp.Transitions) != 8 || len(exp.Transitions[7]) != 7 {
		t.Fatalf("unexpected transitions: %v", exp.Transitions)
	}
	if timeout, _ := exp.Timeout(); timeout != 750*time.Millisecond {
		t.Fatalf("unexpected timeout: %v", timeout)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown field":     `colour: "red"`,
		"depth":             `max_depth: 0`,
		"probability":       `terminal_probability: 1.5`,
		"selection":         `selection: "roulette"`,
		"negative weight":   `transitions: [[1, -1]]`,
		"syntax":            `generations: `,
		"timeout":           `render_timeout: "soon"`,
		"non-positive time": `render_timeout: "0s"`,
	}
	for name, src := range cases {
		if _, err := Parse(name+".cue", []byte(src)); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestLoadConflictingFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.cue")
	b := filepath.Join(dir, "b.cue")
	writeFile(t, a, `generations: 3`)
	writeFile(t, b, `generations: 4`)
	if _, err := Load(a, b); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.cue")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
