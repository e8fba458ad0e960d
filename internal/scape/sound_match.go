package scape

import (
	"context"
	"errors"
	"fmt"

	"dspgp/internal/analysis"
	"dspgp/internal/catalog"
	"dspgp/internal/codegen"
	"dspgp/internal/render"
)

// SoundMatch scores a program by rendering it and comparing its spectrogram
// with a target recording. Programs that fail to render or produce unusable
// audio score zero; only cancellation is returned as an error.
type SoundMatch struct {
	Renderer   render.Renderer
	Reference  analysis.Spectrogram
	Duration   float64
	Wavetables []catalog.Wavetable
	WorkDir    string
	// KeepFiles leaves the rendered orchestra, score and sound in WorkDir.
	KeepFiles bool
}

// NewSoundMatch analyses the target recording at targetPath. Programs are
// rendered for as long as the target's analysed duration.
func NewSoundMatch(r render.Renderer, targetPath, workDir string, wavetables []catalog.Wavetable) (*SoundMatch, error) {
	if r == nil {
		return nil, errors.New("renderer is required")
	}
	sig, err := analysis.ReadWAV(targetPath)
	if err != nil {
		return nil, fmt.Errorf("read target: %w", err)
	}
	ref, err := analysis.Compute(sig)
	if err != nil {
		return nil, fmt.Errorf("analyse target %s: %w", targetPath, err)
	}
	return &SoundMatch{
		Renderer:   r,
		Reference:  ref,
		Duration:   ref.Duration(),
		Wavetables: wavetables,
		WorkDir:    workDir,
	}, nil
}

func (*SoundMatch) Name() string {
	return "sound-match"
}

func (s *SoundMatch) Evaluate(ctx context.Context, a Agent) (Fitness, Trace, error) {
	prog := codegen.Assemble(a.Program(), s.Wavetables, s.Duration)
	wav, err := s.Renderer.Render(ctx, prog, s.WorkDir, a.ID())
	if !s.KeepFiles {
		defer render.FilesFor(s.WorkDir, a.ID()).Remove()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, nil, ctxErr
	}
	if err != nil {
		return 0, Trace{TraceError: err.Error(), "stage": "render"}, nil
	}

	sig, err := analysis.ReadWAV(wav)
	if err != nil {
		return 0, Trace{TraceError: err.Error(), "stage": "decode"}, nil
	}
	spec, err := analysis.Compute(sig)
	if err != nil {
		return 0, Trace{TraceError: err.Error(), "stage": "analyse"}, nil
	}
	similarity, err := analysis.Similarity(spec, s.Reference)
	if err != nil {
		return 0, Trace{TraceError: err.Error(), "stage": "compare"}, nil
	}
	return Fitness(similarity), Trace{
		"similarity": similarity,
		"frames":     len(spec.Frames),
		"duration":   sig.Duration(),
	}, nil
}
