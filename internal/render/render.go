// Package render turns assembled Csound programs into sound files.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"dspgp/internal/codegen"
)

var (
	ErrRenderTimeout = errors.New("render timed out")
	ErrNoOutput      = errors.New("render produced no output")
)

const (
	DefaultBinary  = "csound"
	DefaultTimeout = 5 * time.Second

	// bytes of renderer output kept in error messages
	outputTail = 512
)

// Renderer writes prog under dir and renders it to a WAV file named after
// name, returning the file path.
type Renderer interface {
	Render(ctx context.Context, prog codegen.Program, dir, name string) (string, error)
}

// Files are the paths a render reads and writes.
type Files struct {
	Orchestra string
	Score     string
	WAV       string
}

// FilesFor returns the render paths for name under dir.
func FilesFor(dir, name string) Files {
	base := filepath.Join(dir, name)
	return Files{Orchestra: base + ".orc", Score: base + ".sco", WAV: base + ".wav"}
}

// Remove deletes every file of a render, ignoring missing ones.
func (f Files) Remove() error {
	var errs []error
	for _, path := range []string{f.Orchestra, f.Score, f.WAV} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Csound renders with the csound command line. A render still running after
// Timeout is killed.
type Csound struct {
	Binary  string
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewCsound(binary string, timeout time.Duration, logger *slog.Logger) *Csound {
	if binary == "" {
		binary = DefaultBinary
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Csound{Binary: binary, Timeout: timeout, Logger: logger}
}

func (c *Csound) Render(ctx context.Context, prog codegen.Program, dir, name string) (string, error) {
	files := FilesFor(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(files.Orchestra, []byte(prog.Orchestra), 0o644); err != nil {
		return "", err
	}
	if err := os.WriteFile(files.Score, []byte(prog.Score), 0o644); err != nil {
		return "", err
	}
	// stale output from an earlier render must not count as success
	if err := os.Remove(files.WAV); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	runCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	cmd := exec.CommandContext(runCtx, c.Binary, "-W", "-o", files.WAV, files.Orchestra, files.Score)
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		c.Logger.Warn("killed non responsive renderer", "name", name, "timeout", c.Timeout, "output", tail(out))
		return "", fmt.Errorf("%w: %s after %s", ErrRenderTimeout, name, c.Timeout)
	}
	if err != nil {
		return "", fmt.Errorf("%s %s: %w: %s", c.Binary, name, err, tail(out))
	}

	info, err := os.Stat(files.WAV)
	if err != nil || info.Size() == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoOutput, files.WAV)
	}
	return files.WAV, nil
}

func tail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > outputTail {
		s = s[len(s)-outputTail:]
	}
	return s
}
