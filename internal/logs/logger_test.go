package logs

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWritesTextWithRunID(t *testing.T) {
	var buf bytes.Buffer
	off := false
	logger := New(Options{Writer: &buf, Journal: &off})

	logger.With("component", "monitor").InfoContext(WithRunID(context.Background(), "run-7"), "generation complete", "generation", 3)
	out := buf.String()
	for _, want := range []string{"generation complete", "generation=3", "run_id=run-7", "component=monitor"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestNewHonoursLevelVar(t *testing.T) {
	var buf bytes.Buffer
	off := false
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logger := New(Options{Writer: &buf, Level: level, Journal: &off, Format: FormatJSON})

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn: %q", buf.String())
	}
	level.Set(slog.LevelDebug)
	logger.Debug("shown", "n", 1)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json record: %v", err)
	}
	if record["msg"] != "shown" || record["n"] != float64(1) {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{"debug": slog.LevelDebug, "": slog.LevelInfo, "WARN": slog.LevelWarn, "error": slog.LevelError} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %v err=%v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestToJournalKey(t *testing.T) {
	if got := toJournalKey("best_fitness.mean-1"); got != "BEST_FITNESS_MEAN_1" {
		t.Fatalf("unexpected key %q", got)
	}
}
