// Package logs builds the slog loggers used by the CLI and library.
package logs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

type Format string

const (
	FormatAuto Format = ""
	FormatText Format = "text"
	FormatJSON Format = "json"
)

type Options struct {
	// Level is shared with the caller so it can change at runtime. Nil
	// means info.
	Level *slog.LevelVar
	// Writer receives terminal output; nil means stderr.
	Writer io.Writer
	// Format picks the terminal encoding. Auto uses text on a TTY and JSON
	// otherwise.
	Format Format
	// Journal forces the systemd journal handler on or off; nil detects a
	// systemd service from the process cgroup.
	Journal *bool
}

// New fans records out to a terminal handler and, under systemd, the
// journal.
func New(opts Options) *slog.Logger {
	level := opts.Level
	if level == nil {
		level = new(slog.LevelVar)
	}
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	journal := isSystemdService()
	if opts.Journal != nil {
		journal = *opts.Journal
	}

	var handlers []slog.Handler
	var terminalHandler slog.Handler
	if !journal || opts.Writer != nil {
		handlerOpts := &slog.HandlerOptions{Level: level}
		if useJSON(opts.Format, writer) {
			terminalHandler = slog.NewJSONHandler(writer, handlerOpts)
		} else {
			terminalHandler = slog.NewTextHandler(writer, handlerOpts)
		}
		handlers = append(handlers, terminalHandler)
	}

	if journal {
		journalHandler, err := slogjournal.NewHandler(&slogjournal.Options{
			Level: level,
			ReplaceGroup: func(key string) string {
				return toJournalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			if terminalHandler != nil {
				record := slog.NewRecord(time.Now(), slog.LevelWarn, "new systemd journal handler", 0)
				record.Add("error", err)
				_ = terminalHandler.Handle(context.Background(), record)
			}
		} else {
			handlers = append(handlers, journalHandler)
		}
	}

	return slog.New(&Handler{Handler: slogmulti.Fanout(handlers...)})
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

func useJSON(format Format, w io.Writer) bool {
	switch format {
	case FormatJSON:
		return true
	case FormatText:
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

func toJournalKey(str string) string {
	str = strings.ToUpper(str)
	str = strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' ||
			r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, str)
	return str
}

func isSystemdService() bool {
	content, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	parts := strings.Split(strings.TrimSpace(string(content)), ":")
	if len(parts) < 3 {
		return false
	}
	return strings.HasSuffix(path.Dir(parts[2]), ".service")
}
