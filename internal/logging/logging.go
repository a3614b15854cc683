package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/config"
)

const filePrefix = "acto-"

// Setup builds a text logger writing to stdout and to a daily file under
// directory. Files older than retentionDays are removed; zero keeps everything.
func Setup(level, directory string, retentionDays int) (*slog.Logger, error) {
	if directory == "" {
		directory = config.DefaultLogDir
	}
	directory = config.ExpandHome(directory)

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	now := time.Now()
	logPath := filepath.Join(directory, fmt.Sprintf("%s%s.log", filePrefix, now.Format("2006-01-02")))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	logger := New(io.MultiWriter(os.Stdout, file), level)
	if retentionDays > 0 {
		removed, err := Prune(directory, now.AddDate(0, 0, -retentionDays))
		if err != nil {
			logger.Warn("pruning old log files", "error", err)
		} else if removed > 0 {
			logger.Debug("pruned old log files", "count", removed)
		}
	}
	return logger, nil
}

// New returns a text logger on w at the named level.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// ParseLevel maps debug, warn and error to their slog levels; anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Prune deletes acto-YYYY-MM-DD.log files dated before cutoff.
func Prune(directory string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return 0, fmt.Errorf("reading log directory: %w", err)
	}

	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		day, err := time.ParseInLocation("2006-01-02", strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".log"), cutoff.Location())
		if err != nil {
			continue
		}
		if !day.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(directory, name)); err != nil {
			return removed, fmt.Errorf("removing %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}
