package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// LogConfig holds the settings used to build a LogBackend.
type LogConfig struct {
	LogFile     string // Optional log file; empty logs to stdout only
	DebugLevel  string // trace, debug, info, warn, error, critical, off
	MaxLogFiles int    // Rotated files to keep
	MaxSizeKB   int64  // Size threshold that triggers rotation
	Quiet       bool   // Do not mirror log lines to stdout
}

// LogBackend hands out subsystem loggers that share one output and level.
type LogBackend struct {
	backend *slog.Backend
	rotator *rotator.Rotator
	writer  *logWriter
	level   slog.Level

	mu      sync.Mutex
	loggers map[string]slog.Logger
}

// logWriter fans log lines out to stdout and the rotator.
type logWriter struct {
	stdout  io.Writer
	quiet   atomic.Bool
	rotator *rotator.Rotator
}

func (w *logWriter) Write(p []byte) (int, error) {
	if w.stdout != nil && !w.quiet.Load() {
		w.stdout.Write(p)
	}
	if w.rotator != nil {
		w.rotator.Write(p)
	}
	return len(p), nil
}

// NewLogBackend creates a new log backend from cfg.
func NewLogBackend(cfg LogConfig) (*LogBackend, error) {
	level := slog.LevelInfo
	if cfg.DebugLevel != "" {
		lvl, ok := slog.LevelFromString(strings.ToLower(cfg.DebugLevel))
		if !ok {
			return nil, fmt.Errorf("invalid debug level %q", cfg.DebugLevel)
		}
		level = lvl
	}

	w := &logWriter{stdout: os.Stdout}
	w.quiet.Store(cfg.Quiet)

	lb := &LogBackend{
		writer:  w,
		level:   level,
		loggers: make(map[string]slog.Logger),
	}

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		maxRolls := cfg.MaxLogFiles
		if maxRolls <= 0 {
			maxRolls = 3
		}
		maxSize := cfg.MaxSizeKB
		if maxSize <= 0 {
			maxSize = 10 * 1024
		}
		r, err := rotator.New(cfg.LogFile, maxSize, false, maxRolls)
		if err != nil {
			return nil, fmt.Errorf("failed to create file rotator: %w", err)
		}
		lb.rotator = r
		w.rotator = r
	}

	lb.backend = slog.NewBackend(w)
	return lb, nil
}

// Logger returns the logger for subsystem, creating it on first use.
func (lb *LogBackend) Logger(subsystem string) slog.Logger {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if l, ok := lb.loggers[subsystem]; ok {
		return l
	}
	l := lb.backend.Logger(subsystem)
	l.SetLevel(lb.level)
	lb.loggers[subsystem] = l
	return l
}

// SetLevel changes the level of every logger handed out so far and of
// loggers created afterwards.
func (lb *LogBackend) SetLevel(level slog.Level) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.level = level
	for _, l := range lb.loggers {
		l.SetLevel(level)
	}
}

// Level returns the configured level.
func (lb *LogBackend) Level() slog.Level {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.level
}

// SetQuiet stops or resumes mirroring log lines to stdout. The log file,
// if any, keeps receiving them.
func (lb *LogBackend) SetQuiet(quiet bool) {
	lb.writer.quiet.Store(quiet)
}

// Close flushes and closes the log file, if any.
func (lb *LogBackend) Close() error {
	if lb.rotator != nil {
		return lb.rotator.Close()
	}
	return nil
}
