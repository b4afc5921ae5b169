// Package logging provides config-driven categorized logging for the
// toolchain. Each subsystem logs under its own category; categories can be
// toggled individually so a long fuzzing campaign can keep the phantom
// channel verbose while the evaluator stays quiet.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryLoad     Category = "load"     // IL decoding and validation
	CategoryEval     Category = "eval"     // interpreter activity
	CategoryPhantom  Category = "phantom"  // phantom log and reports
	CategoryCoverage Category = "coverage" // coverage store operations
	CategoryDriver   Category = "driver"   // CLI orchestration
)

// Options selects the output shape and which categories are live.
type Options struct {
	Level      string          // debug, info, warn, error
	JSONFormat bool            // structured output for log scraping
	Categories map[string]bool // nil enables everything
}

var (
	mu      sync.RWMutex
	root    *zap.Logger
	nop     = zap.NewNop()
	enabled map[string]bool
)

// Init builds the root logger. Safe to call more than once; the last call
// wins. Before Init every category logger is a nop.
func Init(opts Options) error {
	cfg := zap.NewProductionConfig()
	if !opts.JSONFormat {
		cfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(defaultLevel(opts.Level))
	if err != nil {
		return err
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	root = logger
	enabled = opts.Categories
	return nil
}

func defaultLevel(s string) string {
	if s == "" {
		return "info"
	}
	return s
}

// L returns the logger for a category, a nop when the category is
// disabled or Init was never called.
func L(cat Category) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	if root == nil {
		return nop.Sugar()
	}
	if enabled != nil {
		if on, known := enabled[string(cat)]; known && !on {
			return nop.Sugar()
		}
	}
	return root.Named(string(cat)).Sugar()
}

// Sync flushes buffered entries; call on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if root != nil {
		_ = root.Sync()
	}
}
