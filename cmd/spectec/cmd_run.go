package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"p4spectec/internal/eval"
	"p4spectec/internal/il"
	"p4spectec/internal/logging"
	"p4spectec/internal/phantom"
	"p4spectec/internal/value"
)

var (
	runILPath   string
	runRelation string
	runOutDir   string
	runCovPath  string
	runJobs     int
	runTimeout  time.Duration
	runMaxDepth int
	runWatch    bool
)

var runCmd = &cobra.Command{
	Use:   "run --il spec.il.json --rel <relation> [inputs...]",
	Short: "Run input programs against a loaded IL and emit phantom logs",
	Long: `Evaluates each input (a JSON value tree, the elaborated form of one P4
program) through the named relation. Every input gets its own context:
value graph, scope stack, and phantom log are never shared. The phantom
report for input X is written to <out>/<X>.phantoms.json; with --coverage
the misses are also folded into the coverage database.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEvaluations,
}

func init() {
	runCmd.Flags().StringVar(&runILPath, "il", "", "elaborated IL file (required)")
	runCmd.Flags().StringVar(&runRelation, "rel", "", "entry relation name (required)")
	runCmd.Flags().StringVar(&runOutDir, "out", ".", "directory for phantom reports")
	runCmd.Flags().StringVar(&runCovPath, "coverage", "", "coverage database (overrides config)")
	runCmd.Flags().IntVar(&runJobs, "jobs", 0, "parallel evaluations (overrides config)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "per-evaluation deadline (overrides config)")
	runCmd.Flags().IntVar(&runMaxDepth, "max-depth", 0, "recursion bound (overrides config)")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "re-run when the IL file changes")
	_ = runCmd.MarkFlagRequired("il")
	_ = runCmd.MarkFlagRequired("rel")
}

func runEvaluations(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.L(logging.CategoryDriver)

	timeout := runTimeout
	if timeout == 0 {
		t, err := cfg.EvalTimeout()
		if err != nil {
			return loadFailure(err)
		}
		timeout = t
	}
	maxDepth := runMaxDepth
	if maxDepth == 0 {
		maxDepth = cfg.Eval.MaxDepth
	}
	jobs := runJobs
	if jobs == 0 {
		jobs = cfg.Eval.Jobs
	}
	covPath := runCovPath
	if covPath == "" {
		covPath = cfg.Coverage.DatabasePath
	}

	var cov *phantom.CoverageStore
	if covPath != "" {
		var err error
		cov, err = phantom.OpenCoverage(covPath)
		if err != nil {
			return loadFailure(err)
		}
		defer cov.Close()
	}

	runAll := func() error {
		spec, err := loadSpec(runILPath)
		if err != nil {
			return err
		}
		return evalInputs(ctx, spec, args, evalSettings{
			relation: runRelation,
			outDir:   runOutDir,
			jobs:     jobs,
			timeout:  timeout,
			maxDepth: maxDepth,
			coverage: cov,
		})
	}

	if !runWatch {
		return runAll()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(runILPath); err != nil {
		return fmt.Errorf("watch %s: %w", runILPath, err)
	}

	var lastErr error
	lastErr = runAll()
	for {
		select {
		case <-ctx.Done():
			return lastErr
		case ev, ok := <-watcher.Events:
			if !ok {
				return lastErr
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
				log.Infow("IL changed, re-running", "file", ev.Name)
				lastErr = runAll()
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return lastErr
			}
			log.Warnw("watcher error", "err", werr)
		}
	}
}

func loadSpec(path string) (*il.Spec, error) {
	log := logging.L(logging.CategoryLoad)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, loadFailure(fmt.Errorf("read IL: %w", err))
	}
	spec, err := il.Decode(data)
	if err != nil {
		return nil, loadFailure(err)
	}
	log.Infow("IL loaded", "file", path, "defs", len(spec.Defs))
	return spec, nil
}

type evalSettings struct {
	relation string
	outDir   string
	jobs     int
	timeout  time.Duration
	maxDepth int
	coverage *phantom.CoverageStore
}

// evalInputs runs every input in its own context, up to jobs at a time.
// Inputs are independent: one failing does not stop the others, but any
// interpretation failure makes the whole invocation report failure.
func evalInputs(ctx context.Context, spec *il.Spec, inputs []string, s evalSettings) error {
	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var mu sync.Mutex
	var failed []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.jobs)
	for _, input := range inputs {
		input := input
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			report, err := evalOne(spec, input, s)
			if err != nil {
				return err // report could not even be produced
			}
			if report.Failed {
				mu.Lock()
				failed = append(failed, input)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return evalFailure(err)
	}
	if len(failed) > 0 {
		return evalFailure(fmt.Errorf("%d of %d inputs failed interpretation: %s",
			len(failed), len(inputs), strings.Join(failed, ", ")))
	}
	return nil
}

// evalOne evaluates a single input program. The phantom report is written
// even when interpretation fails; partial coverage is still coverage.
func evalOne(spec *il.Spec, input string, s evalSettings) (*phantom.Report, error) {
	log := logging.L(logging.CategoryEval)
	origin := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))

	opts := eval.Options{MaxDepth: s.maxDepth}
	if s.timeout > 0 {
		opts.Deadline = time.Now().Add(s.timeout)
	}
	ectx := eval.NewContext(spec, opts)

	report := func(evalErr error) (*phantom.Report, error) {
		r := phantom.NewReport(origin, s.relation, ectx.Phantoms)
		if evalErr != nil {
			r.Failed = true
			r.Error = evalErr.Error()
		}
		data, err := r.Marshal()
		if err != nil {
			return nil, err
		}
		out := filepath.Join(s.outDir, origin+".phantoms.json")
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return nil, err
		}
		if s.coverage != nil {
			if err := s.coverage.RecordReport(r); err != nil {
				return nil, err
			}
		}
		return r, nil
	}

	vals, err := loadInputs(ectx, input)
	if err != nil {
		return report(err)
	}
	outs, err := eval.Run(ectx, s.relation, vals)
	if err != nil {
		log.Warnw("interpretation failed", "input", input, "err", err)
		return report(err)
	}
	log.Infow("evaluation complete",
		"input", input,
		"outputs", len(outs),
		"missed", len(ectx.Phantoms.Misses()),
		"values", ectx.Store.Size(),
	)
	return report(nil)
}

// loadInputs reads one input file: either a single value tree or a JSON
// array of value trees for multi-input relations.
func loadInputs(ectx *eval.Context, path string) ([]*value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var raws []json.RawMessage
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		vals := make([]*value.Value, len(raws))
		for i, raw := range raws {
			v, err := value.DecodeValue(ectx.Store, raw)
			if err != nil {
				return nil, fmt.Errorf("%s: input %d: %w", path, i, err)
			}
			vals[i] = v
		}
		return vals, nil
	}
	v, err := value.DecodeValue(ectx.Store, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return []*value.Value{v}, nil
}
