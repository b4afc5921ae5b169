// Command spectec is the driver for the P4 specification toolchain: it
// loads elaborated IL, runs programs against it, and maintains the phantom
// coverage the fuzzer consumes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"p4spectec/internal/config"
	"p4spectec/internal/logging"
)

// Exit codes, shared with the fuzzing harness.
const (
	exitOK        = 0
	exitLoadFail  = 1
	exitEvalFail  = 2
	exitInterrupt = 130
)

// codedError carries the process exit code alongside the cause.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func loadFailure(err error) error { return &codedError{code: exitLoadFail, err: err} }
func evalFailure(err error) error { return &codedError{code: exitEvalFail, err: err} }

var (
	configPath string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "spectec",
	Short: "P4SpecTec driver - run P4 programs against an executable spec",
	Long: `spectec loads the elaborated intermediate language (IL) of the P4
specification, interprets concrete programs against it, and emits the
phantom log: the branches an evaluation did not take, each with its path
condition, ready for the fuzzer to negate.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return loadFailure(err)
		}
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		if err := logging.Init(logging.Options{
			Level:      level,
			JSONFormat: cfg.Logging.JSONFormat,
			Categories: cfg.Logging.Categories,
		}); err != nil {
			return fmt.Errorf("initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to spectec.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ilCmd)
	rootCmd.AddCommand(coverageCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		os.Exit(exitOK)
	}
	fmt.Fprintln(os.Stderr, "spectec:", err)
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		os.Exit(exitInterrupt)
	}
	var coded *codedError
	if errors.As(err, &coded) {
		os.Exit(coded.code)
	}
	os.Exit(exitEvalFail)
}
