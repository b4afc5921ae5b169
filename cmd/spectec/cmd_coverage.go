package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"p4spectec/internal/logging"
	"p4spectec/internal/phantom"
)

var covDBPath string

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Inspect and merge phantom coverage databases",
}

var coverageShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Summarize a coverage database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cov, err := openCoverageFlag()
		if err != nil {
			return err
		}
		defer cov.Close()
		stats, err := cov.Summary()
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d origins, %d runs, %d hit, %d miss\n",
			cov.Path(), stats.Origins, stats.Runs, stats.Hits, stats.Misses)
		origins, err := cov.Origins()
		if err != nil {
			return err
		}
		for _, origin := range origins {
			pids, err := cov.Misses(origin)
			if err != nil {
				return err
			}
			if len(pids) > 0 {
				fmt.Printf("  %s: %d open targets %v\n", origin, len(pids), pids)
			}
		}
		return nil
	},
}

var coverageMergeCmd = &cobra.Command{
	Use:   "merge <db...>",
	Short: "Union other coverage databases into --db",
	Long: `Folds each source database into the target with hit-wins semantics: a
phantom hit by any campaign stays hit, a miss survives only while no
campaign took the branch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.L(logging.CategoryCoverage)
		dst, err := openCoverageFlag()
		if err != nil {
			return err
		}
		defer dst.Close()
		for _, path := range args {
			src, err := phantom.OpenCoverage(path)
			if err != nil {
				return err
			}
			if err := dst.Union(src); err != nil {
				src.Close()
				return err
			}
			src.Close()
			log.Infow("merged coverage", "from", path, "into", dst.Path())
		}
		return nil
	},
}

func openCoverageFlag() (*phantom.CoverageStore, error) {
	path := covDBPath
	if path == "" {
		path = cfg.Coverage.DatabasePath
	}
	if path == "" {
		return nil, fmt.Errorf("no coverage database: pass --db or set coverage.database_path")
	}
	return phantom.OpenCoverage(path)
}

func init() {
	coverageCmd.PersistentFlags().StringVar(&covDBPath, "db", "", "coverage database path")
	coverageCmd.AddCommand(coverageShowCmd)
	coverageCmd.AddCommand(coverageMergeCmd)
}
