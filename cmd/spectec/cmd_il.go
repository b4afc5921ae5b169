package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"p4spectec/internal/il"
	"p4spectec/internal/logging"
)

var ilWrite bool

var ilCmd = &cobra.Command{
	Use:   "il",
	Short: "Inspect and normalize elaborated IL files",
}

var ilValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check that a file is well-formed IL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := loadSpec(args[0])
		if err != nil {
			return err
		}
		typs, rels, decs := 0, 0, 0
		for _, d := range spec.Defs {
			switch d.(type) {
			case il.TypD:
				typs++
			case il.RelD:
				rels++
			case il.DecD:
				decs++
			}
		}
		fmt.Printf("%s: %d types, %d relations, %d functions\n", args[0], typs, rels, decs)
		return nil
	},
}

var ilFmtCmd = &cobra.Command{
	Use:   "fmt <file>",
	Short: "Re-emit a file in canonical IL form",
	Long: `Decodes the IL and emits the canonical serialization. Emitting and
re-parsing preserves the tree exactly, so fmt is idempotent; with -w the
file is rewritten in place, otherwise the result goes to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := loadSpec(args[0])
		if err != nil {
			return err
		}
		data, err := il.Encode(spec)
		if err != nil {
			return loadFailure(err)
		}
		if ilWrite {
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return err
			}
			logging.L(logging.CategoryLoad).Infow("rewrote IL", "file", args[0])
			return nil
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	ilFmtCmd.Flags().BoolVarP(&ilWrite, "write", "w", false, "rewrite the file in place")
	ilCmd.AddCommand(ilValidateCmd)
	ilCmd.AddCommand(ilFmtCmd)
}
