package main

import (
	"fmt"
	"os"

	"assetdb-api/pkg/importer"

	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var (
		apply  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "import <type> <file>",
		Short: "Validate a CSV or XLSX file and optionally commit it",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseType(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return usageError{err}
			}
			defer f.Close()

			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			engine := importer.NewEngine(e.store, e.logger)
			var res *importer.Result
			if isXLSX(args[1]) {
				res, err = engine.ImportXLSX(cmd.Context(), t, f, !apply)
			} else {
				res, err = engine.ImportCSV(cmd.Context(), t, f, !apply)
			}
			if res == nil && err != nil {
				return err
			}

			if asJSON {
				if werr := writeJSON(res); werr != nil {
					return werr
				}
			} else {
				mode := "dry run"
				if apply {
					mode = "applied"
				}
				summary := fmt.Sprintf("%s %s: %d rows, %d inserted, %d updated, %d errors",
					t, mode, res.Summary.Total, res.Summary.Inserted, res.Summary.Updated, res.Summary.Errors)
				if werr := writeRows(cmd.OutOrStdout(), res.Rows, summary); werr != nil {
					return werr
				}
			}
			if err != nil {
				return err
			}
			if res.Summary.Errors > 0 {
				return rowErrors{res.Summary.Errors}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Commit rows (default dry-run)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full per-row result as JSON")
	return cmd
}

func newTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template <type>",
		Short: "Print the header row for an import type",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseType(args[0])
			if err != nil {
				return err
			}
			return importer.WriteTemplate(cmd.OutOrStdout(), t)
		},
	}
}

func newExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <type>",
		Short: "Export stored entities in import layout",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseType(args[0])
			if err != nil {
				return err
			}
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			w, err := createOutput(out)
			if err != nil {
				return usageError{err}
			}
			if err := importer.NewEngine(e.store, e.logger).Export(cmd.Context(), t, w); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default stdout)")
	return cmd
}
