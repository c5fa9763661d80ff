package main

import (
	"errors"
	"fmt"
	"os"

	"assetdb-api/internal/apperr"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitFailure    = 1
	exitValidation = 2
	exitUsage      = 3
	exitStore      = 4
)

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// rowErrors is returned when a run finished but rejected some rows.
type rowErrors struct{ n int }

func (e rowErrors) Error() string { return fmt.Sprintf("%d row(s) rejected", e.n) }

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "import_csv",
		Short:         "Validate, import and export asset database CSV files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newTemplateCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newWizardCmd())
	cmd.AddCommand(newCreateUserCmd())
	return cmd
}

// exactArgs is cobra.ExactArgs with the failure marked as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func exitCode(err error) int {
	var (
		ue usageError
		re rowErrors
		ae *apperr.Error
	)
	switch {
	case errors.As(err, &ue):
		return exitUsage
	case errors.As(err, &re):
		return exitValidation
	case errors.As(err, &ae):
		if ae.Kind == apperr.KindInfrastructure {
			return exitStore
		}
		return exitValidation
	default:
		return exitFailure
	}
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
