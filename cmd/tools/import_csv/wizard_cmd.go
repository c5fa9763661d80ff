package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"assetdb-api/pkg/importer/wizard"

	"github.com/spf13/cobra"
)

func newWizardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Map third-party CSV layouts onto the import templates",
	}
	cmd.AddCommand(newWizardLocationsCmd())
	cmd.AddCommand(newWizardAssetsCmd())
	return cmd
}

type wizardFlags struct {
	clientCode string
	aliases    string
	out        string
}

func (f *wizardFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.clientCode, "client-code", "", "Client code written on every row")
	cmd.Flags().StringVar(&f.aliases, "aliases", "", "YAML header alias table (default built-in)")
	cmd.Flags().StringVarP(&f.out, "output", "o", "", "Output CSV (default stdout)")
}

func runWizard(cmd *cobra.Command, path string, f wizardFlags, run func(context.Context, *wizard.Wizard, io.Reader) (*wizard.Result, error)) error {
	in, err := os.Open(path)
	if err != nil {
		return usageError{err}
	}
	defer in.Close()

	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	aliases := wizard.DefaultAliases()
	switch {
	case f.aliases != "":
		aliases, err = wizard.LoadAliases(f.aliases)
	case e.cfg.WizardAliases != "":
		aliases, err = wizard.LoadAliases(e.cfg.WizardAliases)
	}
	if err != nil {
		return usageError{err}
	}

	res, err := run(cmd.Context(), wizard.New(e.store, aliases, e.logger), in)
	if err != nil {
		return err
	}

	w, err := createOutput(f.out)
	if err != nil {
		return usageError{err}
	}
	if err := res.WriteCSV(w); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	summary := fmt.Sprintf("%s: %d rows, %d mapped, %d skipped, %d bad",
		res.Type, res.Summary.Total, res.Summary.OK, res.Summary.Skipped, res.Summary.Bad)
	if err := writeRows(cmd.ErrOrStderr(), res.Rows, summary); err != nil {
		return err
	}
	if res.Summary.Bad > 0 {
		return rowErrors{res.Summary.Bad}
	}
	return nil
}

func newWizardLocationsCmd() *cobra.Command {
	var f wizardFlags

	cmd := &cobra.Command{
		Use:   "locations <file>",
		Short: "Convert a site/area listing into locations.csv",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWizard(cmd, args[0], f, func(ctx context.Context, wz *wizard.Wizard, r io.Reader) (*wizard.Result, error) {
				return wz.Locations(ctx, r, wizard.LocationsOptions{ClientCode: f.clientCode})
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newWizardAssetsCmd() *cobra.Command {
	var (
		f            wizardFlags
		useLocations bool
	)

	cmd := &cobra.Command{
		Use:   "assets <file>",
		Short: "Convert an equipment register into assets.csv",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWizard(cmd, args[0], f, func(ctx context.Context, wz *wizard.Wizard, r io.Reader) (*wizard.Result, error) {
				return wz.Assets(ctx, r, wizard.AssetsOptions{ClientCode: f.clientCode, UseKnownLocations: useLocations})
			})
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&useLocations, "use-db-locations", true, "Resolve location codes against stored locations")
	return cmd
}
