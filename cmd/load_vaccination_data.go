package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoadVaccinationDataCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "load_vaccination_data",
		Short: "Loads the latest vaccination snapshot per country from a CSV export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, log, err := openPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			inserted, err := p.LoadVaccination(cmd.Context(), file)
			if err != nil {
				log.Warn(fmt.Sprintf("Vaccination load did not complete: %v", err))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d vaccination records.\n", inserted)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV or zipped CSV export (default: vaccination.csv_path)")
	return cmd
}
