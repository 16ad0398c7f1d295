package cmd

import (
	"fmt"

	"github.com/rasnes/healthcare-etl/load"
	"github.com/rasnes/healthcare-etl/pipeline"
	"github.com/spf13/cobra"
)

func newFetchDataCmd() *cobra.Command {
	var opts pipeline.FetchOptions

	cmd := &cobra.Command{
		Use:   "fetch_data",
		Short: "Fetches daily case data for a country and loads new rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, log, err := openPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Fetching data for %s from %s to %s...\n",
				opts.Country, orDefault(opts.StartDate, "beginning"), orDefault(opts.EndDate, "latest"))

			inserted, err := p.FetchDailyCases(cmd.Context(), opts)
			if err != nil {
				log.Warn(fmt.Sprintf("Fetch for %s did not complete: %v", opts.Country, err))
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d records into '%s' table.\n", inserted, load.DailyCasesTable)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Country, "country", "", "country to fetch")
	cmd.Flags().StringVar(&opts.StartDate, "start_date", "", "first report date to keep (inclusive)")
	cmd.Flags().StringVar(&opts.EndDate, "end_date", "", "last report date to keep (inclusive)")
	cmd.Flags().StringVar(&opts.Date, "date", "", "date parameter forwarded to the API")
	cmd.MarkFlagRequired("country")

	return cmd
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
