package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQueryDataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query_data <column> <country> [extra_column]",
		Short: "Queries loaded data",
		Long: `Queries loaded data.

  query_data <column> <country>                            max of a daily column for a country
  query_data daily_trends <country> <column>               daily series of a column for a country
  query_data top_n_countries_by_metric <N> <metric>        top N countries by a vaccination metric`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra string
			if len(args) == 3 {
				extra = args[2]
			}

			p, _, err := openPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			out, err := p.Query(cmd.Context(), args[0], args[1], extra)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
