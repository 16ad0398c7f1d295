package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newListTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list_tables",
		Short: "Lists tables, creating them if none exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := openPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			tables, created, err := p.ListTables(cmd.Context())
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintln(cmd.OutOrStdout(), "No tables found. Created tables:")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Tables:")
			}
			for _, table := range tables {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", table)
			}
			return nil
		},
	}
}

func newDropTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop_tables",
		Short: "Drops all tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := openPipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			dropped, err := p.DropTables(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dropped tables: %s\n", strings.Join(dropped, ", "))
			return nil
		},
	}
}
