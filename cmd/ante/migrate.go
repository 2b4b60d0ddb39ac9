package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	migrateCmd := &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Manage the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			store, cleanup, err := initializeStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			switch action {
			case "up":
				if err := store.MigrateUp(); err != nil {
					return err
				}
			case "down":
				if err := store.MigrateDown(); err != nil {
					return err
				}
			}

			version, dirty, ok, err := store.MigrationVersion()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "no migrations applied")
				return nil
			}
			fmt.Fprintf(out, "version %d", version)
			if dirty {
				fmt.Fprint(out, " (dirty)")
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	rootCmd.AddCommand(migrateCmd)
}
