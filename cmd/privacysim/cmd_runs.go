package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/privacy-world/internal/config"
	"github.com/talgya/privacy-world/internal/persistence"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs stored in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.Storage.Path, _ = cmd.Flags().GetString("db")
			}
			if cfg.Storage.Path == "" {
				return fmt.Errorf("no database: set --db, storage.path or PRIVSIM_DB_PATH")
			}

			db, err := persistence.Open(cfg.Storage.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.Runs()
			if err != nil {
				return fmt.Errorf("listing runs: %w", err)
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				if runs == nil {
					runs = []persistence.RunMeta{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(runs)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tPOLICY\tAGENTS\tSTEPS\tSEED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n", r.ID, r.StartedAt.Format(time.RFC3339),
					r.Policy, r.Agents, r.Steps, r.Seed)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("db", "", "SQLite database for run storage")
	return cmd
}
