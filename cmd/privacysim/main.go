// Command privacysim runs the privacy-sharing agent simulation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "privacysim",
		Short: "Privacy-sharing agent simulation",
		Long: `privacysim simulates people moving between places and deciding how much
to share about each visit: nothing, with friends, or publicly.

Each agent weighs pleasure, recognition, privacy and security, and adjusts
to the friends it meets. Policies range from purely selfish to an
epsilon-greedy learner that looks after unhappy companions.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "YAML config file")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newServeCmd(),
		newLocationsCmd(),
		newRunsCmd(),
	)
	return rootCmd
}
