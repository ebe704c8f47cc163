package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/privacy-world/internal/engine"
	"github.com/talgya/privacy-world/internal/world"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a batch simulation and print the final aggregates",
		Long: `Run the simulation for a fixed number of steps as fast as possible.

With --db every step is stored and the run can be inspected later with
'privacysim runs' or 'privacysim serve'. --steps 0 runs until interrupted.

Example:
  privacysim run --agents 50 --degree 20 --rewire 0.3 --policy epsilon --steps 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := newSession(cmd, cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			eng := engine.NewEngine(s.sim)
			eng.OnStep = s.onStep
			_, taken := eng.RunUntil(func(engine.StepRecord) bool { return ctx.Err() != nil }, cfg.Run.Steps)

			if err := s.finish(); err != nil {
				return fmt.Errorf("saving run: %w", err)
			}

			final := s.sim.Collect()
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"run_id": s.runID(),
					"seed":   s.sim.Seed(),
					"policy": cfg.PolicyKind().String(),
					"steps":  taken,
					"stats":  final,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Ran %d steps (seed %d, policy %s)\n", taken, s.sim.Seed(), cfg.PolicyKind())
			if id := s.runID(); id != "" {
				fmt.Fprintf(out, "Run id: %s\n", id)
			}
			fmt.Fprintf(out, "Happiness: avg %.3f  min %.3f  max %.3f\n", final.AvgHappiness, final.MinHappiness, final.MaxHappiness)
			fmt.Fprintf(out, "Average reward: %.3f\n", final.AvgReward)
			fmt.Fprintf(out, "Below average: %d of %d\n", final.BelowAverage, final.Agents)
			for _, a := range world.Actions {
				fmt.Fprintf(out, "  %-14s %d\n", a, final.Actions[a])
			}
			return nil
		},
	}
	addSimFlags(cmd.Flags())
	return cmd
}
