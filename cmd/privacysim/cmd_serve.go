package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/privacy-world/internal/api"
	"github.com/talgya/privacy-world/internal/engine"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulation in real time behind the HTTP API",
		Long: `Step the simulation once per interval and serve its state over HTTP.

Endpoints live under /api/v1: status, agents, agent/{id}, stats, locations,
runs, and the websocket step stream at /api/v1/stream. When --steps is
reached the simulation stops but the API keeps serving until interrupted.`,
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

			srv := api.NewServer(api.RunInfo{
				RunID:  s.runID(),
				Seed:   s.sim.Seed(),
				Policy: cfg.PolicyKind().String(),
				Agents: cfg.Population.Agents,
			}, cfg.API.Port)
			srv.DB = s.db

			eng := engine.NewEngine(s.sim)
			eng.Interval = cfg.Run.Interval
			eng.Speed, _ = cmd.Flags().GetFloat64("speed")
			eng.MaxSteps = cfg.Run.Steps
			eng.OnStep = func(rec engine.StepRecord) {
				s.onStep(rec)
				srv.Publish(rec)
			}
			srv.Eng = eng

			httpSrv := srv.Start()
			if err := eng.Run(ctx); err == nil {
				slog.Info("step limit reached, still serving", "steps", eng.Steps())
				<-ctx.Done()
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				slog.Error("HTTP shutdown", "error", err)
			}
			srv.Close()
			return s.finish()
		},
	}
	addSimFlags(cmd.Flags())
	cmd.Flags().Int("port", 8080, "HTTP port")
	cmd.Flags().Duration("interval", time.Second, "Time between steps")
	cmd.Flags().Float64("speed", 1.0, "Speed multiplier (0 pauses)")
	return cmd
}
