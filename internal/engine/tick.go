// Package engine provides the step scheduler and the loop that drives it.
package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Stepper advances a world by one step.
type Stepper interface {
	Step() StepRecord
}

// Engine drives a Stepper forward, either as a batch or paced in real time.
type Engine struct {
	Sim      Stepper
	Speed    float64       // Multiplier: 1.0 = one step per Interval, 0 = paused
	Interval time.Duration // Base step interval
	MaxSteps uint64        // Run stops after this many steps; 0 means no limit

	// OnStep runs after every step with its record.
	OnStep func(rec StepRecord)

	steps   atomic.Uint64
	running atomic.Bool
}

// NewEngine creates an engine with default pacing.
func NewEngine(sim Stepper) *Engine {
	return &Engine{
		Sim:      sim,
		Speed:    1.0,
		Interval: time.Second,
	}
}

// Steps returns how many steps this engine has run.
func (e *Engine) Steps() uint64 {
	return e.steps.Load()
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// RunSteps runs n steps back to back and returns the last record.
func (e *Engine) RunSteps(n uint64) StepRecord {
	var last StepRecord
	for i := uint64(0); i < n; i++ {
		last = e.step()
	}
	return last
}

// RunUntil steps until done reports true for a record, or limit steps have
// run (0 means no limit). It returns the last record and the steps taken.
func (e *Engine) RunUntil(done func(StepRecord) bool, limit uint64) (StepRecord, uint64) {
	var (
		last  StepRecord
		taken uint64
	)
	for limit == 0 || taken < limit {
		last = e.step()
		taken++
		if done(last) {
			break
		}
	}
	return last, taken
}

// Run steps at the configured pace until ctx is done, Stop is called or
// MaxSteps is reached. It returns ctx.Err() when cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("simulation engine started", "speed", e.Speed, "interval", e.Interval)

	for e.running.Load() {
		if e.MaxSteps > 0 && e.Steps() >= e.MaxSteps {
			break
		}
		if e.Speed <= 0 {
			// Paused.
			if err := sleep(ctx, 100*time.Millisecond); err != nil {
				return err
			}
			continue
		}

		start := time.Now()
		e.step()

		target := time.Duration(float64(e.Interval) / e.Speed)
		if err := sleep(ctx, target-time.Since(start)); err != nil {
			slog.Info("simulation engine cancelled", "steps", e.Steps())
			return err
		}
	}

	slog.Info("simulation engine stopped", "steps", e.Steps())
	return nil
}

// Stop halts Run after the current step.
func (e *Engine) Stop() {
	e.running.Store(false)
}

func (e *Engine) step() StepRecord {
	rec := e.Sim.Step()
	e.steps.Add(1)
	if e.OnStep != nil {
		e.OnStep(rec)
	}
	return rec
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
