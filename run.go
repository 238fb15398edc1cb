package nutrunner

import (
	"context"
	"fmt"
)

// Run executes the assembly loop: ready -> grasp nut -> seat -> grasp screw ->
// approach -> tighten -> retract, repeating until the context is cancelled.
func Run(ctx context.Context, r *Robot) error {
	r.logger.Info("Starting assembly loop")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Shutting down")
			return nil
		default:
		}

		if err := RunCycle(ctx, r); err != nil {
			if ctx.Err() != nil {
				r.logger.Info("Shutting down")
				return nil
			}
			r.logger.Errorf("Cycle failed: %v", err)
			r.logger.Info("Retrying full cycle...")
			continue
		}

		r.state.FastenersAssembled++
		r.logger.Infof("Fastener %d assembled successfully", r.state.FastenersAssembled)
	}
}

// RunCycle executes a single ready-to-retract assembly cycle.
func RunCycle(ctx context.Context, r *Robot) error {
	r.resetState()

	steps := []struct {
		name string
		fn   func(context.Context, *Robot) error
	}{
		{"Ready", Ready},
		{"GraspNut", GraspNut},
		{"SeatNut", SeatNut},
		{"GraspScrew", GraspScrew},
		{"ApproachDrive", ApproachDrive},
		{"Tighten", Tighten},
		{"Retract", Retract},
	}

	for _, step := range steps {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Infof("=== %s ===", step.name)
		if err := step.fn(ctx, r); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return nil
}
