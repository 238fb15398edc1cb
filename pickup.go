package nutrunner

import (
	"context"
	"fmt"

	"github.com/hexbotics/nutrunner/fastenerpose"
)

// GraspScrew picks the screw up by its head from the tray. The screw stands
// upright, so the approach orientation is fixed rather than synthesized.
func GraspScrew(ctx context.Context, r *Robot) error {
	est, err := r.feed.NextPose(ctx, BodyScrew)
	if err != nil {
		return fmt.Errorf("screw head pose: %w", err)
	}
	r.logger.Infof("Screw head at (%.3f, %.3f, %.3f)m", est.Position.X, est.Position.Y, est.Position.Z)

	wps := fastenerpose.PickupWaypoints(est.Position, r.synth)
	drawWaypoints(r, "screw_pickup", wps)

	if err := r.moveThroughWaypoints(ctx, wps); err != nil {
		return fmt.Errorf("pickup approach: %w", err)
	}

	if err := r.graspActuator().Close(ctx); err != nil {
		return fmt.Errorf("close on screw head: %w", err)
	}
	if err := r.settle(ctx, graspSettle); err != nil {
		return err
	}

	r.logger.Info("Screw grasped")
	return nil
}
