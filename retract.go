package nutrunner

import (
	"context"
	"fmt"

	"github.com/hexbotics/nutrunner/fastenerpose"
)

// Retract lifts straight up off the seated fastener, then returns the arm to
// its ready position.
func Retract(ctx context.Context, r *Robot) error {
	if r.state.LastWaypoint == nil {
		r.logger.Warn("No last waypoint recorded; returning to ready directly")
	} else {
		lift := fastenerpose.LiftWaypoint(*r.state.LastWaypoint, r.synth)
		if err := r.moveLinear(ctx, r.arm.Name().Name, worldPose(lift), tableWorldState(r.logger)); err != nil {
			return fmt.Errorf("lift off fastener: %w", err)
		}
	}

	if err := r.moveArmToJoints(ctx, ReadyJoints); err != nil {
		return fmt.Errorf("return to ready: %w", err)
	}

	r.logger.Info("Retract complete")
	return nil
}
