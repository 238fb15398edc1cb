package nutrunner

import (
	"context"
	"fmt"
	"time"

	"github.com/hexbotics/nutrunner/fastenerpose"
	viz "github.com/viam-labs/motion-tools/client/client"
	"go.viam.com/rdk/spatialmath"
)

// graspSettle is the dwell after closing on the nut, letting the jaws seat
// before the arm moves again.
const graspSettle = 2 * time.Second

// GraspNut reads the nut's pose from the perception feed, synthesizes the
// grasp approach from its sensed axis, and closes the gripper on it. The
// frame result is kept in state; SeatNut needs its branch constants.
func GraspNut(ctx context.Context, r *Robot) error {
	est, err := r.feed.NextPose(ctx, BodyNut)
	if err != nil {
		return fmt.Errorf("nut pose: %w", err)
	}
	r.logger.Infof("Nut at (%.3f, %.3f, %.3f)m", est.Position.X, est.Position.Y, est.Position.Z)

	wps, frame, err := fastenerpose.GraspWaypoints(est, r.synth)
	if err != nil {
		return fmt.Errorf("synthesize grasp: %w", err)
	}
	r.state.NutEstimate = &est
	r.state.Frame = &frame
	r.logger.Infof("Nut presented %s; %d-waypoint approach", frame.Presentation, len(wps))

	drawWaypoints(r, "nut_grasp", wps)

	if err := r.moveThroughWaypoints(ctx, wps); err != nil {
		return fmt.Errorf("grasp approach: %w", err)
	}

	if err := r.graspActuator().Close(ctx); err != nil {
		return fmt.Errorf("close on nut: %w", err)
	}
	if err := r.settle(ctx, graspSettle); err != nil {
		return err
	}

	r.logger.Info("Nut grasped")
	return nil
}

// drawWaypoints visualizes an approach in the motion-tools viewer. Purely
// diagnostic; a missing viewer only warns.
func drawWaypoints(r *Robot, label string, wps []fastenerpose.Waypoint) {
	poses := make([]spatialmath.Pose, 0, len(wps))
	names := make([]string, 0, len(wps))
	for _, wp := range wps {
		poses = append(poses, worldPose(wp))
		names = append(names, fmt.Sprintf("%s_%d", label, wp.Index))
	}
	if err := viz.DrawPoses(poses, names, true); err != nil {
		r.logger.Warnf("Failed to draw %s waypoints: %v", label, err)
	}
}
