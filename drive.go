package nutrunner

import (
	"context"
	"fmt"

	"github.com/hexbotics/nutrunner/fastenerpose"
)

// ApproachDrive brings the held screw over the seated nut, tip just above the
// thread, ready for the tightening loop.
func ApproachDrive(ctx context.Context, r *Robot) error {
	nut, err := r.feed.NextPose(ctx, BodyNut)
	if err != nil {
		return fmt.Errorf("seated nut pose: %w", err)
	}

	wps := fastenerpose.DriveWaypoints(nut.Position, r.synth)
	drawWaypoints(r, "drive_approach", wps)

	if err := r.moveThroughWaypoints(ctx, wps); err != nil {
		return fmt.Errorf("drive approach: %w", err)
	}

	r.logger.Info("Screw positioned over nut")
	return nil
}
