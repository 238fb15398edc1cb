package nutrunner

import (
	"context"
	"fmt"

	"github.com/hexbotics/nutrunner/fastenerpose"
)

// SeatNut carries the grasped nut to the fixture and releases it. The branch
// constants chosen during GraspNut select the fixture offsets and orientation.
func SeatNut(ctx context.Context, r *Robot) error {
	if r.state.Frame == nil {
		return fmt.Errorf("no nut frame in state; run GraspNut first")
	}

	fixture, err := r.feed.NextPose(ctx, BodyFixture)
	if err != nil {
		return fmt.Errorf("fixture pose: %w", err)
	}

	wps := fastenerpose.FixtureWaypoints(*r.state.Frame, fixture.Position, r.synth)
	drawWaypoints(r, "fixture_seat", wps)

	if err := r.moveThroughWaypoints(ctx, wps); err != nil {
		return fmt.Errorf("fixture approach: %w", err)
	}

	if err := r.gripper.Open(ctx, nil); err != nil {
		return fmt.Errorf("release nut: %w", err)
	}

	r.logger.Info("Nut seated in fixture")
	return nil
}
