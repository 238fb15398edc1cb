package fastenerpose

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose synthesis. Every function here is pure and deterministic: identical
// inputs yield identical waypoints up to floating-point rounding. Synthesized
// waypoints are handed to the motion gateway and discarded.

// GraspOrientation composes the branch grasp offset with the frame-derived
// quaternion. The offset is the leading (outer) rotation; swapping the order
// changes the resulting pose.
func GraspOrientation(fr FrameResult) (quat.Number, error) {
	fq, err := fr.Frame.Quaternion()
	if err != nil {
		return quat.Number{}, err
	}
	return quat.Mul(fr.GraspOffset, fq), nil
}

// GraspWaypoints synthesizes the two-waypoint nut-grasp approach (hover, then
// lower) from a sensed nut pose. The returned FrameResult carries the branch
// constants needed later at the fixture.
func GraspWaypoints(est PoseEstimate, cfg Config) ([]Waypoint, FrameResult, error) {
	fr, err := BuildFrame(est.Orientation, cfg)
	if err != nil {
		return nil, FrameResult{}, err
	}

	orientation, err := GraspOrientation(fr)
	if err != nil {
		return nil, FrameResult{}, err
	}

	hover := est.Position
	hover.Z += cfg.Grasp.StandoffZ
	lower := hover
	lower.Z -= cfg.Grasp.DescentM

	return []Waypoint{
		{Index: 0, Position: hover, Orientation: orientation},
		{Index: 1, Position: lower, Orientation: orientation},
	}, fr, nil
}

// FixtureWaypoints synthesizes the approach that seats the grasped nut in the
// fixture. The sensed fixture height is ignored; the hover height comes from
// the configured standoff plus the branch z offset, since the fixture sits on
// the table at a known height.
func FixtureWaypoints(fr FrameResult, fixturePos r3.Vector, cfg Config) []Waypoint {
	hover := r3.Vector{
		X: fixturePos.X + fr.FixtureOffsetX,
		Y: fixturePos.Y,
		Z: cfg.Fixture.StandoffZ + fr.FixtureOffsetZ,
	}
	lower := hover
	lower.Z -= cfg.Fixture.DescentM

	return []Waypoint{
		{Index: 0, Position: hover, Orientation: fr.FixtureOrientation},
		{Index: 1, Position: lower, Orientation: fr.FixtureOrientation},
	}
}

// PickupWaypoints synthesizes the screw-head pickup approach. The screw
// stands upright in its tray, so the orientation is a fixed constant rather
// than a frame construction.
func PickupWaypoints(screwPos r3.Vector, cfg Config) []Waypoint {
	hover := screwPos
	hover.Z += cfg.Pickup.StandoffZ
	lower := hover
	lower.Z -= cfg.Pickup.DescentM

	return []Waypoint{
		{Index: 0, Position: hover, Orientation: cfg.Pickup.Orientation},
		{Index: 1, Position: lower, Orientation: cfg.Pickup.Orientation},
	}
}

// DriveWaypoints synthesizes the approach that brings the held screw over the
// seated nut before the tightening loop starts. The orientation carries over
// from the pickup; only the standoff differs.
func DriveWaypoints(nutPos r3.Vector, cfg Config) []Waypoint {
	hover := nutPos
	hover.Z += cfg.Drive.StandoffZ
	lower := hover
	lower.Z -= cfg.Drive.DescentM

	return []Waypoint{
		{Index: 0, Position: hover, Orientation: cfg.Pickup.Orientation},
		{Index: 1, Position: lower, Orientation: cfg.Pickup.Orientation},
	}
}

// LiftWaypoint lifts straight up from a waypoint, keeping its orientation.
func LiftWaypoint(from Waypoint, cfg Config) Waypoint {
	pos := from.Position
	pos.Z += cfg.RetractLiftM
	return Waypoint{Index: 0, Position: pos, Orientation: from.Orientation}
}
