package nutrunner

import (
	"github.com/golang/geo/r3"

	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/referenceframe"
	"go.viam.com/rdk/spatialmath"
)

// Joint positions recorded from the live cell on 2026-06-03.
var (
	// ReadyJoints is the arm's home position between assembly cycles: elbow
	// up, gripper over the center of the work surface.
	ReadyJoints = []referenceframe.Input{
		0.000000, -0.785398, 0.000000, -2.356194, 0.000000, 1.570796, 0.785398,
	}
)

// wristJoint is the index of the rotation joint the tightening loop owns.
const wristJoint = 6

// Grasp parameters for closing on the nut and the screw head.
const (
	graspWidthM   = 0.03
	graspForceN   = 10.0
	graspSpeedMps = 0.05
	graspEpsilonM = 0.01
)

// graspExtra returns the grasp parameters in the form the gripper expects.
func graspExtra() map[string]interface{} {
	return map[string]interface{}{
		"width":   graspWidthM,
		"force":   graspForceN,
		"speed":   graspSpeedMps,
		"epsilon": graspEpsilonM,
	}
}

// Work-surface geometry measured 2026-06-03. The table is modeled as a box
// obstacle so every planned approach clears it.
var (
	tableCenterMm = r3.Vector{X: 500, Y: 0, Z: 200}
	tableDimsMm   = r3.Vector{X: 500, Y: 800, Z: 400}
)

// tableWorldState builds the world state containing the table obstacle.
// Returns nil (no obstacles) if the box cannot be constructed.
func tableWorldState(logger logging.Logger) *referenceframe.WorldState {
	box, err := spatialmath.NewBox(
		spatialmath.NewPoseFromPoint(tableCenterMm),
		tableDimsMm,
		"table",
	)
	if err != nil {
		logger.Warnf("Failed to build table obstacle: %v", err)
		return nil
	}

	geoInFrame := referenceframe.NewGeometriesInFrame("world", []spatialmath.Geometry{box})
	ws, err := referenceframe.NewWorldState([]*referenceframe.GeometriesInFrame{geoInFrame}, nil)
	if err != nil {
		logger.Warnf("Failed to build world state: %v", err)
		return nil
	}
	return ws
}
