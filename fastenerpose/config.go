package fastenerpose

import (
	"math"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/spatialmath"
	"gonum.org/v1/gonum/num/quat"
)

// Config holds all geometry constants for pose synthesis. All lengths are in
// meters and all angles in radians. The branch constant sets and approach
// offsets encode the physical fixture and gripper geometry; they are measured,
// not computed.
type Config struct {
	Basis   BasisConfig
	FaceUp  BranchConfig
	Oblique BranchConfig

	Grasp   ApproachConfig
	Fixture ApproachConfig
	Pickup  ApproachConfig
	Drive   ApproachConfig

	// RetractLiftM is how far the end effector lifts straight up after the
	// screwing phase completes.
	RetractLiftM float64
}

// BasisConfig holds parameters for frame construction from the sensed axis.
type BasisConfig struct {
	WorldUp         r3.Vector // Reference up axis, unit length
	FaceUpTolerance float64   // Axis counts as face-up when axis·up >= 1-tol
	MinCrossNorm    float64   // Below this cross-product norm the basis is degenerate
	QuatNormTol     float64   // Max deviation of |q| from 1 for a sensed orientation
}

// BranchConfig is the constant set selected by a presentation branch.
type BranchConfig struct {
	// GraspOffset is the secondary rotation composed ahead of the
	// frame-derived quaternion.
	GraspOffset quat.Number

	// FixtureOffsetX and FixtureOffsetZ shift the sensed fixture position.
	FixtureOffsetX float64
	FixtureOffsetZ float64

	// FixtureOrientation is the end-effector orientation over the fixture.
	FixtureOrientation quat.Number
}

// ApproachConfig describes a two-waypoint approach: hover at StandoffZ above
// the reference height, then descend by DescentM.
type ApproachConfig struct {
	// StandoffZ is added to the sensed reference z to produce the hover height.
	StandoffZ float64

	// DescentM is how far the second waypoint sits below the first.
	DescentM float64

	// Orientation, when set (non-zero), overrides the synthesized orientation
	// with a fixed one. Used for the screw pickup, where the screw stands
	// upright and no frame construction is needed.
	Orientation quat.Number
}

// Stack-up between the gripper flange and the fingertips: finger length minus
// the washer, shim and compliance pad thicknesses. Shared by the nut grasp and
// the drive approach.
const fingertipStandoffM = 0.155 - (0.0021749 + 0.0058 + 0.001)

// DefaultConfig returns the constants measured for the assembly cell.
func DefaultConfig() Config {
	return Config{
		Basis: BasisConfig{
			WorldUp:         r3.Vector{X: 0, Y: 0, Z: 1},
			FaceUpTolerance: 1e-5,
			MinCrossNorm:    1e-6,
			QuatNormTol:     1e-3,
		},
		FaceUp: BranchConfig{
			GraspOffset:        eulerQuat(math.Pi, 0, -math.Pi/4),
			FixtureOffsetX:     -0.0,
			FixtureOffsetZ:     0.07,
			FixtureOrientation: eulerQuat(math.Pi, 0, math.Pi/4),
		},
		Oblique: BranchConfig{
			GraspOffset:        eulerQuat(0, 0, -math.Pi/4),
			FixtureOffsetX:     -0.1027,
			FixtureOffsetZ:     0,
			FixtureOrientation: eulerQuat(-math.Pi/2, -math.Pi/4, -math.Pi/2),
		},
		Grasp: ApproachConfig{
			StandoffZ: fingertipStandoffM,
			DescentM:  0.05,
		},
		Fixture: ApproachConfig{
			// The fixture z is taken from this standoff alone; the sensed
			// fixture height is ignored because the fixture sits on the table
			// at a known height.
			StandoffZ: 0.57,
			DescentM:  0.07,
		},
		Pickup: ApproachConfig{
			StandoffZ:   0.15,
			DescentM:    0.05,
			Orientation: eulerQuat(math.Pi, 0, -math.Pi/4),
		},
		Drive: ApproachConfig{
			// Nut height plus driver length, minus the fingertip stack-up.
			StandoffZ: 0.03275 + 0.165 - (0.0021749 + 0.0058 + 0.001),
			DescentM:  0.074,
		},
		RetractLiftM: 0.20,
	}
}

// eulerQuat builds a quaternion from roll/pitch/yaw about fixed axes.
func eulerQuat(roll, pitch, yaw float64) quat.Number {
	ea := spatialmath.EulerAngles{Roll: roll, Pitch: pitch, Yaw: yaw}
	return ea.Quaternion()
}
