package fastenerpose

import (
	"github.com/golang/geo/r3"
	"go.viam.com/rdk/spatialmath"
	"gonum.org/v1/gonum/num/quat"
)

// Presentation identifies which frame construction fired for a sensed nut.
type Presentation int

const (
	// PresentedOblique is the general construction from the sensed axis.
	PresentedOblique Presentation = iota
	// PresentedFaceUp is the canonical fallback used when the nut lies flat
	// with its axis aligned to world up.
	PresentedFaceUp
)

func (p Presentation) String() string {
	switch p {
	case PresentedOblique:
		return "oblique"
	case PresentedFaceUp:
		return "face_up"
	default:
		return "unknown"
	}
}

// PoseEstimate is a single perception sample: sensed position and unit
// orientation in the world frame. Positions are in meters.
type PoseEstimate struct {
	Position    r3.Vector
	Orientation quat.Number
}

// Pose converts the estimate to a spatialmath pose in the same units.
func (e PoseEstimate) Pose() spatialmath.Pose {
	aa := spatialmath.QuatToR4AA(e.Orientation)
	return spatialmath.NewPose(e.Position, aa)
}

// Frame is an orthonormal basis derived from the sensed nut axis.
// Z is the nut axis; X and Y complete the right-handed basis.
type Frame struct {
	Z r3.Vector
	X r3.Vector
	Y r3.Vector
}

// Matrix returns the basis as a rotation matrix with columns stacked Z, X, Y.
// The column order is part of the grasp convention and must not be changed.
func (f Frame) Matrix() (*spatialmath.RotationMatrix, error) {
	return spatialmath.NewRotationMatrix([]float64{
		f.Z.X, f.X.X, f.Y.X,
		f.Z.Y, f.X.Y, f.Y.Y,
		f.Z.Z, f.X.Z, f.Y.Z,
	})
}

// Quaternion converts the basis matrix to a unit quaternion.
func (f Frame) Quaternion() (quat.Number, error) {
	m, err := f.Matrix()
	if err != nil {
		return quat.Number{}, err
	}
	return m.Quaternion(), nil
}

// FrameResult is the output of BuildFrame: the basis plus the constant set
// selected by the presentation branch.
type FrameResult struct {
	Frame        Frame
	Presentation Presentation

	// GraspOffset is the secondary rotation composed ahead of the
	// frame-derived quaternion when synthesizing the grasp orientation.
	GraspOffset quat.Number

	// FixtureOffsetX and FixtureOffsetZ are added to the sensed fixture
	// position; they encode the fixture geometry for this presentation.
	FixtureOffsetX float64
	FixtureOffsetZ float64

	// FixtureOrientation is the end-effector orientation used over the fixture.
	FixtureOrientation quat.Number
}

// Waypoint is a single target pose in an approach path. Waypoints are
// submitted to planning in Index order.
type Waypoint struct {
	Index       int
	Position    r3.Vector
	Orientation quat.Number
}

// Pose converts the waypoint to a spatialmath pose in the same units.
func (w Waypoint) Pose() spatialmath.Pose {
	aa := spatialmath.QuatToR4AA(w.Orientation)
	return spatialmath.NewPose(w.Position, aa)
}
