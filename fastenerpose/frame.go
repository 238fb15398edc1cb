package fastenerpose

import (
	"math"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/spatialmath"
	"gonum.org/v1/gonum/num/quat"
)

// BuildFrame converts a sensed nut orientation into an orthonormal grasp
// basis plus the constant set for the presentation it selects.
//
// The nut axis is the third column of the orientation's rotation matrix (the
// most reliably measured axis of the estimate). When that axis is within
// tolerance of world up the nut lies flat and the general construction would
// cross two near-parallel vectors, so a fixed canonical basis and the face-up
// constant set are returned instead. Branch selection depends only on the
// axis projection onto world up.
func BuildFrame(orientation quat.Number, cfg Config) (FrameResult, error) {
	if math.Abs(quat.Abs(orientation)-1) > cfg.Basis.QuatNormTol {
		return FrameResult{}, ErrNotUnitQuaternion
	}
	orientation = spatialmath.Normalize(orientation)

	axis := spatialmath.QuatToRotationMatrix(orientation).Col(2)

	if axis.Dot(cfg.Basis.WorldUp) >= 1-cfg.Basis.FaceUpTolerance {
		return FrameResult{
			Frame: Frame{
				Z: r3.Vector{X: 1, Y: 0, Z: 0},
				X: r3.Vector{X: 0, Y: 1, Z: 0},
				Y: r3.Vector{X: 0, Y: 0, Z: 1},
			},
			Presentation:       PresentedFaceUp,
			GraspOffset:        cfg.FaceUp.GraspOffset,
			FixtureOffsetX:     cfg.FaceUp.FixtureOffsetX,
			FixtureOffsetZ:     cfg.FaceUp.FixtureOffsetZ,
			FixtureOrientation: cfg.FaceUp.FixtureOrientation,
		}, nil
	}

	x, y, err := completeBasis(axis, cfg.Basis.WorldUp, cfg.Basis.MinCrossNorm)
	if err != nil {
		return FrameResult{}, err
	}

	return FrameResult{
		Frame:              Frame{Z: axis, X: x, Y: y},
		Presentation:       PresentedOblique,
		GraspOffset:        cfg.Oblique.GraspOffset,
		FixtureOffsetX:     cfg.Oblique.FixtureOffsetX,
		FixtureOffsetZ:     cfg.Oblique.FixtureOffsetZ,
		FixtureOrientation: cfg.Oblique.FixtureOrientation,
	}, nil
}

// completeBasis constructs x = normalize(z × up) and y = normalize(z × x).
// A cross product with norm below minNorm means z is effectively parallel to
// up; that is a numeric failure to report, never something to renormalize.
func completeBasis(z, up r3.Vector, minNorm float64) (x, y r3.Vector, err error) {
	x = z.Cross(up)
	if x.Norm() < minNorm {
		return r3.Vector{}, r3.Vector{}, ErrDegenerateAxis
	}
	x = x.Normalize()

	y = z.Cross(x)
	if y.Norm() < minNorm {
		return r3.Vector{}, r3.Vector{}, ErrDegenerateAxis
	}
	y = y.Normalize()

	return x, y, nil
}
