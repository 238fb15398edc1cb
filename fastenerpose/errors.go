package fastenerpose

import "errors"

var (
	// ErrDegenerateAxis is returned when the general basis construction is
	// attempted with a nut axis nearly parallel to world up, where the cross
	// product vanishes. The face-up branch exists to avoid this; reaching it
	// means the input must change, not be renormalized.
	ErrDegenerateAxis = errors.New("nut axis nearly parallel to world up")

	// ErrNotUnitQuaternion is returned when a sensed orientation's norm is
	// too far from 1 to trust.
	ErrNotUnitQuaternion = errors.New("orientation is not a unit quaternion")
)
