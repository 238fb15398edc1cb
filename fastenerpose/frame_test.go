package fastenerpose

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

const basisTol = 1e-6

func TestBuildFrame_Orthonormal(t *testing.T) {
	cfg := DefaultConfig()

	//nolint:gosec
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		q := randomUnitQuaternion(rng)

		result, err := BuildFrame(q, cfg)
		if err != nil {
			t.Fatalf("BuildFrame failed on sample %d: %v", i, err)
		}

		f := result.Frame
		for _, axis := range []struct {
			name string
			v    r3.Vector
		}{{"z", f.Z}, {"x", f.X}, {"y", f.Y}} {
			if math.Abs(axis.v.Norm()-1) > basisTol {
				t.Errorf("sample %d: |%s| = %.9f, want 1", i, axis.name, axis.v.Norm())
			}
		}

		for _, pair := range []struct {
			name string
			dot  float64
		}{
			{"z·x", f.Z.Dot(f.X)},
			{"z·y", f.Z.Dot(f.Y)},
			{"x·y", f.X.Dot(f.Y)},
		} {
			if math.Abs(pair.dot) > basisTol {
				t.Errorf("sample %d: %s = %.2e, want ~0", i, pair.name, pair.dot)
			}
		}
	}
}

func TestBuildFrame_FaceUpConstants(t *testing.T) {
	cfg := DefaultConfig()

	// Any orientation whose third matrix column is world up must select the
	// face-up branch with the exact constant set, regardless of the rotation
	// about that axis.
	for _, yaw := range []float64{0, 0.7, -2.1, math.Pi} {
		q := eulerQuat(0, 0, yaw)

		result, err := BuildFrame(q, cfg)
		if err != nil {
			t.Fatalf("BuildFrame(yaw=%.2f) failed: %v", yaw, err)
		}

		if result.Presentation != PresentedFaceUp {
			t.Fatalf("yaw=%.2f: presentation = %v, want face_up", yaw, result.Presentation)
		}

		wantFrame := Frame{
			Z: r3.Vector{X: 1, Y: 0, Z: 0},
			X: r3.Vector{X: 0, Y: 1, Z: 0},
			Y: r3.Vector{X: 0, Y: 0, Z: 1},
		}
		if result.Frame != wantFrame {
			t.Errorf("yaw=%.2f: frame = %+v, want canonical basis", yaw, result.Frame)
		}
		if result.FixtureOffsetX != cfg.FaceUp.FixtureOffsetX {
			t.Errorf("fixture x offset = %v, want %v", result.FixtureOffsetX, cfg.FaceUp.FixtureOffsetX)
		}
		if result.FixtureOffsetZ != cfg.FaceUp.FixtureOffsetZ {
			t.Errorf("fixture z offset = %v, want %v", result.FixtureOffsetZ, cfg.FaceUp.FixtureOffsetZ)
		}
		if result.GraspOffset != cfg.FaceUp.GraspOffset {
			t.Errorf("grasp offset = %v, want %v", result.GraspOffset, cfg.FaceUp.GraspOffset)
		}
		if result.FixtureOrientation != cfg.FaceUp.FixtureOrientation {
			t.Errorf("fixture orientation = %v, want %v", result.FixtureOrientation, cfg.FaceUp.FixtureOrientation)
		}
	}
}

func TestBuildFrame_FaceUpOffsetValues(t *testing.T) {
	// The documented face-up offsets: x ≈ -0.0, z ≈ 0.07.
	cfg := DefaultConfig()

	result, err := BuildFrame(quat.Number{Real: 1}, cfg)
	if err != nil {
		t.Fatalf("BuildFrame failed: %v", err)
	}
	if result.FixtureOffsetX != -0.0 {
		t.Errorf("fixture x offset = %v, want -0.0", result.FixtureOffsetX)
	}
	if result.FixtureOffsetZ != 0.07 {
		t.Errorf("fixture z offset = %v, want 0.07", result.FixtureOffsetZ)
	}
}

func TestBuildFrame_ObliqueBranch(t *testing.T) {
	cfg := DefaultConfig()

	// Nut tipped 90 degrees: axis along world x.
	q := eulerQuat(0, math.Pi/2, 0)

	result, err := BuildFrame(q, cfg)
	if err != nil {
		t.Fatalf("BuildFrame failed: %v", err)
	}
	if result.Presentation != PresentedOblique {
		t.Fatalf("presentation = %v, want oblique", result.Presentation)
	}

	if math.Abs(result.Frame.Z.Dot(cfg.Basis.WorldUp)) > 1e-9 {
		t.Errorf("tipped nut axis should be orthogonal to up, dot = %v", result.Frame.Z.Dot(cfg.Basis.WorldUp))
	}
	if result.FixtureOffsetX != cfg.Oblique.FixtureOffsetX {
		t.Errorf("fixture x offset = %v, want %v", result.FixtureOffsetX, cfg.Oblique.FixtureOffsetX)
	}
}

func TestBuildFrame_RejectsNonUnitQuaternion(t *testing.T) {
	cfg := DefaultConfig()

	_, err := BuildFrame(quat.Number{Real: 2}, cfg)
	if !errors.Is(err, ErrNotUnitQuaternion) {
		t.Errorf("expected ErrNotUnitQuaternion, got %v", err)
	}
}

func TestCompleteBasis_DegenerateAxis(t *testing.T) {
	up := r3.Vector{X: 0, Y: 0, Z: 1}

	// An axis effectively parallel to up must be reported, not normalized.
	z := r3.Vector{X: 1e-9, Y: 0, Z: 1}.Normalize()
	_, _, err := completeBasis(z, up, 1e-6)
	if !errors.Is(err, ErrDegenerateAxis) {
		t.Errorf("expected ErrDegenerateAxis, got %v", err)
	}

	// Anti-parallel is just as degenerate.
	z = r3.Vector{X: 0, Y: -1e-9, Z: -1}.Normalize()
	_, _, err = completeBasis(z, up, 1e-6)
	if !errors.Is(err, ErrDegenerateAxis) {
		t.Errorf("expected ErrDegenerateAxis for anti-parallel axis, got %v", err)
	}
}

func TestFrameQuaternion_RotatesBasis(t *testing.T) {
	cfg := DefaultConfig()

	//nolint:gosec
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 50; i++ {
		q := randomUnitQuaternion(rng)
		result, err := BuildFrame(q, cfg)
		if err != nil {
			t.Fatalf("BuildFrame failed: %v", err)
		}

		fq, err := result.Frame.Quaternion()
		if err != nil {
			t.Fatalf("frame quaternion: %v", err)
		}

		// The matrix columns are stacked Z, X, Y, so rotating the first
		// standard basis vector must recover the nut axis.
		got := rotateVector(fq, r3.Vector{X: 1})
		if got.Sub(result.Frame.Z).Norm() > 1e-9 {
			t.Errorf("sample %d: rotated e1 = %v, want %v", i, got, result.Frame.Z)
		}
	}
}

// randomUnitQuaternion draws a uniformly distributed unit quaternion.
func randomUnitQuaternion(rng *rand.Rand) quat.Number {
	u1, u2, u3 := rng.Float64(), rng.Float64()*2*math.Pi, rng.Float64()*2*math.Pi
	a := math.Sqrt(1 - u1)
	b := math.Sqrt(u1)
	return quat.Number{
		Real: a * math.Sin(u2),
		Imag: a * math.Cos(u2),
		Jmag: b * math.Sin(u3),
		Kmag: b * math.Cos(u3),
	}
}

// rotateVector applies the rotation q to v via q·v·q*.
func rotateVector(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}
