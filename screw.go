package nutrunner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.viam.com/rdk/components/arm"
	"go.viam.com/rdk/components/gripper"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/referenceframe"
	goutils "go.viam.com/utils"
)

// ErrNoProgress is returned when the tightening loop exhausts its iteration
// budget before the screw has descended by the progress threshold. It is
// distinct from success: the fastener is not seated.
var ErrNoProgress = errors.New("screw made no progress within iteration budget")

// WristDriver reads and drives the wrist rotation joint. The tightening loop
// owns this joint exclusively while it runs.
type WristDriver interface {
	Angle(ctx context.Context) (float64, error)
	MoveToAngle(ctx context.Context, radians float64) error
}

// GraspActuator opens and closes the gripper around the screw head.
type GraspActuator interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
}

// HeightSampler blocks for the next externally sensed screw height, in meters.
type HeightSampler interface {
	NextHeight(ctx context.Context) (float64, error)
}

// TightenPhase is the state of the tightening loop.
type TightenPhase int

const (
	// PhaseEngage closes the gripper and drives the wrist forward.
	PhaseEngage TightenPhase = iota
	// PhaseReset releases and rewinds a wrist that hit its travel limit.
	// Resets reposition the gripper; they never credit progress.
	PhaseReset
	// PhaseDone means the screw descended by the progress threshold.
	PhaseDone
)

func (p TightenPhase) String() string {
	switch p {
	case PhaseEngage:
		return "engage"
	case PhaseReset:
		return "reset"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// TightenConfig holds the tightening loop parameters. Angles are wrist joint
// values in radians; the threshold is in meters of screw descent.
type TightenConfig struct {
	// ForwardLimitRad is the wrist travel boundary. At or past it, the loop
	// must rewind before it can engage again.
	ForwardLimitRad float64

	// DriveAngleRad is the forward target for each engage cycle.
	DriveAngleRad float64

	// RewindAngleRad is the start-of-swing angle the wrist rewinds to.
	RewindAngleRad float64

	// ProgressThresholdM is the screw descent, relative to the height sampled
	// at loop entry, that counts as fully seated.
	ProgressThresholdM float64

	// SettleDelay is the dwell after closing the gripper, letting the jaws
	// seat on the screw head before torque is applied.
	SettleDelay time.Duration

	// MaxIterations bounds the loop. Exhausting it yields ErrNoProgress.
	MaxIterations int
}

// DefaultTightenConfig returns the parameters tuned for the M8 fixture.
func DefaultTightenConfig() TightenConfig {
	return TightenConfig{
		ForwardLimitRad:    math.Pi / 2,
		DriveAngleRad:      7 * math.Pi / 8,
		RewindAngleRad:     -7 * math.Pi / 8,
		ProgressThresholdM: 0.006,
		SettleDelay:        time.Second,
		MaxIterations:      200,
	}
}

// TightenResult reports what the loop did.
type TightenResult struct {
	Iterations int
	Resets     int
	ProgressM  float64
	Phase      TightenPhase
}

// ScrewController ratchets a threaded fastener home. The wrist has finite
// travel, so tightening alternates engage cycles (grip and turn forward) with
// reset cycles (release and rewind) once the joint reaches its limit, like a
// wrench with a limited swing. Progress is measured externally from the
// screw's sensed descent rather than inferred from wrist motion, since slip
// and re-grip make joint rotation a poor proxy for advancement.
type ScrewController struct {
	wrist  WristDriver
	grip   GraspActuator
	height HeightSampler
	cfg    TightenConfig
	logger logging.Logger
}

// NewScrewController assembles a controller from its capabilities.
func NewScrewController(wrist WristDriver, grip GraspActuator, height HeightSampler, cfg TightenConfig, logger logging.Logger) *ScrewController {
	return &ScrewController{
		wrist:  wrist,
		grip:   grip,
		height: height,
		cfg:    cfg,
		logger: logger,
	}
}

// Run drives the loop until the screw descends by the progress threshold,
// the iteration budget runs out (ErrNoProgress), or the context is cancelled.
// On cancellation the gripper is opened before unwinding so the cell is never
// left holding the screw.
func (c *ScrewController) Run(ctx context.Context) (TightenResult, error) {
	result := TightenResult{Phase: PhaseEngage}

	entryHeight, err := c.height.NextHeight(ctx)
	if err != nil {
		return result, fmt.Errorf("initial height sample: %w", err)
	}
	c.logger.Infof("Tightening: entry height %.4fm, threshold %.4fm, budget %d iterations",
		entryHeight, c.cfg.ProgressThresholdM, c.cfg.MaxIterations)

	for i := 0; i < c.cfg.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			c.releaseOnAbort()
			return result, ctx.Err()
		default:
		}

		angle, err := c.wrist.Angle(ctx)
		if err != nil {
			return result, fmt.Errorf("read wrist angle: %w", err)
		}

		if angle >= c.cfg.ForwardLimitRad {
			result.Phase = PhaseReset
			result.Resets++
			c.logger.Debugf("Wrist at %.3frad >= limit %.3frad; rewinding", angle, c.cfg.ForwardLimitRad)

			if err := c.grip.Open(ctx); err != nil {
				return result, fmt.Errorf("open gripper for rewind: %w", err)
			}
			if err := c.wrist.MoveToAngle(ctx, c.cfg.RewindAngleRad); err != nil {
				return result, fmt.Errorf("rewind wrist: %w", err)
			}
		} else {
			result.Phase = PhaseEngage

			if err := c.grip.Close(ctx); err != nil {
				return result, fmt.Errorf("close gripper: %w", err)
			}
			if c.cfg.SettleDelay > 0 && !goutils.SelectContextOrWait(ctx, c.cfg.SettleDelay) {
				c.releaseOnAbort()
				return result, ctx.Err()
			}
			if err := c.wrist.MoveToAngle(ctx, c.cfg.DriveAngleRad); err != nil {
				return result, fmt.Errorf("drive wrist: %w", err)
			}
		}

		height, err := c.height.NextHeight(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.releaseOnAbort()
			}
			return result, fmt.Errorf("height sample: %w", err)
		}

		result.Iterations++
		result.ProgressM = entryHeight - height
		c.logger.Debugf("Iteration %d (%s): height %.4fm, progress %.4fm",
			result.Iterations, result.Phase, height, result.ProgressM)

		if result.ProgressM >= c.cfg.ProgressThresholdM {
			result.Phase = PhaseDone
			c.logger.Infof("Screw seated: %.4fm descent over %d iterations (%d resets)",
				result.ProgressM, result.Iterations, result.Resets)
			return result, nil
		}
	}

	return result, fmt.Errorf("%w: %.4fm after %d iterations", ErrNoProgress, result.ProgressM, result.Iterations)
}

// releaseOnAbort opens the gripper on a fresh short-lived context so an abort
// never leaves the screw clamped mid-thread.
func (c *ScrewController) releaseOnAbort() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.grip.Open(ctx); err != nil {
		c.logger.Errorf("Failed to release gripper on abort: %v", err)
	}
}

// armWrist adapts a single joint of a Viam arm to the WristDriver capability.
type armWrist struct {
	arm   arm.Arm
	joint int
}

func (w *armWrist) Angle(ctx context.Context) (float64, error) {
	joints, err := w.arm.JointPositions(ctx, nil)
	if err != nil {
		return 0, err
	}
	if w.joint >= len(joints) {
		return 0, fmt.Errorf("arm reports %d joints, wrist index %d out of range", len(joints), w.joint)
	}
	return float64(joints[w.joint]), nil
}

func (w *armWrist) MoveToAngle(ctx context.Context, radians float64) error {
	joints, err := w.arm.JointPositions(ctx, nil)
	if err != nil {
		return err
	}
	if w.joint >= len(joints) {
		return fmt.Errorf("arm reports %d joints, wrist index %d out of range", len(joints), w.joint)
	}
	joints[w.joint] = referenceframe.Input(radians)
	return w.arm.MoveToJointPositions(ctx, joints, nil)
}

// viamGrasp adapts a Viam gripper to the GraspActuator capability, passing
// the screw-head grasp parameters on close.
type viamGrasp struct {
	gripper gripper.Gripper
}

func (g *viamGrasp) Open(ctx context.Context) error {
	return g.gripper.Open(ctx, nil)
}

func (g *viamGrasp) Close(ctx context.Context) error {
	// Grab is fire-and-forget on this hardware; a false return means the
	// jaws closed fully without contact, which the progress check will catch.
	_, err := g.gripper.Grab(ctx, graspExtra())
	return err
}

// wristDriver returns the wrist capability backed by the cell's arm.
func (r *Robot) wristDriver() WristDriver {
	return &armWrist{arm: r.arm, joint: wristJoint}
}

// graspActuator returns the gripper capability backed by the cell's gripper.
func (r *Robot) graspActuator() GraspActuator {
	return &viamGrasp{gripper: r.gripper}
}

// Tighten ratchets the held screw into the seated nut until the height sensor
// confirms full descent. The wrist is rewound to the start of its swing first
// with the gripper open, matching the drive approach.
func Tighten(ctx context.Context, r *Robot) error {
	cfg := DefaultTightenConfig()

	if err := r.graspActuator().Open(ctx); err != nil {
		return fmt.Errorf("open gripper before rewind: %w", err)
	}
	if err := r.wristDriver().MoveToAngle(ctx, cfg.RewindAngleRad); err != nil {
		return fmt.Errorf("rewind wrist to start: %w", err)
	}

	controller := NewScrewController(r.wristDriver(), r.graspActuator(), r.feed, cfg, r.logger)
	result, err := controller.Run(ctx)
	if err != nil {
		return fmt.Errorf("tighten: %w", err)
	}

	r.logger.Infof("Tightening complete: %d iterations, %d resets, %.4fm descent",
		result.Iterations, result.Resets, result.ProgressM)
	return nil
}
