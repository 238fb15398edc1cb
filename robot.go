package nutrunner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/golang/geo/r3"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/hexbotics/nutrunner/fastenerpose"
	"github.com/hexbotics/nutrunner/internal/creds"
	"go.viam.com/rdk/components/arm"
	"go.viam.com/rdk/components/generic"
	"go.viam.com/rdk/components/gripper"
	"go.viam.com/rdk/components/posetracker"
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/motionplan"
	"go.viam.com/rdk/referenceframe"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/robot"
	"go.viam.com/rdk/services/motion"
	"go.viam.com/rdk/spatialmath"
	goutils "go.viam.com/utils"
)

// motionServiceName is the resource name of the builtin motion service.
const motionServiceName = "builtin"

// ErrPartialPlan is returned when the motion service produces a plan that does
// not reach the requested destination. Executing a partial plan would strand
// the arm somewhere along the approach, so it is surfaced instead of run.
var ErrPartialPlan = errors.New("motion plan does not reach the destination")

// Robot holds all hardware references, services, and state for the assembly cell.
type Robot struct {
	logger  logging.Logger
	machine robot.Robot

	arm     arm.Arm
	gripper gripper.Gripper

	// Perception components: the pose tracker publishes nut/screw/fixture
	// bodies; the height sensor publishes the screw's descent.
	tracker      posetracker.PoseTracker
	heightSensor sensor.Sensor

	// coordinator, when present, is the cell coordinator used for the
	// one-shot readiness handshake. Nil when running standalone.
	coordinator resource.Resource

	motion motion.Service

	feed  PerceptionFeed
	synth fastenerpose.Config

	state *AssemblyState
}

// AssemblyState tracks the state of the current assembly cycle.
type AssemblyState struct {
	// Nut pose estimate and the frame built from it during GraspNut.
	NutEstimate *fastenerpose.PoseEstimate
	Frame       *fastenerpose.FrameResult

	// LastWaypoint is the final commanded waypoint, kept so Retract can lift
	// straight up from wherever the drive approach ended.
	LastWaypoint *fastenerpose.Waypoint

	// Total fasteners assembled this session.
	FastenersAssembled int
}

// NewRobot creates a Robot by looking up all hardware resources from the machine.
// The coordinator is optional; everything else is required.
func NewRobot(ctx context.Context, machine robot.Robot, logger logging.Logger, res creds.Resources) (*Robot, error) {
	res.ApplyDefaults()

	r := &Robot{
		logger:  logger,
		machine: machine,
		synth:   fastenerpose.DefaultConfig(),
		state:   &AssemblyState{},
	}

	armComponent, err := arm.FromProvider(machine, res.Arm)
	if err != nil {
		return nil, fmt.Errorf("arm (%s): %w", res.Arm, err)
	}
	r.arm = armComponent

	gripperComponent, err := gripper.FromProvider(machine, res.Gripper)
	if err != nil {
		return nil, fmt.Errorf("gripper (%s): %w", res.Gripper, err)
	}
	r.gripper = gripperComponent

	tracker, err := posetracker.FromProvider(machine, res.PoseTracker)
	if err != nil {
		return nil, fmt.Errorf("pose tracker (%s): %w", res.PoseTracker, err)
	}
	r.tracker = tracker

	heightSensor, err := sensor.FromProvider(machine, res.HeightSensor)
	if err != nil {
		return nil, fmt.Errorf("height sensor (%s): %w", res.HeightSensor, err)
	}
	r.heightSensor = heightSensor

	motionSvc, err := motion.FromProvider(machine, res.Motion)
	if err != nil {
		return nil, fmt.Errorf("motion service: %w", err)
	}
	r.motion = motionSvc

	if res.Coordinator != "" {
		coordinator, err := generic.FromProvider(machine, res.Coordinator)
		if err != nil {
			logger.Warnf("Coordinator %q not found; running standalone: %v", res.Coordinator, err)
		} else {
			r.coordinator = coordinator
		}
	}

	r.feed = newTrackerFeed(tracker, heightSensor, logger)

	return r, nil
}

// signalReady performs the one-shot readiness handshake with the cell
// coordinator, gating the start of the task sequence. No-op when standalone.
func (r *Robot) signalReady(ctx context.Context) error {
	if r.coordinator == nil {
		return nil
	}
	if _, err := r.coordinator.DoCommand(ctx, map[string]interface{}{"user_ready": true}); err != nil {
		return fmt.Errorf("readiness handshake: %w", err)
	}
	r.logger.Info("Signalled ready to coordinator")
	return nil
}

// moveLinear plans and executes a move to the destination pose under a linear
// constraint. The path stays within 1mm of a straight line and 2 degrees of
// orientation.
func (r *Robot) moveLinear(ctx context.Context, componentName string, dest spatialmath.Pose, worldState *referenceframe.WorldState) error {
	constraints := motionplan.NewConstraints(
		[]motionplan.LinearConstraint{{
			LineToleranceMm:          1.0,
			OrientationToleranceDegs: 2.0,
		}},
		nil, nil, nil,
	)

	return r.planAndExecute(ctx, motion.MoveReq{
		ComponentName: componentName,
		Destination:   referenceframe.NewPoseInFrame("world", dest),
		WorldState:    worldState,
		Constraints:   constraints,
	})
}

// moveFree plans and executes a move to the destination pose with no path
// constraints; the planner chooses the collision-free path.
func (r *Robot) moveFree(ctx context.Context, componentName string, dest spatialmath.Pose, worldState *referenceframe.WorldState) error {
	return r.planAndExecute(ctx, motion.MoveReq{
		ComponentName: componentName,
		Destination:   referenceframe.NewPoseInFrame("world", dest),
		WorldState:    worldState,
	})
}

// moveThroughWaypoints runs a synthesized approach: the hover waypoint is a
// free move, every subsequent waypoint a linear descent. The table obstacle
// is always in the world state.
func (r *Robot) moveThroughWaypoints(ctx context.Context, wps []fastenerpose.Waypoint) error {
	worldState := tableWorldState(r.logger)

	for i, wp := range wps {
		dest := worldPose(wp)
		if i == 0 {
			if err := r.moveFree(ctx, r.arm.Name().Name, dest, worldState); err != nil {
				return fmt.Errorf("waypoint %d: %w", wp.Index, err)
			}
			continue
		}
		if err := r.moveLinear(ctx, r.arm.Name().Name, dest, worldState); err != nil {
			return fmt.Errorf("waypoint %d: %w", wp.Index, err)
		}
	}

	if len(wps) > 0 {
		last := wps[len(wps)-1]
		r.state.LastWaypoint = &last
	}
	return nil
}

// planAndExecute generates a trajectory via DoPlan, verifies it is complete,
// and replays it via DoExecute. Partial plans are never executed.
func (r *Robot) planAndExecute(ctx context.Context, req motion.MoveReq) error {
	trajectory, err := r.doPlan(ctx, req)
	if err != nil {
		return err
	}
	return r.doExecute(ctx, trajectory)
}

// doPlan calls the motion service's DoPlan DoCommand to generate a trajectory
// without executing it. A reported completion fraction below 1 or an empty
// trajectory is a partial plan and comes back as ErrPartialPlan.
func (r *Robot) doPlan(ctx context.Context, req motion.MoveReq) (motionplan.Trajectory, error) {
	proto, err := req.ToProto(motionServiceName)
	if err != nil {
		return nil, fmt.Errorf("build plan proto: %w", err)
	}
	reqBytes, err := protojson.Marshal(proto)
	if err != nil {
		return nil, fmt.Errorf("marshal plan request: %w", err)
	}
	resp, err := r.motion.DoCommand(ctx, map[string]interface{}{
		"plan": string(reqBytes),
	})
	if err != nil {
		return nil, fmt.Errorf("DoPlan: %w", err)
	}
	return decodePlanResponse(resp)
}

// decodePlanResponse validates a DoPlan response and extracts its trajectory.
// A reported completion fraction below 1 or an empty trajectory is a partial
// plan and comes back as ErrPartialPlan.
func decodePlanResponse(resp map[string]interface{}) (motionplan.Trajectory, error) {
	if raw, ok := resp["fraction"]; ok {
		if fraction, ok := raw.(float64); ok && fraction < 1.0 {
			return nil, fmt.Errorf("%w: fraction %.3f", ErrPartialPlan, fraction)
		}
	}

	raw, ok := resp["plan"]
	if !ok {
		return nil, fmt.Errorf("DoPlan response missing 'plan' key")
	}
	var trajectory motionplan.Trajectory
	if err := mapstructure.Decode(raw, &trajectory); err != nil {
		return nil, fmt.Errorf("decode trajectory: %w", err)
	}
	if len(trajectory) == 0 {
		return nil, fmt.Errorf("%w: empty trajectory", ErrPartialPlan)
	}
	return trajectory, nil
}

// doExecute calls the motion service's DoExecute DoCommand to replay a trajectory.
func (r *Robot) doExecute(ctx context.Context, trajectory motionplan.Trajectory) error {
	r.logger.Debugf("doExecute: %d trajectory steps", len(trajectory))

	resp, err := r.motion.DoCommand(ctx, map[string]interface{}{
		"execute": trajectory,
	})
	if err != nil {
		return fmt.Errorf("DoExecute: %w", err)
	}
	if ok, _ := resp["execute"].(bool); !ok {
		return fmt.Errorf("DoExecute returned non-true response: %v", resp["execute"])
	}
	return nil
}

// moveArmToJoints moves the arm directly to joint positions, bypassing the
// motion planner. Used for recorded joint targets with known clear paths.
func (r *Robot) moveArmToJoints(ctx context.Context, joints []referenceframe.Input) error {
	if joints == nil {
		return fmt.Errorf("cannot move to nil joint positions (position not yet recorded)")
	}
	return r.arm.MoveToJointPositions(ctx, joints, nil)
}

// settle waits out a mechanical dwell, honoring cancellation.
func (r *Robot) settle(ctx context.Context, d time.Duration) error {
	if !goutils.SelectContextOrWait(ctx, d) {
		return ctx.Err()
	}
	return nil
}

// worldPose converts a waypoint (meters, world frame) into a millimeter
// world-frame pose for the motion service.
func worldPose(w fastenerpose.Waypoint) spatialmath.Pose {
	aa := spatialmath.QuatToR4AA(w.Orientation)
	return spatialmath.NewPose(
		r3.Vector{X: w.Position.X * 1000, Y: w.Position.Y * 1000, Z: w.Position.Z * 1000},
		aa,
	)
}

// resetState clears per-cycle state for the next fastener.
func (r *Robot) resetState() {
	r.state = &AssemblyState{
		FastenersAssembled: r.state.FastenersAssembled,
	}
}
