package nutrunner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hexbotics/nutrunner/fastenerpose"
	"go.viam.com/rdk/components/posetracker"
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	goutils "go.viam.com/utils"
)

// Body names published by the perception pipeline.
const (
	BodyNut     = "nut"
	BodyScrew   = "screw_head"
	BodyFixture = "fixture"
	heightKeyMm = "z_mm"
)

// ErrSensorStall is returned when the perception feed produces no usable
// sample within its timeout. A stalled feed must never hang the caller.
var ErrSensorStall = errors.New("perception feed produced no sample")

// PerceptionFeed supplies pose and height samples from the perception
// pipeline. Both calls block until a sample arrives or the stall timeout
// expires. Implementations must be safe to call from a single goroutine;
// the orchestration never polls concurrently.
type PerceptionFeed interface {
	// NextPose returns the next pose estimate for a tracked body, in meters.
	NextPose(ctx context.Context, body string) (fastenerpose.PoseEstimate, error)

	// NextHeight returns the next screw height sample, in meters.
	NextHeight(ctx context.Context) (float64, error)
}

// trackerFeed reads poses from a Viam pose tracker and heights from a sensor
// component, polling until the tracker reports the requested body.
type trackerFeed struct {
	tracker posetracker.PoseTracker
	height  sensor.Sensor
	logger  logging.Logger

	pollInterval time.Duration
	stallTimeout time.Duration
}

func newTrackerFeed(tracker posetracker.PoseTracker, height sensor.Sensor, logger logging.Logger) *trackerFeed {
	return &trackerFeed{
		tracker:      tracker,
		height:       height,
		logger:       logger,
		pollInterval: 100 * time.Millisecond,
		stallTimeout: 30 * time.Second,
	}
}

// NextPose polls the pose tracker until it reports the requested body.
// Tracker poses are in millimeters; the estimate is returned in meters.
func (f *trackerFeed) NextPose(ctx context.Context, body string) (fastenerpose.PoseEstimate, error) {
	deadline := time.Now().Add(f.stallTimeout)

	for {
		poses, err := f.tracker.Poses(ctx, []string{body}, nil)
		if err != nil {
			f.logger.Warnf("Pose tracker error for %q: %v", body, err)
		} else if pif, ok := poses[body]; ok && pif != nil {
			pose := pif.Pose()
			pt := pose.Point()
			return fastenerpose.PoseEstimate{
				Position:    pt.Mul(1e-3),
				Orientation: pose.Orientation().Quaternion(),
			}, nil
		}

		if time.Now().After(deadline) {
			return fastenerpose.PoseEstimate{}, fmt.Errorf("%w: body %q after %v", ErrSensorStall, body, f.stallTimeout)
		}
		if !goutils.SelectContextOrWait(ctx, f.pollInterval) {
			return fastenerpose.PoseEstimate{}, ctx.Err()
		}
	}
}

// NextHeight polls the height sensor for the screw's z reading.
// The sensor publishes millimeters; the sample is returned in meters.
func (f *trackerFeed) NextHeight(ctx context.Context) (float64, error) {
	deadline := time.Now().Add(f.stallTimeout)

	for {
		readings, err := f.height.Readings(ctx, nil)
		if err != nil {
			f.logger.Warnf("Height sensor error: %v", err)
		} else if raw, ok := readings[heightKeyMm]; ok {
			if mm, ok := raw.(float64); ok {
				return mm * 1e-3, nil
			}
			f.logger.Warnf("Height reading %q has unexpected type %T", heightKeyMm, raw)
		}

		if time.Now().After(deadline) {
			return 0, fmt.Errorf("%w: key %q after %v", ErrSensorStall, heightKeyMm, f.stallTimeout)
		}
		if !goutils.SelectContextOrWait(ctx, f.pollInterval) {
			return 0, ctx.Err()
		}
	}
}
