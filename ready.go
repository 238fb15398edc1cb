package nutrunner

import (
	"context"
	"fmt"
)

// Ready signals the cell coordinator (when configured), moves the arm to its
// home position, and opens the gripper for the next cycle.
func Ready(ctx context.Context, r *Robot) error {
	if err := r.signalReady(ctx); err != nil {
		return err
	}

	r.logger.Info("Moving arm to ready position")
	if err := r.moveArmToJoints(ctx, ReadyJoints); err != nil {
		return fmt.Errorf("move to ready: %w", err)
	}

	if err := r.gripper.Open(ctx, nil); err != nil {
		return fmt.Errorf("open gripper: %w", err)
	}

	return nil
}
