package creds

import (
	"encoding/json"
	"fmt"
	"os"
)

// RobotCredentials holds the connection details for the assembly cell.
type RobotCredentials struct {
	Address  string `json:"address"`
	EntityID string `json:"entity_id"`
	APIKey   string `json:"api_key"`

	// Resources optionally overrides the cell's component names.
	Resources Resources `json:"resources"`
}

// Resources names the components the orchestrator looks up on the machine.
// Empty fields fall back to the cell defaults; Coordinator stays empty when
// running without an assembly manager.
type Resources struct {
	Arm          string `json:"arm"`
	Gripper      string `json:"gripper"`
	PoseTracker  string `json:"pose_tracker"`
	HeightSensor string `json:"height_sensor"`
	Motion       string `json:"motion"`
	Coordinator  string `json:"coordinator"`
}

// ApplyDefaults fills empty component names with the cell defaults.
func (r *Resources) ApplyDefaults() {
	if r.Arm == "" {
		r.Arm = "arm"
	}
	if r.Gripper == "" {
		r.Gripper = "gripper"
	}
	if r.PoseTracker == "" {
		r.PoseTracker = "fastener-tracker"
	}
	if r.HeightSensor == "" {
		r.HeightSensor = "screw-height"
	}
	if r.Motion == "" {
		r.Motion = "builtin"
	}
}

// Load reads and parses robot credentials from a JSON file.
func Load(path string) (*RobotCredentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	var c RobotCredentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing credentials file: %w", err)
	}
	if c.Address == "" {
		return nil, fmt.Errorf("credentials file %s missing address", path)
	}
	return &c, nil
}
