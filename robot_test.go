package nutrunner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/referenceframe"
)

func TestDecodePlanResponse(t *testing.T) {
	validPlan := []map[string][]referenceframe.Input{
		{"arm": {0, -0.785398, 0, -2.356194, 0, 1.570796, 0.785398}},
		{"arm": {0.1, -0.785398, 0, -2.356194, 0, 1.570796, 0.785398}},
	}

	tests := []struct {
		name      string
		resp      map[string]interface{}
		wantSteps int
		wantErr   error
	}{
		{
			name:      "complete plan",
			resp:      map[string]interface{}{"plan": validPlan, "fraction": 1.0},
			wantSteps: 2,
		},
		{
			name:      "no fraction reported",
			resp:      map[string]interface{}{"plan": validPlan},
			wantSteps: 2,
		},
		{
			name:    "partial fraction",
			resp:    map[string]interface{}{"plan": validPlan, "fraction": 0.42},
			wantErr: ErrPartialPlan,
		},
		{
			name:    "empty trajectory",
			resp:    map[string]interface{}{"plan": []map[string][]referenceframe.Input{}},
			wantErr: ErrPartialPlan,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			trajectory, err := decodePlanResponse(tc.resp)
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, trajectory, tc.wantSteps)
		})
	}
}

func TestDecodePlanResponse_MissingPlan(t *testing.T) {
	// A response without a plan is malformed, not partial.
	_, err := decodePlanResponse(map[string]interface{}{"fraction": 1.0})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPartialPlan)
}
