package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/cold-autoscaler/internal/policy"
	"github.com/OldStager01/cold-autoscaler/pkg/validation"
)

func TestOnceTrigger(t *testing.T) {
	tests := []struct {
		name        string
		action      string
		targetNodes int
		wantAction  policy.Action
		wantErr     string
	}{
		{name: "auto", action: "auto", wantAction: policy.ActionAuto},
		{name: "up with nodes", action: "up", targetNodes: 3, wantAction: policy.ActionUp},
		{name: "down", action: "down", wantAction: policy.ActionDown},
		{name: "unknown action", action: "sideways", wantErr: "unknown action"},
		{name: "negative nodes", action: "up", targetNodes: -1, wantErr: "negative"},
		{name: "too many nodes", action: "up", targetNodes: validation.MaxNodeCount + 1, wantErr: "cannot exceed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger, err := onceTrigger(tt.action, tt.targetNodes)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, trigger.Action)
			assert.Equal(t, tt.targetNodes, trigger.TargetNodes)
		})
	}
}
