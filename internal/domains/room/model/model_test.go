package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hostel/internal/domains/room/model"
)

func TestComputeStatus(t *testing.T) {
	tests := []struct {
		name        string
		occupants   int
		maintenance bool
		want        string
	}{
		{
			name:      "empty room is available",
			occupants: 0,
			want:      model.StatusAvailable,
		},
		{
			name:      "occupied room",
			occupants: 2,
			want:      model.StatusOccupied,
		},
		{
			name:        "maintenance overrides empty",
			occupants:   0,
			maintenance: true,
			want:        model.StatusMaintenance,
		},
		{
			name:        "maintenance overrides occupancy",
			occupants:   3,
			maintenance: true,
			want:        model.StatusMaintenance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, model.ComputeStatus(tt.occupants, tt.maintenance))
		})
	}
}
