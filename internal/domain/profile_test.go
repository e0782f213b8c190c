package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoles(t *testing.T) {
	tests := []struct {
		role    Role
		valid   bool
		seesAll bool
	}{
		{RoleAdmin, true, true},
		{RoleLeader, true, true},
		{RoleObserver, true, false},
		{RoleReader, true, false},
		{Role("guest"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.role.IsValid())
			assert.Equal(t, tt.seesAll, tt.role.SeesAllObservations())
		})
	}

	assert.NotContains(t, RecordingRoles, RoleReader)
}
