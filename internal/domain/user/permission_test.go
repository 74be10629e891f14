package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(RoleAdmin, PermissionPenaltyWaive))
	assert.True(t, HasPermission(RoleManager, PermissionLeaveApprove))
	assert.False(t, HasPermission(RoleManager, PermissionAttendanceFinalize))
	assert.True(t, HasPermission(RoleEmployee, PermissionAttendanceCreate))
	assert.False(t, HasPermission(RoleEmployee, PermissionLeaveApprove))
	assert.False(t, HasPermission(Role("guest"), PermissionLeaveViewOwn))
}

func TestUserTracksAttendance(t *testing.T) {
	u := User{Role: RoleEmployee, IsActive: true}
	assert.True(t, u.TracksAttendance())

	u.IsActive = false
	assert.False(t, u.TracksAttendance())

	admin := User{Role: RoleAdmin, IsActive: true}
	assert.False(t, admin.TracksAttendance())
	assert.True(t, admin.IsAdmin())
	assert.True(t, admin.CanApprove())
}
