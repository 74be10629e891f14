package user

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"    // HR administrator - full access
	RoleManager  Role = "manager"  // Can review leave requests
	RoleEmployee Role = "employee" // Regular employee
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

type User struct {
	ID                    string
	FullName              string
	Email                 string
	Role                  Role
	IsActive              bool
	FullLeaveBalance      float64
	MedicalLeaveBalance   float64
	MaternityLeaveBalance float64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IsAdmin checks if user is an administrator
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanApprove checks if user can review leave requests
func (u *User) CanApprove() bool {
	return HasPermission(u.Role, PermissionLeaveApprove)
}

// TracksAttendance reports whether the finalizer and penalty engine cover this user.
func (u *User) TracksAttendance() bool {
	return u.IsActive && u.Role == RoleEmployee
}
