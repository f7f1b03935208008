package domain

import "time"

// Role enumerates what a user may do with tickets.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleSupervisor Role = "supervisor"
	RoleLeader     Role = "leader"
	RoleTechnician Role = "technician"
	RoleRequester  Role = "requester"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleSupervisor, RoleLeader, RoleTechnician, RoleRequester:
		return true
	}
	return false
}

// User is an account that files or works tickets.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Fullname     string
	Role         Role
	CreatedAt    time.Time
}

// DisplayName is the name stamped onto tickets.
func (u *User) DisplayName() string {
	if u.Fullname != "" {
		return u.Fullname
	}
	return u.Username
}

func (u *User) IsSuperAdmin() bool {
	return u != nil && u.Role == RoleSuperAdmin
}

func (u *User) IsSupervisor() bool {
	return u != nil && (u.Role == RoleSupervisor || u.IsSuperAdmin())
}

func (u *User) IsLeader() bool {
	return u != nil && (u.Role == RoleLeader || u.IsSuperAdmin())
}

func (u *User) IsTechnician() bool {
	return u != nil && (u.Role == RoleTechnician || u.IsLeader())
}

// IsRequesterOf reports whether u may confirm work done on t.
func (u *User) IsRequesterOf(t *Ticket) bool {
	if u == nil {
		return false
	}
	return u.Role == RoleRequester || u.Username == t.Requester || u.IsSuperAdmin()
}

// CanFileTickets reports whether u may create tickets.
func (u *User) CanFileTickets() bool {
	return u != nil && (u.Role == RoleRequester || u.IsSuperAdmin())
}
