package authority

import "strings"

// Role is the single application-wide role carried by each user account.
type Role string

const (
	RoleAdministrator Role = "Administrator"
	RoleTaskExecutor  Role = "TaskExecutor"
	RoleStandardUser  Role = "StandardUser"
)

var allRoles = []Role{RoleAdministrator, RoleTaskExecutor, RoleStandardUser}

func ParseRole(raw string) (Role, bool) {
	for _, r := range allRoles {
		if strings.EqualFold(string(r), raw) {
			return r, true
		}
	}
	return "", false
}

func (r Role) IsAdministrator() bool {
	return r == RoleAdministrator
}

// CanExecuteTasks reports whether the role may be assigned to and work on tasks.
func (r Role) CanExecuteTasks() bool {
	return r == RoleAdministrator || r == RoleTaskExecutor
}
