package constants

import "fmt"

// Roles carried in app_metadata.role of the access token
const (
	RolePrincipal = "principal"
	RoleTeacher   = "teacher"
)

const (
	ErrOnlyStaffCanAccess     = "Only teachers or the principal may access %s."
	ErrOnlyPrincipalCanAccess = "Only the principal may access %s."
)

func RoleErrorStaff(feature string) string {
	return fmt.Sprintf(ErrOnlyStaffCanAccess, feature)
}

func RoleErrorPrincipal(feature string) string {
	return fmt.Sprintf(ErrOnlyPrincipalCanAccess, feature)
}

var (
	StaffRoles = []string{
		RolePrincipal,
		RoleTeacher,
	}

	PrincipalOnly = []string{
		RolePrincipal,
	}
)
