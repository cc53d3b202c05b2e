package model

// Role represents user roles in the system
type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Code        string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // MASTER_ADMIN, ADMIN, SUPERVISOR, OPERATOR
	Name        string      `gorm:"type:varchar(100)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Privileges  []Privilege `gorm:"many2many:role_privileges;" json:"privileges,omitempty"`
}

// Role codes as constants, ordered from most to least privileged
const (
	RoleMasterAdmin = "MASTER_ADMIN"
	RoleAdmin       = "ADMIN"
	RoleSupervisor  = "SUPERVISOR"
	RoleOperator    = "OPERATOR"
)

// DefaultRoles defines the four-tier role hierarchy
var DefaultRoles = []Role{
	{
		Code:        RoleMasterAdmin,
		Name:        "Master Administrator",
		Description: "Full system access with all privileges",
	},
	{
		Code:        RoleAdmin,
		Name:        "Administrator",
		Description: "Full catalog and order access, no user management",
	},
	{
		Code:        RoleSupervisor,
		Name:        "Supervisor",
		Description: "Manages orders and clients within the assigned section",
	},
	{
		Code:        RoleOperator,
		Name:        "Operator",
		Description: "Read-only access plus point-of-sale operations",
	},
}
