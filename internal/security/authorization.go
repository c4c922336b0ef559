package security

import (
	"fmt"
	"log/slog"
)

// Role represents a user role
type Role string

const (
	RoleHRAdmin  Role = "hr_admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Permission represents an action permission
type Permission string

const (
	PermManageStructure Permission = "manage_structure" // departments, titles, positions
	PermHire            Permission = "hire"
	PermChangeStatus    Permission = "change_status"
	PermDeleteContract  Permission = "delete_contract"
	PermAssignRoles     Permission = "assign_roles"
	PermReadContracts   Permission = "read_contracts"
	PermViewDashboard   Permission = "view_dashboard"
	PermViewOrgChart    Permission = "view_org_chart"
	PermManageAccounts  Permission = "manage_accounts"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleHRAdmin: {
		PermManageStructure,
		PermHire,
		PermChangeStatus,
		PermDeleteContract,
		PermAssignRoles,
		PermReadContracts,
		PermViewDashboard,
		PermViewOrgChart,
		PermManageAccounts,
	},
	RoleManager: {
		PermReadContracts,
		PermViewDashboard,
		PermViewOrgChart,
	},
	RoleEmployee: {
		PermReadContracts,
		PermViewOrgChart,
	},
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}
	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidatePermission validates that a role has a specific permission
func (as *AuthorizationService) ValidatePermission(role Role, permission Permission) error {
	if !as.HasPermission(role, permission) {
		as.logger.Warn("permission denied",
			slog.String("role", string(role)),
			slog.String("permission", string(permission)),
		)
		return fmt.Errorf("permission denied: %s role cannot %s", role, permission)
	}
	return nil
}

// GetRolePermissions returns all permissions for a role
func (as *AuthorizationService) GetRolePermissions(role Role) []Permission {
	return RolePermissions[role]
}

// ValidateRecordAccess checks whether a non-admin may read records about a
// person. Employees and managers only see their own; HR admins see all.
func (as *AuthorizationService) ValidateRecordAccess(role Role, requesterPersonID *int64, targetPersonID int64) error {
	if role == RoleHRAdmin {
		return nil
	}
	if requesterPersonID != nil && *requesterPersonID == targetPersonID {
		return nil
	}
	as.logger.Warn("record access denied",
		slog.String("role", string(role)),
		slog.Int64("target_person_id", targetPersonID),
	)
	return fmt.Errorf("access denied: records belong to another person")
}
