package authz

import "github.com/batasku/periodgate/internal/platform/httpx"

// forbidden builds the standard authorization failure with the role the
// caller lacked and the roles they hold.
func forbidden(a Actor, required string) error {
	return httpx.Forbidden("insufficient role to perform this action").WithDetails(map[string]any{
		"required_role": required,
		"user_roles":    a.Roles,
	})
}

// CanClose gates the close transition on the configured closing role.
// System Manager always passes.
func CanClose(a Actor, closingRole string) error {
	if closingRole == "" {
		closingRole = RoleAccountsManager
	}
	if a.SystemManager() || a.HasRole(closingRole) {
		return nil
	}
	return forbidden(a, closingRole)
}

// CanReopen gates the reopen transition on the configured reopen role.
func CanReopen(a Actor, reopenRole string) error {
	if reopenRole == "" {
		reopenRole = RoleAccountsManager
	}
	if a.SystemManager() || a.HasRole(reopenRole) {
		return nil
	}
	return forbidden(a, reopenRole)
}

// CanPermanentlyClose restricts the irreversible transition to System
// Manager regardless of configuration.
func CanPermanentlyClose(a Actor) error {
	if a.SystemManager() {
		return nil
	}
	return forbidden(a, RoleSystemManager)
}

// CanModifyConfig allows System Manager and Accounts Manager.
func CanModifyConfig(a Actor) error {
	if a.SystemManager() || a.HasRole(RoleAccountsManager) {
		return nil
	}
	return forbidden(a, RoleAccountsManager)
}

// CanViewAuditLog allows System Manager and Accounts Manager.
func CanViewAuditLog(a Actor) error {
	if a.SystemManager() || a.HasRole(RoleAccountsManager) {
		return nil
	}
	return forbidden(a, RoleAccountsManager)
}
