// Package rbac holds the closed role catalog and the permission resolution
// rules built on top of it. The catalog is immutable at runtime; every role
// maps to exactly one hierarchy level and one fixed permission set.
package rbac

import "fmt"

// Role identifies an entry in the closed role enumeration.
type Role string

const (
	RolePlatformSuperAdmin    Role = "platform-super-admin"
	RolePlatformAuditor       Role = "platform-auditor"
	RoleOrgAdmin              Role = "org-admin"
	RoleOrgFinanceController  Role = "org-finance-controller"
	RoleOrgHRAdmin            Role = "org-hr-admin"
	RoleOrgAuditor            Role = "org-auditor"
	RoleOrgViewer             Role = "org-viewer"
	RoleCompanyPayrollAdmin   Role = "company-payroll-admin"
	RoleCompanyHR             Role = "company-hr"
	RoleCompanyViewer         Role = "company-viewer"
	RoleProjectManager        Role = "project-manager"
	RoleProjectPayrollOfficer Role = "project-payroll-officer"
	RoleProjectViewer         Role = "project-viewer"
	RoleSelfUser              Role = "self-user"
	RoleSelfContractor        Role = "self-contractor"
)

// Permission is an opaque capability tag. Permissions are never granted ad
// hoc, only through a role's fixed set.
type Permission string

const (
	PermManagePlatform       Permission = "manage_platform"
	PermManageOrganizations  Permission = "manage_organizations"
	PermManageUsers          Permission = "manage_users"
	PermManageEmployees      Permission = "manage_employees"
	PermManagePayGroups      Permission = "manage_pay_groups"
	PermProcessPayroll       Permission = "process_payroll"
	PermApprovePayroll       Permission = "approve_payroll"
	PermLockPayroll          Permission = "lock_payroll"
	PermForceUnlockPayroll   Permission = "force_unlock_payroll"
	PermViewPayroll          Permission = "view_payroll"
	PermViewFinancialReports Permission = "view_financial_reports"
	PermViewAuditLogs        Permission = "view_audit_logs"
	PermImpersonateUsers     Permission = "impersonate_users"
	PermViewOwnPayslips      Permission = "view_own_payslips"
)

type roleDef struct {
	level int
	perms []Permission
}

var catalog = map[Role]roleDef{
	RolePlatformSuperAdmin: {level: 100, perms: []Permission{
		PermManagePlatform, PermManageOrganizations, PermManageUsers,
		PermManageEmployees, PermManagePayGroups, PermProcessPayroll,
		PermApprovePayroll, PermLockPayroll, PermForceUnlockPayroll,
		PermViewPayroll, PermViewFinancialReports, PermViewAuditLogs,
		PermImpersonateUsers,
	}},
	RolePlatformAuditor: {level: 90, perms: []Permission{
		PermViewPayroll, PermViewFinancialReports, PermViewAuditLogs,
	}},
	RoleOrgAdmin: {level: 80, perms: []Permission{
		PermManageUsers, PermManageEmployees, PermManagePayGroups,
		PermProcessPayroll, PermApprovePayroll, PermLockPayroll,
		PermForceUnlockPayroll, PermViewPayroll, PermViewFinancialReports,
		PermViewAuditLogs,
	}},
	RoleOrgFinanceController: {level: 75, perms: []Permission{
		PermProcessPayroll, PermApprovePayroll, PermLockPayroll,
		PermViewPayroll, PermViewFinancialReports,
	}},
	RoleOrgHRAdmin: {level: 70, perms: []Permission{
		PermManageEmployees, PermManagePayGroups, PermApprovePayroll,
		PermViewPayroll,
	}},
	RoleOrgAuditor: {level: 65, perms: []Permission{
		PermViewPayroll, PermViewFinancialReports, PermViewAuditLogs,
	}},
	RoleOrgViewer: {level: 60, perms: []Permission{
		PermViewPayroll,
	}},
	RoleCompanyPayrollAdmin: {level: 50, perms: []Permission{
		PermManagePayGroups, PermProcessPayroll, PermApprovePayroll,
		PermViewPayroll,
	}},
	RoleCompanyHR: {level: 45, perms: []Permission{
		PermManageEmployees, PermViewPayroll,
	}},
	RoleCompanyViewer: {level: 40, perms: []Permission{
		PermViewPayroll,
	}},
	RoleProjectManager: {level: 30, perms: []Permission{
		PermApprovePayroll, PermViewPayroll,
	}},
	RoleProjectPayrollOfficer: {level: 25, perms: []Permission{
		PermProcessPayroll, PermViewPayroll,
	}},
	RoleProjectViewer: {level: 20, perms: []Permission{
		PermViewPayroll,
	}},
	RoleSelfUser: {level: 10, perms: []Permission{
		PermViewOwnPayslips,
	}},
	RoleSelfContractor: {level: 5, perms: []Permission{
		PermViewOwnPayslips,
	}},
}

// AllRoles returns every role in the catalog.
func AllRoles() []Role {
	roles := make([]Role, 0, len(catalog))
	for role := range catalog {
		roles = append(roles, role)
	}
	return roles
}

// Known reports whether the role exists in the catalog.
func Known(role Role) bool {
	_, ok := catalog[role]
	return ok
}

// Platform reports whether the role operates above organization scope.
func Platform(role Role) bool {
	return role == RolePlatformSuperAdmin || role == RolePlatformAuditor
}

// PermissionsOf returns the fixed permission set of a role. An unknown role
// is a configuration bug, not a runtime fault, and panics rather than
// silently returning an empty set.
func PermissionsOf(role Role) []Permission {
	def, ok := catalog[role]
	if !ok {
		panic(fmt.Sprintf("rbac: unknown role %q", role))
	}
	perms := make([]Permission, len(def.perms))
	copy(perms, def.perms)
	return perms
}

// LevelOf returns the hierarchy level of a role. Panics on unknown roles for
// the same reason as PermissionsOf.
func LevelOf(role Role) int {
	def, ok := catalog[role]
	if !ok {
		panic(fmt.Sprintf("rbac: unknown role %q", role))
	}
	return def.level
}
