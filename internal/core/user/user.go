package user

import (
	"fmt"
	"strings"
)

// Role is the closed set of user roles. Values outside the set are rejected by ParseRole.
type Role string

const (
	RoleEmployee    Role = "employee"
	RoleManager     Role = "manager"
	RoleAdmin       Role = "admin"
	RoleCoordinator Role = "coordinator"
)

var roles = map[Role]struct{}{
	RoleEmployee:    {},
	RoleManager:     {},
	RoleAdmin:       {},
	RoleCoordinator: {},
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roles[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// MustRole parses a stored role, treating unknown values as employee.
func MustRole(s string) Role {
	r, err := ParseRole(s)
	if err != nil {
		return RoleEmployee
	}
	return r
}

func (r Role) String() string {
	return string(r)
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// CanManageCampaigns reports whether the role may create, launch and close campaigns.
func (r Role) CanManageCampaigns() bool {
	return r == RoleAdmin
}

// CanViewAllAssets reports whether the role sees every asset regardless of ownership.
func (r Role) CanViewAllAssets() bool {
	return r == RoleAdmin || r == RoleCoordinator
}

// PromotableToManager reports whether automatic manager promotion applies.
// Promotion is one way: manager and admin are never touched.
func (r Role) PromotableToManager() bool {
	return r != RoleManager && r != RoleAdmin
}

// AssetVisibility describes which assets a viewer may see.
// All wins over the email filters; otherwise an asset is visible when its employee
// email equals OwnerEmail or its manager email equals ManagerEmail.
type AssetVisibility struct {
	All          bool
	OwnerEmail   string
	ManagerEmail string
}

// VisibleAssetsFor returns the asset filter for a viewer with the given role and email.
func VisibleAssetsFor(role Role, email string) AssetVisibility {
	email = strings.ToLower(strings.TrimSpace(email))
	switch role {
	case RoleAdmin, RoleCoordinator:
		return AssetVisibility{All: true}
	case RoleManager:
		return AssetVisibility{OwnerEmail: email, ManagerEmail: email}
	default:
		return AssetVisibility{OwnerEmail: email}
	}
}

// Visible evaluates the filter for a single asset's employee and manager emails.
func (v AssetVisibility) Visible(employeeEmail, managerEmail string) bool {
	if v.All {
		return true
	}
	if v.OwnerEmail != "" && strings.EqualFold(employeeEmail, v.OwnerEmail) {
		return true
	}
	return v.ManagerEmail != "" && strings.EqualFold(managerEmail, v.ManagerEmail)
}

// NormalizeEmail is the canonical form used for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
