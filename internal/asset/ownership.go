package asset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/asset-attestation/internal/audit"
	userDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/user"
	coreUser "github.com/frahmantamala/asset-attestation/internal/core/user"
)

// OwnershipRepository holds the asset updates the sync engine relies on. Every
// link update must only touch rows whose link column is still NULL.
type OwnershipRepository interface {
	LinkOwnerByEmail(ctx context.Context, email string, userID int64) (int64, error)
	LinkManagerByEmail(ctx context.Context, email string, userID int64) (int64, error)
	UpdateManagerForEmployee(ctx context.Context, employeeEmail string, ownerID *int64, manager ManagerFields) (int64, error)
	CountByManagerEmail(ctx context.Context, email string) (int64, error)
}

type SyncResult struct {
	OwnerUpdates   int64 `json:"owner_updates"`
	ManagerUpdates int64 `json:"manager_updates"`
}

// Ownership backfills owner_id/manager_id links from email text and promotes
// users who manage assets or people. It never unlinks or reassigns a link.
type Ownership struct {
	assets OwnershipRepository
	users  UserDirectory
	audit  AuditLogger
	logger *slog.Logger
}

func NewOwnership(assets OwnershipRepository, users UserDirectory, auditLogger AuditLogger, logger *slog.Logger) *Ownership {
	return &Ownership{
		assets: assets,
		users:  users,
		audit:  auditLogger,
		logger: logger,
	}
}

// SyncOwnership links unlinked assets to the registered user with the given email.
// With no matching user it is a no-op.
func (o *Ownership) SyncOwnership(ctx context.Context, email string) (SyncResult, error) {
	email = coreUser.NormalizeEmail(email)
	if email == "" {
		return SyncResult{}, nil
	}

	u, err := o.users.FindByEmail(ctx, email)
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to look up user for ownership sync: %w", err)
	}
	if u == nil {
		o.logger.Debug("ownership sync skipped: no registered user", "email", email)
		return SyncResult{}, nil
	}

	owners, err := o.assets.LinkOwnerByEmail(ctx, email, u.ID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to link asset owners: %w", err)
	}

	managers, err := o.assets.LinkManagerByEmail(ctx, email, u.ID)
	if err != nil {
		return SyncResult{OwnerUpdates: owners}, fmt.Errorf("failed to link asset managers: %w", err)
	}

	result := SyncResult{OwnerUpdates: owners, ManagerUpdates: managers}
	if owners > 0 || managers > 0 {
		o.logger.Info("ownership synced",
			"email", email,
			"user_id", u.ID,
			"owner_updates", owners,
			"manager_updates", managers)
	}
	return result, nil
}

// UpdateManagerForEmployee writes the new manager identity onto every asset of the
// employee, matched by email or by owner_id. manager_id is cleared where the manager
// email changed and is left for SyncOwnership to resolve.
func (o *Ownership) UpdateManagerForEmployee(ctx context.Context, employeeEmail string, ownerID *int64, manager ManagerFields) (int64, error) {
	if coreUser.NormalizeEmail(employeeEmail) == "" && ownerID == nil {
		return 0, nil
	}

	updated, err := o.assets.UpdateManagerForEmployee(ctx, employeeEmail, ownerID, manager)
	if err != nil {
		return 0, fmt.Errorf("failed to update manager for employee assets: %w", err)
	}

	o.logger.Info("manager propagated to employee assets",
		"employee_email", employeeEmail,
		"manager_email", manager.Email,
		"assets_updated", updated)
	return updated, nil
}

// PromoteIfManager upgrades u to manager when its email is the manager email of any
// asset or user. Admins and managers are left alone.
func (o *Ownership) PromoteIfManager(ctx context.Context, u *userDatamodel.User) (bool, error) {
	if u == nil || !coreUser.MustRole(u.Role).PromotableToManager() {
		return false, nil
	}

	assetCount, err := o.assets.CountByManagerEmail(ctx, u.Email)
	if err != nil {
		return false, fmt.Errorf("failed to count managed assets: %w", err)
	}

	reportCount := int64(0)
	if assetCount == 0 {
		reportCount, err = o.users.CountByManagerEmail(ctx, u.Email)
		if err != nil {
			return false, fmt.Errorf("failed to count direct reports: %w", err)
		}
	}

	if assetCount == 0 && reportCount == 0 {
		return false, nil
	}

	promoted, err := o.users.PromoteToManager(ctx, u.ID)
	if err != nil {
		return false, fmt.Errorf("failed to promote user to manager: %w", err)
	}
	if !promoted {
		return false, nil
	}

	previous := u.Role
	u.Role = string(coreUser.RoleManager)

	o.logger.Info("user promoted to manager",
		"user_id", u.ID,
		"email", u.Email,
		"previous_role", previous,
		"managed_assets", assetCount)

	o.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionPromote,
		EntityType: audit.EntityUser,
		EntityID:   u.ID,
		EntityName: u.Email,
		Details:    map[string]any{"previous_role": previous, "new_role": u.Role},
	})
	return true, nil
}

// PromoteByEmail runs PromoteIfManager for the registered user with the email, if any.
func (o *Ownership) PromoteByEmail(ctx context.Context, email string) (bool, error) {
	if coreUser.NormalizeEmail(email) == "" {
		return false, nil
	}
	u, err := o.users.FindByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("failed to look up manager: %w", err)
	}
	if u == nil {
		return false, nil
	}
	return o.PromoteIfManager(ctx, u)
}
