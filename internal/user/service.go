package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/asset-attestation/internal/asset"
	"github.com/frahmantamala/asset-attestation/internal/audit"
	userDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/user"
	coreUser "github.com/frahmantamala/asset-attestation/internal/core/user"
)

type Repository interface {
	Create(ctx context.Context, u *userDatamodel.User) error
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	FindByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	Update(ctx context.Context, u *userDatamodel.User) error
	UpdateRole(ctx context.Context, id int64, role string) error
	List(ctx context.Context) ([]*userDatamodel.User, error)
	Count(ctx context.Context) (int64, error)
}

// OwnershipSync is the asset-side half of registration and profile updates.
type OwnershipSync interface {
	SyncOwnership(ctx context.Context, email string) (asset.SyncResult, error)
	UpdateManagerForEmployee(ctx context.Context, employeeEmail string, ownerID *int64, manager asset.ManagerFields) (int64, error)
	PromoteIfManager(ctx context.Context, u *userDatamodel.User) (bool, error)
	PromoteByEmail(ctx context.Context, email string) (bool, error)
}

// InviteConverter turns a new user's pending invites into attestation records.
type InviteConverter interface {
	ConvertPendingInvites(ctx context.Context, u *userDatamodel.User) (int, error)
}

type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

type AuditLogger interface {
	Record(ctx context.Context, entry audit.Entry)
}

type Service struct {
	repo      Repository
	ownership OwnershipSync
	invites   InviteConverter
	hasher    PasswordHasher
	audit     AuditLogger
	logger    *slog.Logger
}

func NewService(repo Repository, ownership OwnershipSync, invites InviteConverter, hasher PasswordHasher, auditLogger AuditLogger, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		ownership: ownership,
		invites:   invites,
		hasher:    hasher,
		audit:     auditLogger,
		logger:    logger,
	}
}

// Register creates an account and runs the registration hooks: ownership sync,
// manager promotion and pending-invite conversion. Hook failures are logged and do
// not undo the registration; the hooks are idempotent and rerun on profile update.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*RegisterResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	email := coreUser.NormalizeEmail(dto.Email)
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	role := coreUser.RoleEmployee
	if count == 0 {
		role = coreUser.RoleAdmin
	}

	model := &userDatamodel.User{
		Email:            email,
		FirstName:        strings.TrimSpace(dto.FirstName),
		LastName:         strings.TrimSpace(dto.LastName),
		PasswordHash:     hash,
		Role:             string(role),
		ManagerFirstName: strings.TrimSpace(dto.ManagerFirstName),
		ManagerLastName:  strings.TrimSpace(dto.ManagerLastName),
		ManagerEmail:     coreUser.NormalizeEmail(dto.ManagerEmail),
	}
	model.ProfileComplete = profileComplete(model)

	if err := s.repo.Create(ctx, model); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", email)
		return nil, err
	}

	s.logger.Info("user registered", "user_id", model.ID, "email", email, "role", model.Role)
	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionRegister,
		EntityType: audit.EntityUser,
		EntityID:   model.ID,
		EntityName: email,
		ActorEmail: email,
	})

	s.runOwnershipHooks(ctx, model)
	if model.ManagerEmail != "" {
		s.propagateManager(ctx, model)
	}

	converted, err := s.invites.ConvertPendingInvites(ctx, model)
	if err != nil {
		s.logger.Error("failed to convert pending invites", "error", err, "user_id", model.ID)
	}

	return &RegisterResponse{
		User:                   FromDataModel(model),
		RedirectToAttestations: converted > 0,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(u), nil
}

func (s *Service) List(ctx context.Context) ([]*User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return FromDataModelSlice(users), nil
}

// UpdateProfile saves names and the manager assignment. A changed manager email is
// pushed onto the user's assets and the new manager is linked and promoted.
func (s *Service) UpdateProfile(ctx context.Context, id int64, dto UpdateProfileDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	model, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	newManagerEmail := coreUser.NormalizeEmail(dto.ManagerEmail)
	managerChanged := !strings.EqualFold(model.ManagerEmail, newManagerEmail) ||
		model.ManagerFirstName != strings.TrimSpace(dto.ManagerFirstName) ||
		model.ManagerLastName != strings.TrimSpace(dto.ManagerLastName)

	model.FirstName = strings.TrimSpace(dto.FirstName)
	model.LastName = strings.TrimSpace(dto.LastName)
	model.ManagerFirstName = strings.TrimSpace(dto.ManagerFirstName)
	model.ManagerLastName = strings.TrimSpace(dto.ManagerLastName)
	model.ManagerEmail = newManagerEmail
	model.ProfileComplete = profileComplete(model)

	if err := s.repo.Update(ctx, model); err != nil {
		s.logger.Error("failed to update profile", "error", err, "user_id", id)
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: audit.EntityUser,
		EntityID:   id,
		EntityName: model.Email,
		Details:    map[string]any{"manager_changed": managerChanged},
	})

	if managerChanged {
		s.propagateManager(ctx, model)
	}
	s.runOwnershipHooks(ctx, model)

	return FromDataModel(model), nil
}

// ChangeRole is the only path that may demote a user.
func (s *Service) ChangeRole(ctx context.Context, id int64, dto ChangeRoleDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	role, err := coreUser.ParseRole(dto.Role)
	if err != nil {
		return nil, err
	}

	model, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := model.Role

	if err := s.repo.UpdateRole(ctx, id, string(role)); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	model.Role = string(role)

	s.logger.Info("user role changed", "user_id", id, "previous_role", previous, "new_role", role)
	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: audit.EntityUser,
		EntityID:   id,
		EntityName: model.Email,
		Details:    map[string]any{"previous_role": previous, "new_role": string(role)},
	})

	return FromDataModel(model), nil
}

func (s *Service) runOwnershipHooks(ctx context.Context, u *userDatamodel.User) {
	if _, err := s.ownership.SyncOwnership(ctx, u.Email); err != nil {
		s.logger.Error("ownership sync failed", "error", err, "user_id", u.ID, "email", u.Email)
	}
	if _, err := s.ownership.PromoteIfManager(ctx, u); err != nil {
		s.logger.Error("manager promotion failed", "error", err, "user_id", u.ID)
	}
}

func (s *Service) propagateManager(ctx context.Context, u *userDatamodel.User) {
	ownerID := u.ID
	manager := asset.ManagerFields{
		FirstName: u.ManagerFirstName,
		LastName:  u.ManagerLastName,
		Email:     u.ManagerEmail,
	}
	if _, err := s.ownership.UpdateManagerForEmployee(ctx, u.Email, &ownerID, manager); err != nil {
		s.logger.Error("failed to propagate manager to assets", "error", err, "user_id", u.ID)
		return
	}
	if manager.Email == "" {
		return
	}
	if _, err := s.ownership.SyncOwnership(ctx, manager.Email); err != nil {
		s.logger.Error("ownership sync for manager failed", "error", err, "manager_email", manager.Email)
	}
	if _, err := s.ownership.PromoteByEmail(ctx, manager.Email); err != nil {
		s.logger.Error("manager promotion failed", "error", err, "manager_email", manager.Email)
	}
}
