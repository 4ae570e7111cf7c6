package asset

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/asset-attestation/internal"
	"github.com/frahmantamala/asset-attestation/internal/audit"
	assetDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/asset"
	userDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/user"
	coreUser "github.com/frahmantamala/asset-attestation/internal/core/user"
)

// ListFilter narrows an asset listing. Visibility is always applied.
type ListFilter struct {
	Visibility coreUser.AssetVisibility
	ViewerID   int64
	CompanyID  *int64
	Status     string
}

type Repository interface {
	Create(ctx context.Context, a *assetDatamodel.Asset) error
	GetByID(ctx context.Context, id int64) (*assetDatamodel.Asset, error)
	Update(ctx context.Context, a *assetDatamodel.Asset) error
	// UpdateStatus leaves notes untouched when notes is empty.
	UpdateStatus(ctx context.Context, id int64, status, notes string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]*assetDatamodel.Asset, error)
	ExistsBySerial(ctx context.Context, serial string, excludeID int64) (bool, error)
	ExistsByAssetTag(ctx context.Context, tag string, excludeID int64) (bool, error)
}

// UserDirectory is the part of the identity directory the asset layer reads and writes.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	CountByManagerEmail(ctx context.Context, email string) (int64, error)
	PromoteToManager(ctx context.Context, userID int64) (bool, error)
}

type AuditLogger interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Viewer is the authenticated caller an asset operation runs for.
type Viewer struct {
	ID    int64
	Email string
	Role  coreUser.Role
}

type Service struct {
	repo   Repository
	users  UserDirectory
	audit  AuditLogger
	logger *slog.Logger
}

func NewService(repo Repository, users UserDirectory, auditLogger AuditLogger, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		audit:  auditLogger,
		logger: logger,
	}
}

// CreateAsset stores a new asset, linking owner and manager to existing users by email.
func (s *Service) CreateAsset(ctx context.Context, dto CreateAssetDTO) (*Asset, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	serial := normalizeOptional(dto.SerialNumber)
	tag := normalizeOptional(dto.AssetTag)
	if err := s.checkUnique(ctx, serial, tag, 0); err != nil {
		return nil, err
	}

	status := dto.Status
	if status == "" {
		status = StatusActive
	}

	model := &assetDatamodel.Asset{
		EmployeeFirstName: strings.TrimSpace(dto.EmployeeFirstName),
		EmployeeLastName:  strings.TrimSpace(dto.EmployeeLastName),
		EmployeeEmail:     strings.TrimSpace(dto.EmployeeEmail),
		ManagerFirstName:  strings.TrimSpace(dto.ManagerFirstName),
		ManagerLastName:   strings.TrimSpace(dto.ManagerLastName),
		ManagerEmail:      strings.TrimSpace(dto.ManagerEmail),
		CompanyID:         dto.CompanyID,
		AssetType:         strings.TrimSpace(dto.AssetType),
		Make:              strings.TrimSpace(dto.Make),
		Model:             strings.TrimSpace(dto.Model),
		SerialNumber:      serial,
		AssetTag:          tag,
		Status:            status,
		Notes:             dto.Notes,
	}

	var err error
	if model.OwnerID, err = s.resolveUserID(ctx, model.EmployeeEmail); err != nil {
		return nil, err
	}
	if model.ManagerID, err = s.resolveUserID(ctx, model.ManagerEmail); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, model); err != nil {
		s.logger.Error("failed to create asset", "error", err, "employee_email", model.EmployeeEmail)
		return nil, err
	}

	s.logger.Info("asset created",
		"asset_id", model.ID,
		"employee_email", model.EmployeeEmail,
		"owner_linked", model.OwnerID != nil,
		"manager_linked", model.ManagerID != nil)

	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionCreate,
		EntityType: audit.EntityAsset,
		EntityID:   model.ID,
		EntityName: assetName(model),
		Details:    map[string]any{"employee_email": model.EmployeeEmail},
	})

	return s.load(ctx, model.ID)
}

// GetAsset returns an asset the viewer is allowed to see.
func (s *Service) GetAsset(ctx context.Context, viewer Viewer, id int64) (*Asset, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.canSee(viewer, a) {
		s.logger.Warn("unauthorized access to asset", "asset_id", id, "viewer_id", viewer.ID)
		return nil, internal.ErrUnauthorizedAccess
	}
	return a, nil
}

func (s *Service) ListAssets(ctx context.Context, viewer Viewer, companyID *int64, status string) ([]*Asset, error) {
	filter := ListFilter{
		Visibility: coreUser.VisibleAssetsFor(viewer.Role, viewer.Email),
		ViewerID:   viewer.ID,
		CompanyID:  companyID,
		Status:     status,
	}

	assets, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list assets", "error", err, "viewer_id", viewer.ID)
		return nil, err
	}
	return FromDataModelSlice(assets), nil
}

// UpdateAsset replaces the editable fields. owner_id is only re-resolved when the
// employee email changes; manager_id only when the manager email changes.
func (s *Service) UpdateAsset(ctx context.Context, id int64, dto UpdateAssetDTO) (*Asset, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	serial := normalizeOptional(dto.SerialNumber)
	tag := normalizeOptional(dto.AssetTag)
	if err := s.checkUnique(ctx, serial, tag, id); err != nil {
		return nil, err
	}

	employeeEmail := strings.TrimSpace(dto.EmployeeEmail)
	if !strings.EqualFold(existing.EmployeeEmail, employeeEmail) {
		if existing.OwnerID, err = s.resolveUserID(ctx, employeeEmail); err != nil {
			return nil, err
		}
	}

	managerEmail := strings.TrimSpace(dto.ManagerEmail)
	if !strings.EqualFold(existing.ManagerEmail, managerEmail) {
		if existing.ManagerID, err = s.resolveUserID(ctx, managerEmail); err != nil {
			return nil, err
		}
	}

	existing.EmployeeFirstName = strings.TrimSpace(dto.EmployeeFirstName)
	existing.EmployeeLastName = strings.TrimSpace(dto.EmployeeLastName)
	existing.EmployeeEmail = employeeEmail
	existing.ManagerFirstName = strings.TrimSpace(dto.ManagerFirstName)
	existing.ManagerLastName = strings.TrimSpace(dto.ManagerLastName)
	existing.ManagerEmail = managerEmail
	existing.CompanyID = dto.CompanyID
	existing.AssetType = strings.TrimSpace(dto.AssetType)
	existing.Make = strings.TrimSpace(dto.Make)
	existing.Model = strings.TrimSpace(dto.Model)
	existing.SerialNumber = serial
	existing.AssetTag = tag
	existing.Notes = dto.Notes
	if dto.Status != "" {
		existing.Status = dto.Status
	}
	existing.Manager = nil

	if err := s.repo.Update(ctx, existing); err != nil {
		s.logger.Error("failed to update asset", "error", err, "asset_id", id)
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: audit.EntityAsset,
		EntityID:   id,
		EntityName: assetName(existing),
	})

	return s.load(ctx, id)
}

// UpdateAssetStatus lets the owner (or an admin/coordinator) change an asset's status.
func (s *Service) UpdateAssetStatus(ctx context.Context, viewer Viewer, id int64, dto UpdateStatusDTO) (*Asset, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.Role.CanViewAllAssets() && !a.IsOwnedBy(viewer.ID, viewer.Email) {
		return nil, internal.ErrUnauthorizedAccess
	}

	if err := s.repo.UpdateStatus(ctx, id, dto.Status, dto.Notes); err != nil {
		s.logger.Error("failed to update asset status", "error", err, "asset_id", id)
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: audit.EntityAsset,
		EntityID:   id,
		Details:    map[string]any{"status": dto.Status, "previous_status": a.Status},
	})

	return s.load(ctx, id)
}

func (s *Service) DeleteAsset(ctx context.Context, id int64) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete asset", "error", err, "asset_id", id)
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionDelete,
		EntityType: audit.EntityAsset,
		EntityID:   id,
		EntityName: assetName(existing),
	})
	return nil
}

func (s *Service) load(ctx context.Context, id int64) (*Asset, error) {
	model, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(model), nil
}

func (s *Service) canSee(viewer Viewer, a *Asset) bool {
	if a.IsOwnedBy(viewer.ID, viewer.Email) {
		return true
	}
	if viewer.Role == coreUser.RoleManager && a.ManagerID != nil && *a.ManagerID == viewer.ID {
		return true
	}
	return coreUser.VisibleAssetsFor(viewer.Role, viewer.Email).Visible(a.EmployeeEmail, a.ManagerEmail)
}

func (s *Service) checkUnique(ctx context.Context, serial, tag *string, excludeID int64) error {
	if serial != nil {
		exists, err := s.repo.ExistsBySerial(ctx, *serial, excludeID)
		if err != nil {
			return fmt.Errorf("failed to check serial number: %w", err)
		}
		if exists {
			return ErrDuplicateSerial
		}
	}
	if tag != nil {
		exists, err := s.repo.ExistsByAssetTag(ctx, *tag, excludeID)
		if err != nil {
			return fmt.Errorf("failed to check asset tag: %w", err)
		}
		if exists {
			return ErrDuplicateAssetTag
		}
	}
	return nil
}

func (s *Service) resolveUserID(ctx context.Context, email string) (*int64, error) {
	if strings.TrimSpace(email) == "" {
		return nil, nil
	}
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}
	if u == nil {
		return nil, nil
	}
	id := u.ID
	return &id, nil
}

func assetName(a *assetDatamodel.Asset) string {
	name := strings.TrimSpace(a.Make + " " + a.Model)
	if name == "" {
		name = a.AssetType
	}
	if a.SerialNumber != nil {
		name += " (" + *a.SerialNumber + ")"
	}
	return name
}
