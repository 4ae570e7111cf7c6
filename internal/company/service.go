package company

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/asset-attestation/internal/audit"
	companyDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/company"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context) ([]*companyDatamodel.Company, error)
	GetByID(ctx context.Context, id int64) (*companyDatamodel.Company, error)
	GetByName(ctx context.Context, name string) (*companyDatamodel.Company, error)
	Create(ctx context.Context, c *companyDatamodel.Company) error
	Update(ctx context.Context, c *companyDatamodel.Company) error
	Delete(ctx context.Context, id int64) error
}

// AssetCounter reports how many assets reference a company.
type AssetCounter interface {
	CountByCompany(ctx context.Context, companyID int64) (int64, error)
}

type AuditLogger interface {
	Record(ctx context.Context, entry audit.Entry)
}

type Service struct {
	repo   RepositoryAPI
	assets AssetCounter
	audit  AuditLogger
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, assets AssetCounter, auditLogger AuditLogger, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		assets: assets,
		audit:  auditLogger,
		logger: logger,
	}
}

func (s *Service) List(ctx context.Context) ([]*Company, error) {
	companies, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Error("failed to get companies from repository", "error", err)
		return nil, err
	}
	return FromDataModelSlice(companies), nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Company, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(c), nil
}

func (s *Service) Create(ctx context.Context, dto CompanyDTO) (*Company, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(dto.Name)
	if err := s.ensureNameFree(ctx, name, 0); err != nil {
		return nil, err
	}

	c := &companyDatamodel.Company{Name: name, Description: strings.TrimSpace(dto.Description)}
	if err := s.repo.Create(ctx, c); err != nil {
		s.logger.Error("failed to create company", "error", err, "name", name)
		return nil, err
	}

	s.logger.Info("company created", "company_id", c.ID, "name", name)
	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionCreate,
		EntityType: audit.EntityCompany,
		EntityID:   c.ID,
		EntityName: c.Name,
	})
	return FromDataModel(c), nil
}

func (s *Service) Update(ctx context.Context, id int64, dto CompanyDTO) (*Company, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(dto.Name)
	if err := s.ensureNameFree(ctx, name, id); err != nil {
		return nil, err
	}

	previous := c.Name
	c.Name = name
	c.Description = strings.TrimSpace(dto.Description)
	if err := s.repo.Update(ctx, c); err != nil {
		s.logger.Error("failed to update company", "error", err, "company_id", id)
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: audit.EntityCompany,
		EntityID:   id,
		EntityName: c.Name,
		Details:    map[string]any{"previous_name": previous},
	})
	return FromDataModel(c), nil
}

// Delete refuses while any asset still references the company.
func (s *Service) Delete(ctx context.Context, id int64) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	inUse, err := s.assets.CountByCompany(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count company assets: %w", err)
	}
	if inUse > 0 {
		s.logger.Warn("refusing to delete company with assets", "company_id", id, "asset_count", inUse)
		return ErrCompanyInUse
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete company", "error", err, "company_id", id)
		return err
	}

	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionDelete,
		EntityType: audit.EntityCompany,
		EntityID:   id,
		EntityName: c.Name,
	})
	return nil
}

func (s *Service) ensureNameFree(ctx context.Context, name string, excludeID int64) error {
	existing, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to look up company by name: %w", err)
	}
	if existing != nil && existing.ID != excludeID {
		return ErrDuplicateCompany
	}
	return nil
}
