package postgres

import (
	"context"

	auditDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/audit"
	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, log *auditDatamodel.Log) error {
	return r.db.WithContext(ctx).Create(log).Error
}
