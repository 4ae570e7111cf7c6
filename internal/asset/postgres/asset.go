package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/frahmantamala/asset-attestation/internal/asset"
	assetDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/asset"
	"gorm.io/gorm"
)

// AssetRepository implements the asset repositories using GORM.
type AssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

func (r *AssetRepository) Create(ctx context.Context, a *assetDatamodel.Asset) error {
	err := r.db.WithContext(ctx).Omit("Manager").Create(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return r.duplicateError(ctx, a, err)
	}
	return err
}

func (r *AssetRepository) GetByID(ctx context.Context, id int64) (*assetDatamodel.Asset, error) {
	var a assetDatamodel.Asset
	err := r.db.WithContext(ctx).Preload("Manager").Where("id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, asset.ErrAssetNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AssetRepository) Update(ctx context.Context, a *assetDatamodel.Asset) error {
	a.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Omit("Manager").Save(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return r.duplicateError(ctx, a, err)
	}
	return err
}

// duplicateError names the unique column another asset already holds. The
// driver error does not say which index was hit.
func (r *AssetRepository) duplicateError(ctx context.Context, a *assetDatamodel.Asset, cause error) error {
	if a.SerialNumber != nil {
		if taken, err := r.ExistsBySerial(ctx, *a.SerialNumber, a.ID); err == nil && taken {
			return asset.ErrDuplicateSerial
		}
	}
	if a.AssetTag != nil {
		if taken, err := r.ExistsByAssetTag(ctx, *a.AssetTag, a.ID); err == nil && taken {
			return asset.ErrDuplicateAssetTag
		}
	}
	return cause
}

// UpdateStatus keeps the stored notes when notes is empty.
func (r *AssetRepository) UpdateStatus(ctx context.Context, id int64, status, notes string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if notes != "" {
		updates["notes"] = notes
	}
	return r.db.WithContext(ctx).Model(&assetDatamodel.Asset{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *AssetRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&assetDatamodel.Asset{}, id).Error
}

// List applies the viewer's visibility filter. Owner and manager links by id count
// as matches alongside the email comparison.
func (r *AssetRepository) List(ctx context.Context, filter asset.ListFilter) ([]*assetDatamodel.Asset, error) {
	query := r.db.WithContext(ctx).Preload("Manager").Model(&assetDatamodel.Asset{})

	if !filter.Visibility.All {
		var clauses []string
		var args []interface{}
		if filter.Visibility.OwnerEmail != "" {
			clauses = append(clauses, "LOWER(employee_email) = ?", "owner_id = ?")
			args = append(args, strings.ToLower(filter.Visibility.OwnerEmail), filter.ViewerID)
		}
		if filter.Visibility.ManagerEmail != "" {
			clauses = append(clauses, "LOWER(manager_email) = ?", "manager_id = ?")
			args = append(args, strings.ToLower(filter.Visibility.ManagerEmail), filter.ViewerID)
		}
		if len(clauses) == 0 {
			return []*assetDatamodel.Asset{}, nil
		}
		query = query.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}

	if filter.CompanyID != nil {
		query = query.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var assets []*assetDatamodel.Asset
	err := query.Order("id ASC").Find(&assets).Error
	return assets, err
}

func (r *AssetRepository) ExistsBySerial(ctx context.Context, serial string, excludeID int64) (bool, error) {
	return r.exists(ctx, "serial_number = ?", serial, excludeID)
}

func (r *AssetRepository) ExistsByAssetTag(ctx context.Context, tag string, excludeID int64) (bool, error) {
	return r.exists(ctx, "asset_tag = ?", tag, excludeID)
}

func (r *AssetRepository) exists(ctx context.Context, cond string, value string, excludeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&assetDatamodel.Asset{}).
		Where(cond, value).
		Where("id <> ?", excludeID).
		Count(&count).Error
	return count > 0, err
}

// LinkOwnerByEmail sets owner_id on assets whose employee email matches and whose
// owner is still unlinked.
func (r *AssetRepository) LinkOwnerByEmail(ctx context.Context, email string, userID int64) (int64, error) {
	result := r.db.WithContext(ctx).Model(&assetDatamodel.Asset{}).
		Where("LOWER(employee_email) = LOWER(?) AND owner_id IS NULL", email).
		Updates(map[string]interface{}{
			"owner_id":   userID,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *AssetRepository) LinkManagerByEmail(ctx context.Context, email string, userID int64) (int64, error) {
	result := r.db.WithContext(ctx).Model(&assetDatamodel.Asset{}).
		Where("LOWER(manager_email) = LOWER(?) AND manager_id IS NULL", email).
		Updates(map[string]interface{}{
			"manager_id": userID,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// UpdateManagerForEmployee rewrites the manager fields on every asset of the employee.
// manager_id survives only where the manager email is unchanged.
func (r *AssetRepository) UpdateManagerForEmployee(ctx context.Context, employeeEmail string, ownerID *int64, manager asset.ManagerFields) (int64, error) {
	query := r.db.WithContext(ctx).Model(&assetDatamodel.Asset{})
	switch {
	case employeeEmail != "" && ownerID != nil:
		query = query.Where("LOWER(employee_email) = LOWER(?) OR owner_id = ?", employeeEmail, *ownerID)
	case ownerID != nil:
		query = query.Where("owner_id = ?", *ownerID)
	default:
		query = query.Where("LOWER(employee_email) = LOWER(?)", employeeEmail)
	}

	result := query.Updates(map[string]interface{}{
		"manager_id":         gorm.Expr("CASE WHEN LOWER(manager_email) = LOWER(?) THEN manager_id ELSE NULL END", manager.Email),
		"manager_first_name": manager.FirstName,
		"manager_last_name":  manager.LastName,
		"manager_email":      manager.Email,
		"updated_at":         time.Now(),
	})
	return result.RowsAffected, result.Error
}

func (r *AssetRepository) CountByManagerEmail(ctx context.Context, email string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&assetDatamodel.Asset{}).
		Where("LOWER(manager_email) = LOWER(?)", email).
		Count(&count).Error
	return count, err
}

func (r *AssetRepository) CountByEmployeeEmail(ctx context.Context, email string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&assetDatamodel.Asset{}).
		Where("LOWER(employee_email) = LOWER(?)", email).
		Count(&count).Error
	return count, err
}

func (r *AssetRepository) CountByCompany(ctx context.Context, companyID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&assetDatamodel.Asset{}).
		Where("company_id = ?", companyID).
		Count(&count).Error
	return count, err
}

// ListByEmployee returns the assets held by a user, matched by owner link or email.
func (r *AssetRepository) ListByEmployee(ctx context.Context, email string, ownerID int64) ([]*assetDatamodel.Asset, error) {
	var assets []*assetDatamodel.Asset
	err := r.db.WithContext(ctx).Preload("Manager").
		Where("owner_id = ? OR LOWER(employee_email) = LOWER(?)", ownerID, email).
		Order("id ASC").
		Find(&assets).Error
	return assets, err
}

func (r *AssetRepository) ListByEmployeeEmail(ctx context.Context, email string) ([]*assetDatamodel.Asset, error) {
	var assets []*assetDatamodel.Asset
	err := r.db.WithContext(ctx).Preload("Manager").
		Where("LOWER(employee_email) = LOWER(?)", email).
		Order("id ASC").
		Find(&assets).Error
	return assets, err
}

func (r *AssetRepository) ListByCompanies(ctx context.Context, companyIDs []int64) ([]*assetDatamodel.Asset, error) {
	var assets []*assetDatamodel.Asset
	if len(companyIDs) == 0 {
		return assets, nil
	}
	err := r.db.WithContext(ctx).
		Where("company_id IN ?", companyIDs).
		Order("id ASC").
		Find(&assets).Error
	return assets, err
}

// ListUnowned returns assets with no linked owner.
func (r *AssetRepository) ListUnowned(ctx context.Context) ([]*assetDatamodel.Asset, error) {
	var assets []*assetDatamodel.Asset
	err := r.db.WithContext(ctx).
		Where("owner_id IS NULL").
		Order("id ASC").
		Find(&assets).Error
	return assets, err
}
