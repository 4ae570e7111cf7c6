package postgres

import (
	"context"
	"errors"
	"time"

	userDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/user"
	coreUser "github.com/frahmantamala/asset-attestation/internal/core/user"
	"github.com/frahmantamala/asset-attestation/internal/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return user.ErrDuplicateEmail
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// FindByEmail matches case-insensitively and returns nil, nil when no user exists.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", coreUser.NormalizeEmail(email)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Update(ctx context.Context, u *userDatamodel.User) error {
	u.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(u).Error
}

func (r *UserRepository) UpdateRole(ctx context.Context, id int64, role string) error {
	return r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"role":       role,
			"updated_at": time.Now(),
		}).Error
}

// PromoteToManager upgrades the role only when it is neither manager nor admin, so
// concurrent promotions update the row at most once.
func (r *UserRepository) PromoteToManager(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("id = ? AND role NOT IN ?", id, []string{string(coreUser.RoleManager), string(coreUser.RoleAdmin)}).
		Updates(map[string]interface{}{
			"role":       string(coreUser.RoleManager),
			"updated_at": time.Now(),
		})
	return result.RowsAffected > 0, result.Error
}

func (r *UserRepository) CountByManagerEmail(ctx context.Context, email string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("LOWER(manager_email) = ?", coreUser.NormalizeEmail(email)).
		Count(&count).Error
	return count, err
}

func (r *UserRepository) List(ctx context.Context) ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error
	return users, err
}

// ListByIDs returns the users with the given ids, in id order.
func (r *UserRepository) ListByIDs(ctx context.Context, ids []int64) ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&users).Error
	return users, err
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Count(&count).Error
	return count, err
}
