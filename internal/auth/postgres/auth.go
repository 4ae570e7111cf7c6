package auth

import (
	"context"
	"errors"

	"github.com/frahmantamala/asset-attestation/internal/auth"
	userDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/user"
	coreUser "github.com/frahmantamala/asset-attestation/internal/core/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetCredentials(ctx context.Context, email string) (*auth.Credentials, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).
		Select("id", "email", "role", "password_hash").
		Where("LOWER(email) = ?", coreUser.NormalizeEmail(email)).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &auth.Credentials{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         u.Role,
		PasswordHash: u.PasswordHash,
	}, nil
}

func (r *Repository) GetUser(ctx context.Context, userID int64) (*auth.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).
		Select("id", "email", "role").
		Where("id = ?", userID).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	return &auth.User{ID: u.ID, Email: u.Email, Role: coreUser.MustRole(u.Role)}, nil
}
