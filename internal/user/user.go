package user

import (
	"time"

	"github.com/frahmantamala/asset-attestation/internal"
	userDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/user"
	coreUser "github.com/frahmantamala/asset-attestation/internal/core/user"
)

var (
	ErrUserNotFound   = internal.NewNotFoundError("User not found", internal.ErrCodeUserNotFound)
	ErrDuplicateEmail = internal.NewConflictError("A user with this email already exists", internal.ErrCodeDuplicateEmail)
)

type User struct {
	ID               int64         `json:"id"`
	Email            string        `json:"email"`
	FirstName        string        `json:"first_name"`
	LastName         string        `json:"last_name"`
	Role             coreUser.Role `json:"role"`
	ManagerFirstName string        `json:"manager_first_name"`
	ManagerLastName  string        `json:"manager_last_name"`
	ManagerEmail     string        `json:"manager_email"`
	ProfileComplete  bool          `json:"profile_complete"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func (u *User) FullName() string {
	dm := userDatamodel.User{FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
	return dm.FullName()
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:               u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Role:             coreUser.MustRole(u.Role),
		ManagerFirstName: u.ManagerFirstName,
		ManagerLastName:  u.ManagerLastName,
		ManagerEmail:     u.ManagerEmail,
		ProfileComplete:  u.ProfileComplete,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func FromDataModelSlice(users []*userDatamodel.User) []*User {
	result := make([]*User, len(users))
	for i, u := range users {
		result[i] = FromDataModel(u)
	}
	return result
}

// profileComplete reports whether the fields needed for attestation routing are present.
func profileComplete(u *userDatamodel.User) bool {
	return u.FirstName != "" && u.LastName != "" && u.ManagerEmail != ""
}
