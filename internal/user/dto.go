package user

import (
	"github.com/frahmantamala/asset-attestation/internal"
	"github.com/frahmantamala/asset-attestation/internal/core/common/validation"
	coreUser "github.com/frahmantamala/asset-attestation/internal/core/user"
)

type RegisterDTO struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	ManagerFirstName string `json:"manager_first_name"`
	ManagerLastName  string `json:"manager_last_name"`
	ManagerEmail     string `json:"manager_email"`
}

func (dto RegisterDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", dto.Email).Required().Email()
	v.Field("password", dto.Password).Required().MinLength(8).MaxLength(72)
	v.Field("first_name", dto.FirstName).Required().MaxLength(100)
	v.Field("last_name", dto.LastName).Required().MaxLength(100)
	v.Field("manager_email", dto.ManagerEmail).Email()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UpdateProfileDTO struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	ManagerFirstName string `json:"manager_first_name"`
	ManagerLastName  string `json:"manager_last_name"`
	ManagerEmail     string `json:"manager_email"`
}

func (dto UpdateProfileDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("first_name", dto.FirstName).Required().MaxLength(100)
	v.Field("last_name", dto.LastName).Required().MaxLength(100)
	v.Field("manager_email", dto.ManagerEmail).Email()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type ChangeRoleDTO struct {
	Role string `json:"role"`
}

func (dto ChangeRoleDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("role", dto.Role).Required().OneOf(internal.ErrCodeValidationFailed,
		string(coreUser.RoleEmployee),
		string(coreUser.RoleManager),
		string(coreUser.RoleAdmin),
		string(coreUser.RoleCoordinator))
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type RegisterResponse struct {
	User *User `json:"user"`
	// RedirectToAttestations is true when a pending invite became an attestation record.
	RedirectToAttestations bool `json:"redirect_to_attestations"`
}

type ListUsersResponse struct {
	Users []*User `json:"users"`
	Count int     `json:"count"`
}
