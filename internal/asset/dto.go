package asset

import (
	"github.com/frahmantamala/asset-attestation/internal"
	"github.com/frahmantamala/asset-attestation/internal/core/common/validation"
)

type CreateAssetDTO struct {
	EmployeeFirstName string  `json:"employee_first_name"`
	EmployeeLastName  string  `json:"employee_last_name"`
	EmployeeEmail     string  `json:"employee_email"`
	ManagerFirstName  string  `json:"manager_first_name"`
	ManagerLastName   string  `json:"manager_last_name"`
	ManagerEmail      string  `json:"manager_email"`
	CompanyID         *int64  `json:"company_id,omitempty"`
	AssetType         string  `json:"asset_type"`
	Make              string  `json:"make"`
	Model             string  `json:"model"`
	SerialNumber      *string `json:"serial_number,omitempty"`
	AssetTag          *string `json:"asset_tag,omitempty"`
	Status            string  `json:"status"`
	Notes             string  `json:"notes"`
}

func (dto CreateAssetDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("employee_email", dto.EmployeeEmail).Required().Email()
	v.Field("manager_email", dto.ManagerEmail).Email()
	v.Field("asset_type", dto.AssetType).Required().MaxLength(100)
	v.Field("status", dto.Status).OneOf(internal.ErrCodeInvalidStatus, Statuses...)
	v.Field("notes", dto.Notes).MaxLength(2000)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateAssetDTO carries a full replacement of the editable asset fields.
type UpdateAssetDTO = CreateAssetDTO

type UpdateStatusDTO struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

func (dto UpdateStatusDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("status", dto.Status).Required().OneOf(internal.ErrCodeInvalidStatus, Statuses...)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type ListAssetsResponse struct {
	Assets []*Asset `json:"assets"`
	Count  int      `json:"count"`
}
