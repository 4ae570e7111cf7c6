package company

import "github.com/frahmantamala/asset-attestation/internal/core/common/validation"

type CompanyDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (dto CompanyDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(200)
	v.Field("description", dto.Description).MaxLength(1000)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type CompaniesResponse struct {
	Companies []*Company `json:"companies"`
}
