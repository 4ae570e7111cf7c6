package company

import (
	"time"

	"github.com/frahmantamala/asset-attestation/internal"
	companyDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/company"
)

var (
	ErrCompanyNotFound  = internal.NewNotFoundError("Company not found", internal.ErrCodeCompanyNotFound)
	ErrDuplicateCompany = internal.NewConflictError("A company with this name already exists", internal.ErrCodeDuplicateCompany)
	ErrCompanyInUse     = internal.NewConflictError("Company still has assets assigned", internal.ErrCodeCompanyInUse)
)

type Company struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func FromDataModel(c *companyDatamodel.Company) *Company {
	return &Company{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func FromDataModelSlice(companies []*companyDatamodel.Company) []*Company {
	result := make([]*Company, len(companies))
	for i, c := range companies {
		result[i] = FromDataModel(c)
	}
	return result
}
