package asset

import (
	"strings"
	"time"

	"github.com/frahmantamala/asset-attestation/internal"
	assetDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/asset"
	userDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/user"
)

const (
	StatusActive   = "active"
	StatusReturned = "returned"
	StatusLost     = "lost"
	StatusDamaged  = "damaged"
	StatusRetired  = "retired"
	StatusInRepair = "in_repair"
)

var Statuses = []string{StatusActive, StatusReturned, StatusLost, StatusDamaged, StatusRetired, StatusInRepair}

var (
	ErrAssetNotFound     = internal.NewNotFoundError("Asset not found", internal.ErrCodeAssetNotFound)
	ErrDuplicateSerial   = internal.NewConflictError("An asset with this serial number already exists", internal.ErrCodeDuplicateSerial)
	ErrDuplicateAssetTag = internal.NewConflictError("An asset with this asset tag already exists", internal.ErrCodeDuplicateAssetTag)
)

type Asset struct {
	ID                int64     `json:"id"`
	EmployeeFirstName string    `json:"employee_first_name"`
	EmployeeLastName  string    `json:"employee_last_name"`
	EmployeeEmail     string    `json:"employee_email"`
	OwnerID           *int64    `json:"owner_id,omitempty"`
	ManagerFirstName  string    `json:"manager_first_name"`
	ManagerLastName   string    `json:"manager_last_name"`
	ManagerEmail      string    `json:"manager_email"`
	ManagerID         *int64    `json:"manager_id,omitempty"`
	CompanyID         *int64    `json:"company_id,omitempty"`
	AssetType         string    `json:"asset_type"`
	Make              string    `json:"make"`
	Model             string    `json:"model"`
	SerialNumber      *string   `json:"serial_number,omitempty"`
	AssetTag          *string   `json:"asset_tag,omitempty"`
	Status            string    `json:"status"`
	Notes             string    `json:"notes"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ManagerFields is the manager identity shown for an asset.
type ManagerFields struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func (m ManagerFields) Empty() bool {
	return m.FirstName == "" && m.LastName == "" && m.Email == ""
}

// ResolveManager picks the effective manager identity. A linked user record always
// wins over the denormalized text stored on the asset.
func ResolveManager(denormalized ManagerFields, linked *userDatamodel.User) ManagerFields {
	if linked == nil {
		return denormalized
	}
	return ManagerFields{
		FirstName: linked.FirstName,
		LastName:  linked.LastName,
		Email:     linked.Email,
	}
}

func (a *Asset) IsOwnedBy(userID int64, email string) bool {
	if a.OwnerID != nil && *a.OwnerID == userID {
		return true
	}
	return email != "" && strings.EqualFold(a.EmployeeEmail, email)
}

func IsValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

func ToDataModel(a *Asset) *assetDatamodel.Asset {
	return &assetDatamodel.Asset{
		ID:                a.ID,
		EmployeeFirstName: a.EmployeeFirstName,
		EmployeeLastName:  a.EmployeeLastName,
		EmployeeEmail:     a.EmployeeEmail,
		OwnerID:           a.OwnerID,
		ManagerFirstName:  a.ManagerFirstName,
		ManagerLastName:   a.ManagerLastName,
		ManagerEmail:      a.ManagerEmail,
		ManagerID:         a.ManagerID,
		CompanyID:         a.CompanyID,
		AssetType:         a.AssetType,
		Make:              a.Make,
		Model:             a.Model,
		SerialNumber:      a.SerialNumber,
		AssetTag:          a.AssetTag,
		Status:            a.Status,
		Notes:             a.Notes,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

// FromDataModel converts a stored asset, applying manager resolution when the
// linked manager was loaded alongside it.
func FromDataModel(a *assetDatamodel.Asset) *Asset {
	manager := ResolveManager(ManagerFields{
		FirstName: a.ManagerFirstName,
		LastName:  a.ManagerLastName,
		Email:     a.ManagerEmail,
	}, a.Manager)

	return &Asset{
		ID:                a.ID,
		EmployeeFirstName: a.EmployeeFirstName,
		EmployeeLastName:  a.EmployeeLastName,
		EmployeeEmail:     a.EmployeeEmail,
		OwnerID:           a.OwnerID,
		ManagerFirstName:  manager.FirstName,
		ManagerLastName:   manager.LastName,
		ManagerEmail:      manager.Email,
		ManagerID:         a.ManagerID,
		CompanyID:         a.CompanyID,
		AssetType:         a.AssetType,
		Make:              a.Make,
		Model:             a.Model,
		SerialNumber:      a.SerialNumber,
		AssetTag:          a.AssetTag,
		Status:            a.Status,
		Notes:             a.Notes,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func FromDataModelSlice(assets []*assetDatamodel.Asset) []*Asset {
	result := make([]*Asset, len(assets))
	for i, a := range assets {
		result[i] = FromDataModel(a)
	}
	return result
}

func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
