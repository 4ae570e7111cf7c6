package asset

import (
	"time"

	userDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/user"
)

type Asset struct {
	ID                int64               `gorm:"primaryKey"`
	EmployeeFirstName string              `gorm:"column:employee_first_name"`
	EmployeeLastName  string              `gorm:"column:employee_last_name"`
	EmployeeEmail     string              `gorm:"column:employee_email;not null;index"`
	OwnerID           *int64              `gorm:"column:owner_id;index"`
	ManagerFirstName  string              `gorm:"column:manager_first_name"`
	ManagerLastName   string              `gorm:"column:manager_last_name"`
	ManagerEmail      string              `gorm:"column:manager_email;index"`
	ManagerID         *int64              `gorm:"column:manager_id;index"`
	Manager           *userDatamodel.User `gorm:"foreignKey:ManagerID"`
	CompanyID         *int64              `gorm:"column:company_id;index"`
	AssetType         string              `gorm:"column:asset_type;not null"`
	Make              string              `gorm:"column:make"`
	Model             string              `gorm:"column:model"`
	SerialNumber      *string             `gorm:"column:serial_number;uniqueIndex"`
	AssetTag          *string             `gorm:"column:asset_tag;uniqueIndex"`
	Status            string              `gorm:"column:status;not null;default:active"`
	Notes             string              `gorm:"column:notes"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Asset) TableName() string {
	return "assets"
}
