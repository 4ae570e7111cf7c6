package attestation

import (
	"time"

	"github.com/frahmantamala/asset-attestation/internal"
	"github.com/frahmantamala/asset-attestation/internal/asset"
	"github.com/frahmantamala/asset-attestation/internal/core/common/validation"
)

// CampaignDTO is used for both create and update. Nil day thresholds fall back
// to the configured defaults on create and are left unchanged on update.
type CampaignDTO struct {
	Name                     string     `json:"name"`
	Description              string     `json:"description"`
	StartDate                time.Time  `json:"start_date"`
	EndDate                  *time.Time `json:"end_date,omitempty"`
	TargetType               string     `json:"target_type"`
	TargetCompanyIDs         []int64    `json:"target_company_ids,omitempty"`
	ReminderDays             *int       `json:"reminder_days,omitempty"`
	EscalationDays           *int       `json:"escalation_days,omitempty"`
	UnregisteredReminderDays *int       `json:"unregistered_reminder_days,omitempty"`
}

func (dto CampaignDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(200)
	v.Field("description", dto.Description).MaxLength(2000)
	v.Field("start_date", dto.StartDate).Required()
	v.Field("end_date", dto.EndDate).Custom(func(interface{}) *internal.AppError {
		if dto.EndDate != nil && !dto.StartDate.IsZero() && !dto.EndDate.After(dto.StartDate) {
			return internal.NewValidationFieldError("end_date", "end_date must be after start_date", internal.ErrCodeInvalidDate)
		}
		return nil
	})
	v.Field("target_type", dto.TargetType).OneOf(internal.ErrCodeInvalidScope, TargetAll, TargetCompanies)
	if dto.TargetType == TargetCompanies {
		v.Field("target_company_ids", dto.TargetCompanyIDs).Required()
	}
	thresholds := []struct {
		name string
		days *int
	}{
		{"reminder_days", dto.ReminderDays},
		{"escalation_days", dto.EscalationDays},
		{"unregistered_reminder_days", dto.UnregisteredReminderDays},
	}
	for _, t := range thresholds {
		if t.days != nil {
			v.Field(t.name, *t.days).MinInt(0, internal.ErrCodeValidationFailed)
		}
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (dto CampaignDTO) targetType() string {
	if dto.TargetType == "" {
		return TargetAll
	}
	return dto.TargetType
}

type NewAssetDTO struct {
	AssetType    string  `json:"asset_type"`
	Make         string  `json:"make"`
	Model        string  `json:"model"`
	SerialNumber *string `json:"serial_number,omitempty"`
	AssetTag     *string `json:"asset_tag,omitempty"`
	CompanyID    *int64  `json:"company_id,omitempty"`
	Notes        string  `json:"notes"`
}

func (dto NewAssetDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("asset_type", dto.AssetType).Required().MaxLength(100)
	v.Field("make", dto.Make).MaxLength(100)
	v.Field("model", dto.Model).MaxLength(100)
	v.Field("notes", dto.Notes).MaxLength(2000)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// AssetStatusDTO is the employee-side status change during an attestation.
type AssetStatusDTO = asset.UpdateStatusDTO

type LaunchResult struct {
	CampaignID     int64 `json:"campaign_id"`
	RecordsCreated int   `json:"records_created"`
	InvitesCreated int   `json:"invites_created"`
	// Relaunched is true when the campaign was already active.
	Relaunched bool `json:"relaunched"`
}

type CompletionResult struct {
	Record        *Record `json:"record"`
	Completed     bool    `json:"completed"`
	AssetsCreated int     `json:"assets_created"`
}

// RecordDetail is what an employee sees while working on an attestation.
type RecordDetail struct {
	Record    *Record        `json:"record"`
	Assets    []*asset.Asset `json:"assets"`
	NewAssets []*NewAsset    `json:"new_assets"`
}

type InviteDetail struct {
	Invite   *PendingInvite `json:"invite"`
	Campaign *Campaign      `json:"campaign"`
}

type Dashboard struct {
	Campaign          *Campaign        `json:"campaign"`
	RecordsByStatus   map[string]int64 `json:"records_by_status"`
	TotalRecords      int64            `json:"total_records"`
	OpenInvites       int64            `json:"open_invites"`
	ConvertedInvites  int64            `json:"converted_invites"`
	CompletionPercent float64          `json:"completion_percent"`
}

type ListCampaignsResponse struct {
	Campaigns []*Campaign `json:"campaigns"`
	Count     int         `json:"count"`
}

type ListRecordsResponse struct {
	Records []*Record `json:"records"`
	Count   int       `json:"count"`
}
