package attestation

import (
	"time"

	"gorm.io/datatypes"
)

type Campaign struct {
	ID                       int64                      `gorm:"primaryKey"`
	Name                     string                     `gorm:"column:name;not null"`
	Description              string                     `gorm:"column:description"`
	StartDate                time.Time                  `gorm:"column:start_date;not null"`
	EndDate                  *time.Time                 `gorm:"column:end_date"`
	Status                   string                     `gorm:"column:status;not null;default:draft;index"`
	TargetType               string                     `gorm:"column:target_type;not null;default:all"`
	TargetCompanyIDs         datatypes.JSONSlice[int64] `gorm:"column:target_company_ids"`
	ReminderDays             int                        `gorm:"column:reminder_days;not null"`
	EscalationDays           int                        `gorm:"column:escalation_days;not null"`
	UnregisteredReminderDays int                        `gorm:"column:unregistered_reminder_days;not null"`
	CreatedBy                *int64                     `gorm:"column:created_by"`
	LaunchedAt               *time.Time                 `gorm:"column:launched_at"`
	ClosedAt                 *time.Time                 `gorm:"column:closed_at"`
	CreatedAt                time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Campaign) TableName() string {
	return "attestation_campaigns"
}

type Record struct {
	ID               int64      `gorm:"primaryKey"`
	CampaignID       int64      `gorm:"column:campaign_id;not null;uniqueIndex:idx_attestation_records_campaign_user"`
	UserID           int64      `gorm:"column:user_id;not null;uniqueIndex:idx_attestation_records_campaign_user;index"`
	Status           string     `gorm:"column:status;not null;default:pending"`
	StartedAt        *time.Time `gorm:"column:started_at"`
	CompletedAt      *time.Time `gorm:"column:completed_at"`
	ReminderSentAt   *time.Time `gorm:"column:reminder_sent_at"`
	EscalationSentAt *time.Time `gorm:"column:escalation_sent_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	Campaign         *Campaign  `gorm:"foreignKey:CampaignID"`
}

func (Record) TableName() string {
	return "attestation_records"
}

type PendingInvite struct {
	ID                int64      `gorm:"primaryKey"`
	CampaignID        int64      `gorm:"column:campaign_id;not null;uniqueIndex:idx_attestation_invites_campaign_email"`
	EmployeeEmail     string     `gorm:"column:employee_email;not null;uniqueIndex:idx_attestation_invites_campaign_email"`
	EmployeeFirstName string     `gorm:"column:employee_first_name"`
	EmployeeLastName  string     `gorm:"column:employee_last_name"`
	InviteToken       string     `gorm:"column:invite_token;not null;uniqueIndex"`
	ReminderSentAt    *time.Time `gorm:"column:reminder_sent_at"`
	EscalationSentAt  *time.Time `gorm:"column:escalation_sent_at"`
	RegisteredAt      *time.Time `gorm:"column:registered_at"`
	ConvertedRecordID *int64     `gorm:"column:converted_record_id"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	Campaign          *Campaign  `gorm:"foreignKey:CampaignID"`
}

func (PendingInvite) TableName() string {
	return "attestation_pending_invites"
}

type NewAsset struct {
	ID           int64     `gorm:"primaryKey"`
	RecordID     int64     `gorm:"column:attestation_record_id;not null;index"`
	AssetType    string    `gorm:"column:asset_type;not null"`
	Make         string    `gorm:"column:make"`
	Model        string    `gorm:"column:model"`
	SerialNumber *string   `gorm:"column:serial_number"`
	AssetTag     *string   `gorm:"column:asset_tag"`
	CompanyID    *int64    `gorm:"column:company_id"`
	Notes        string    `gorm:"column:notes"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (NewAsset) TableName() string {
	return "attestation_new_assets"
}
