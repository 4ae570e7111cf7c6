package attestation

import (
	"time"

	"github.com/frahmantamala/asset-attestation/internal"
	attestationDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/attestation"
)

var (
	ErrCampaignNotFound     = internal.NewNotFoundError("attestation campaign not found", internal.ErrCodeCampaignNotFound)
	ErrRecordNotFound       = internal.NewNotFoundError("attestation record not found", internal.ErrCodeRecordNotFound)
	ErrInviteNotFound       = internal.NewNotFoundError("invite not found", internal.ErrCodeInviteNotFound)
	ErrInvalidCampaignState = internal.NewConflictError("operation not allowed in the campaign's current status", internal.ErrCodeInvalidCampaignState)
	ErrRecordCompleted      = internal.NewConflictError("attestation record is already completed", internal.ErrCodeInvalidCampaignState)
	ErrTransferConflict     = internal.NewConflictError("a declared asset has a serial number or asset tag that is already registered", internal.ErrCodeDuplicateSerial)
)

const (
	CampaignStatusDraft     = "draft"
	CampaignStatusActive    = "active"
	CampaignStatusCompleted = "completed"
	CampaignStatusCancelled = "cancelled"

	TargetAll       = "all"
	TargetCompanies = "companies"

	RecordStatusPending    = "pending"
	RecordStatusInProgress = "in_progress"
	RecordStatusCompleted  = "completed"
)

// Marker names a one-time notification column. A marker is claimed with a
// conditional update before sending and released if sending fails.
type Marker string

const (
	MarkerReminder   Marker = "reminder_sent_at"
	MarkerEscalation Marker = "escalation_sent_at"
)

type Campaign struct {
	ID                       int64      `json:"id"`
	Name                     string     `json:"name"`
	Description              string     `json:"description"`
	StartDate                time.Time  `json:"start_date"`
	EndDate                  *time.Time `json:"end_date,omitempty"`
	Status                   string     `json:"status"`
	TargetType               string     `json:"target_type"`
	TargetCompanyIDs         []int64    `json:"target_company_ids"`
	ReminderDays             int        `json:"reminder_days"`
	EscalationDays           int        `json:"escalation_days"`
	UnregisteredReminderDays int        `json:"unregistered_reminder_days"`
	CreatedBy                *int64     `json:"created_by,omitempty"`
	LaunchedAt               *time.Time `json:"launched_at,omitempty"`
	ClosedAt                 *time.Time `json:"closed_at,omitempty"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

func (c *Campaign) IsActive() bool {
	return c.Status == CampaignStatusActive
}

func (c *Campaign) CanBeLaunched() bool {
	return c.Status == CampaignStatusDraft || c.Status == CampaignStatusActive
}

func (c *Campaign) CanBeCancelled() bool {
	return c.Status == CampaignStatusDraft || c.Status == CampaignStatusActive
}

func (c *Campaign) CanBeDeleted() bool {
	return c.Status == CampaignStatusDraft
}

// Expired reports whether an active campaign has passed its end date.
// Campaigns without an end date never expire.
func (c *Campaign) Expired(now time.Time) bool {
	return c.Status == CampaignStatusActive && c.EndDate != nil && c.EndDate.Before(now)
}

type Record struct {
	ID               int64      `json:"id"`
	CampaignID       int64      `json:"campaign_id"`
	UserID           int64      `json:"user_id"`
	Status           string     `json:"status"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ReminderSentAt   *time.Time `json:"reminder_sent_at,omitempty"`
	EscalationSentAt *time.Time `json:"escalation_sent_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Campaign         *Campaign  `json:"campaign,omitempty"`
}

func (r *Record) IsOpen() bool {
	return r.Status == RecordStatusPending || r.Status == RecordStatusInProgress
}

type PendingInvite struct {
	ID                int64      `json:"id"`
	CampaignID        int64      `json:"campaign_id"`
	EmployeeEmail     string     `json:"employee_email"`
	EmployeeFirstName string     `json:"employee_first_name"`
	EmployeeLastName  string     `json:"employee_last_name"`
	ReminderSentAt    *time.Time `json:"reminder_sent_at,omitempty"`
	EscalationSentAt  *time.Time `json:"escalation_sent_at,omitempty"`
	RegisteredAt      *time.Time `json:"registered_at,omitempty"`
	ConvertedRecordID *int64     `json:"converted_record_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	Campaign          *Campaign  `json:"campaign,omitempty"`
}

type NewAsset struct {
	ID           int64     `json:"id"`
	RecordID     int64     `json:"attestation_record_id"`
	AssetType    string    `json:"asset_type"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	SerialNumber *string   `json:"serial_number,omitempty"`
	AssetTag     *string   `json:"asset_tag,omitempty"`
	CompanyID    *int64    `json:"company_id,omitempty"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
}

// ElapsedDays counts whole days between start and now. Dates in the future give zero.
func ElapsedDays(start, now time.Time) int {
	if now.Before(start) {
		return 0
	}
	return int(now.Sub(start).Hours() / 24)
}

func CampaignFromDataModel(c *attestationDatamodel.Campaign) *Campaign {
	if c == nil {
		return nil
	}
	ids := []int64(c.TargetCompanyIDs)
	if ids == nil {
		ids = []int64{}
	}
	return &Campaign{
		ID:                       c.ID,
		Name:                     c.Name,
		Description:              c.Description,
		StartDate:                c.StartDate,
		EndDate:                  c.EndDate,
		Status:                   c.Status,
		TargetType:               c.TargetType,
		TargetCompanyIDs:         ids,
		ReminderDays:             c.ReminderDays,
		EscalationDays:           c.EscalationDays,
		UnregisteredReminderDays: c.UnregisteredReminderDays,
		CreatedBy:                c.CreatedBy,
		LaunchedAt:               c.LaunchedAt,
		ClosedAt:                 c.ClosedAt,
		CreatedAt:                c.CreatedAt,
		UpdatedAt:                c.UpdatedAt,
	}
}

func CampaignsFromDataModel(campaigns []*attestationDatamodel.Campaign) []*Campaign {
	result := make([]*Campaign, len(campaigns))
	for i, c := range campaigns {
		result[i] = CampaignFromDataModel(c)
	}
	return result
}

func RecordFromDataModel(r *attestationDatamodel.Record) *Record {
	return &Record{
		ID:               r.ID,
		CampaignID:       r.CampaignID,
		UserID:           r.UserID,
		Status:           r.Status,
		StartedAt:        r.StartedAt,
		CompletedAt:      r.CompletedAt,
		ReminderSentAt:   r.ReminderSentAt,
		EscalationSentAt: r.EscalationSentAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		Campaign:         CampaignFromDataModel(r.Campaign),
	}
}

func RecordsFromDataModel(records []*attestationDatamodel.Record) []*Record {
	result := make([]*Record, len(records))
	for i, r := range records {
		result[i] = RecordFromDataModel(r)
	}
	return result
}

// InviteFromDataModel never exposes the invite token.
func InviteFromDataModel(i *attestationDatamodel.PendingInvite) *PendingInvite {
	return &PendingInvite{
		ID:                i.ID,
		CampaignID:        i.CampaignID,
		EmployeeEmail:     i.EmployeeEmail,
		EmployeeFirstName: i.EmployeeFirstName,
		EmployeeLastName:  i.EmployeeLastName,
		ReminderSentAt:    i.ReminderSentAt,
		EscalationSentAt:  i.EscalationSentAt,
		RegisteredAt:      i.RegisteredAt,
		ConvertedRecordID: i.ConvertedRecordID,
		CreatedAt:         i.CreatedAt,
		Campaign:          CampaignFromDataModel(i.Campaign),
	}
}

func NewAssetFromDataModel(a *attestationDatamodel.NewAsset) *NewAsset {
	return &NewAsset{
		ID:           a.ID,
		RecordID:     a.RecordID,
		AssetType:    a.AssetType,
		Make:         a.Make,
		Model:        a.Model,
		SerialNumber: a.SerialNumber,
		AssetTag:     a.AssetTag,
		CompanyID:    a.CompanyID,
		Notes:        a.Notes,
		CreatedAt:    a.CreatedAt,
	}
}

func NewAssetsFromDataModel(assets []*attestationDatamodel.NewAsset) []*NewAsset {
	result := make([]*NewAsset, len(assets))
	for i, a := range assets {
		result[i] = NewAssetFromDataModel(a)
	}
	return result
}
