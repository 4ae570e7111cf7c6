package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeCampaignLaunched     = "campaign.launched"
	EventTypeAttestationCompleted = "attestation.completed"
)

// Recipient is a person to notify. InviteToken is only set for unregistered invitees.
type Recipient struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	InviteToken string `json:"-"`
}

type CampaignLaunchedEvent struct {
	BaseEvent
	CampaignID   int64       `json:"campaign_id"`
	CampaignName string      `json:"campaign_name"`
	StartDate    time.Time   `json:"start_date"`
	EndDate      *time.Time  `json:"end_date,omitempty"`
	Participants []Recipient `json:"participants"`
	Invitees     []Recipient `json:"invitees"`
}

// NewCampaignLaunchedEvent carries only the people added by this launch, so a
// relaunch notifies newcomers and nobody twice.
func NewCampaignLaunchedEvent(campaignID int64, name string, start time.Time, end *time.Time, participants, invitees []Recipient) *CampaignLaunchedEvent {
	return &CampaignLaunchedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeCampaignLaunched,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"campaign_id":  campaignID,
				"participants": len(participants),
				"invitees":     len(invitees),
			},
		},
		CampaignID:   campaignID,
		CampaignName: name,
		StartDate:    start,
		EndDate:      end,
		Participants: participants,
		Invitees:     invitees,
	}
}

type AttestationCompletedEvent struct {
	BaseEvent
	CampaignID    int64     `json:"campaign_id"`
	CampaignName  string    `json:"campaign_name"`
	RecordID      int64     `json:"record_id"`
	UserID        int64     `json:"user_id"`
	Employee      Recipient `json:"employee"`
	AssetsCreated int       `json:"assets_created"`
}

func NewAttestationCompletedEvent(campaignID int64, campaignName string, recordID, userID int64, employee Recipient, assetsCreated int) *AttestationCompletedEvent {
	return &AttestationCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAttestationCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"campaign_id":    campaignID,
				"record_id":      recordID,
				"user_id":        userID,
				"assets_created": assetsCreated,
			},
		},
		CampaignID:    campaignID,
		CampaignName:  campaignName,
		RecordID:      recordID,
		UserID:        userID,
		Employee:      employee,
		AssetsCreated: assetsCreated,
	}
}
