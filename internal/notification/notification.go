package notification

import (
	"context"
	"strings"
	"time"
)

// Person is a notification recipient or the subject of an escalation.
type Person struct {
	Email     string
	FirstName string
	LastName  string
}

func (p Person) Name() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.Email
	}
	return name
}

type CampaignInfo struct {
	ID        int64
	Name      string
	StartDate time.Time
	EndDate   *time.Time
}

// Sender delivers the attestation notifications. Implementations return an error
// instead of panicking so callers can log and move on.
type Sender interface {
	SendReminder(ctx context.Context, to Person, campaign CampaignInfo) error
	SendEscalation(ctx context.Context, managerEmail string, employee Person, campaign CampaignInfo) error
	SendUnregisteredReminder(ctx context.Context, to Person, campaign CampaignInfo, assetCount int, inviteToken string) error
	SendUnregisteredEscalation(ctx context.Context, managerEmail string, employee Person, campaign CampaignInfo, assetCount int) error
	SendLaunchNotice(ctx context.Context, to Person, campaign CampaignInfo) error
	SendInvite(ctx context.Context, to Person, campaign CampaignInfo, inviteToken string) error
	SendCompletionReceipt(ctx context.Context, to Person, campaign CampaignInfo, assetsCreated int) error
}

type Email struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

// Transport hands a rendered email to a delivery backend.
type Transport interface {
	Send(ctx context.Context, email *Email) error
	Name() string
}
