package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/asset-attestation/internal/attestation"
	"github.com/frahmantamala/asset-attestation/internal/audit"
	assetDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/asset"
	attestationDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/attestation"
	userDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/user"
	"github.com/frahmantamala/asset-attestation/internal/notification"
)

// Store is the slice of the attestation repository the scheduler needs.
type Store interface {
	ListCampaigns(ctx context.Context, status string) ([]*attestationDatamodel.Campaign, error)
	TransitionCampaign(ctx context.Context, id int64, from []string, to string, at time.Time) (bool, error)
	ListOpenRecords(ctx context.Context, campaignID int64) ([]*attestationDatamodel.Record, error)
	ListOpenInvites(ctx context.Context, campaignID int64) ([]*attestationDatamodel.PendingInvite, error)
	ClaimRecordMarker(ctx context.Context, id int64, marker attestation.Marker, at time.Time) (bool, error)
	ReleaseRecordMarker(ctx context.Context, id int64, marker attestation.Marker, at time.Time) error
	ClaimInviteMarker(ctx context.Context, id int64, marker attestation.Marker, at time.Time) (bool, error)
	ReleaseInviteMarker(ctx context.Context, id int64, marker attestation.Marker, at time.Time) error
}

type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
}

type AssetDirectory interface {
	ListByEmployee(ctx context.Context, email string, ownerID int64) ([]*assetDatamodel.Asset, error)
	ListByEmployeeEmail(ctx context.Context, email string) ([]*assetDatamodel.Asset, error)
}

type AuditLogger interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Report counts what one pass did. Failures covers items that will be retried.
type Report struct {
	CampaignsScanned            int
	CampaignsClosed             int
	RemindersSent               int
	EscalationsSent             int
	UnregisteredRemindersSent   int
	UnregisteredEscalationsSent int
	Skipped                     int
	Failures                    int
}

type Scheduler struct {
	store  Store
	users  UserDirectory
	assets AssetDirectory
	sender notification.Sender
	audit  AuditLogger
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(store Store, users UserDirectory, assets AssetDirectory, sender notification.Sender, auditLogger AuditLogger, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:  store,
		users:  users,
		assets: assets,
		sender: sender,
		audit:  auditLogger,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run makes one pass over every active campaign. Expired campaigns are closed
// first and get no further notifications. Only listing campaigns can fail the
// whole pass; everything else is logged per item.
func (s *Scheduler) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	now := s.now()

	campaigns, err := s.store.ListCampaigns(ctx, attestation.CampaignStatusActive)
	if err != nil {
		return report, fmt.Errorf("failed to list active campaigns: %w", err)
	}

	for _, c := range campaigns {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.CampaignsScanned++

		campaign := attestation.CampaignFromDataModel(c)
		if campaign.Expired(now) {
			s.autoClose(ctx, campaign, now, report)
			continue
		}

		info := campaignInfo(campaign)
		elapsed := attestation.ElapsedDays(campaign.StartDate, now)

		s.remindRecords(ctx, campaign, info, elapsed, now, report)
		s.remindInvites(ctx, campaign, info, elapsed, now, report)
	}

	s.logger.Info("scheduler pass finished",
		"campaigns_scanned", report.CampaignsScanned,
		"campaigns_closed", report.CampaignsClosed,
		"reminders_sent", report.RemindersSent,
		"escalations_sent", report.EscalationsSent,
		"unregistered_reminders_sent", report.UnregisteredRemindersSent,
		"unregistered_escalations_sent", report.UnregisteredEscalationsSent,
		"skipped", report.Skipped,
		"failures", report.Failures)

	return report, nil
}

func (s *Scheduler) autoClose(ctx context.Context, c *attestation.Campaign, now time.Time, report *Report) {
	closed, err := s.store.TransitionCampaign(ctx, c.ID,
		[]string{attestation.CampaignStatusActive}, attestation.CampaignStatusCompleted, now)
	if err != nil {
		report.Failures++
		s.logger.Error("failed to auto-close campaign", "error", err, "campaign_id", c.ID)
		return
	}
	if !closed {
		return
	}

	report.CampaignsClosed++
	s.audit.Record(ctx, audit.Entry{
		Action:     audit.ActionAutoClose,
		EntityType: audit.EntityCampaign,
		EntityID:   c.ID,
		EntityName: c.Name,
		ActorEmail: "system",
		Details:    map[string]any{"end_date": c.EndDate},
	})
	s.logger.Info("campaign auto-closed", "campaign_id", c.ID, "end_date", c.EndDate)
}

func (s *Scheduler) remindRecords(ctx context.Context, c *attestation.Campaign, info notification.CampaignInfo, elapsed int, now time.Time, report *Report) {
	dueReminder := elapsed >= c.ReminderDays
	dueEscalation := elapsed >= c.EscalationDays
	if !dueReminder && !dueEscalation {
		return
	}

	records, err := s.store.ListOpenRecords(ctx, c.ID)
	if err != nil {
		report.Failures++
		s.logger.Error("failed to list open records", "error", err, "campaign_id", c.ID)
		return
	}

	for _, r := range records {
		needsReminder := dueReminder && r.ReminderSentAt == nil
		needsEscalation := dueEscalation && r.EscalationSentAt == nil
		if !needsReminder && !needsEscalation {
			continue
		}

		u, err := s.users.GetByID(ctx, r.UserID)
		if err != nil {
			report.Failures++
			s.logger.Error("failed to load record owner", "error", err, "record_id", r.ID, "user_id", r.UserID)
			continue
		}
		employee := personFromUser(u)

		if needsReminder {
			s.deliver(ctx, report, &report.RemindersSent, delivery{
				kind: notification.KindReminder,
				claim: func(at time.Time) (bool, error) {
					return s.store.ClaimRecordMarker(ctx, r.ID, attestation.MarkerReminder, at)
				},
				release: func(at time.Time) error {
					return s.store.ReleaseRecordMarker(ctx, r.ID, attestation.MarkerReminder, at)
				},
				send:  func() error { return s.sender.SendReminder(ctx, employee, info) },
				attrs: []any{"campaign_id", c.ID, "record_id", r.ID, "email", employee.Email},
			}, now)
		}

		if needsEscalation {
			managerEmail, err := s.recordManagerEmail(ctx, u)
			if err != nil {
				report.Failures++
				s.logger.Error("failed to resolve manager", "error", err, "record_id", r.ID)
				continue
			}
			if managerEmail == "" {
				report.Skipped++
				s.logger.Debug("no manager to escalate to", "campaign_id", c.ID, "record_id", r.ID)
				continue
			}
			s.deliver(ctx, report, &report.EscalationsSent, delivery{
				kind: notification.KindEscalation,
				claim: func(at time.Time) (bool, error) {
					return s.store.ClaimRecordMarker(ctx, r.ID, attestation.MarkerEscalation, at)
				},
				release: func(at time.Time) error {
					return s.store.ReleaseRecordMarker(ctx, r.ID, attestation.MarkerEscalation, at)
				},
				send:  func() error { return s.sender.SendEscalation(ctx, managerEmail, employee, info) },
				attrs: []any{"campaign_id", c.ID, "record_id", r.ID, "manager_email", managerEmail},
			}, now)
		}
	}
}

func (s *Scheduler) remindInvites(ctx context.Context, c *attestation.Campaign, info notification.CampaignInfo, elapsed int, now time.Time, report *Report) {
	dueReminder := elapsed >= c.UnregisteredReminderDays
	dueEscalation := elapsed >= c.EscalationDays
	if !dueReminder && !dueEscalation {
		return
	}

	invites, err := s.store.ListOpenInvites(ctx, c.ID)
	if err != nil {
		report.Failures++
		s.logger.Error("failed to list open invites", "error", err, "campaign_id", c.ID)
		return
	}

	for _, inv := range invites {
		needsReminder := dueReminder && inv.ReminderSentAt == nil
		needsEscalation := dueEscalation && inv.EscalationSentAt == nil
		if !needsReminder && !needsEscalation {
			continue
		}

		held, err := s.assets.ListByEmployeeEmail(ctx, inv.EmployeeEmail)
		if err != nil {
			report.Failures++
			s.logger.Error("failed to load invitee assets", "error", err, "invite_id", inv.ID)
			continue
		}
		employee := notification.Person{
			Email:     inv.EmployeeEmail,
			FirstName: inv.EmployeeFirstName,
			LastName:  inv.EmployeeLastName,
		}
		assetCount := len(held)

		if needsReminder {
			token := inv.InviteToken
			s.deliver(ctx, report, &report.UnregisteredRemindersSent, delivery{
				kind: notification.KindUnregisteredReminder,
				claim: func(at time.Time) (bool, error) {
					return s.store.ClaimInviteMarker(ctx, inv.ID, attestation.MarkerReminder, at)
				},
				release: func(at time.Time) error {
					return s.store.ReleaseInviteMarker(ctx, inv.ID, attestation.MarkerReminder, at)
				},
				send: func() error {
					return s.sender.SendUnregisteredReminder(ctx, employee, info, assetCount, token)
				},
				attrs: []any{"campaign_id", c.ID, "invite_id", inv.ID, "email", employee.Email},
			}, now)
		}

		if needsEscalation {
			managerEmail := firstManagerEmail(held)
			if managerEmail == "" {
				report.Skipped++
				s.logger.Debug("no manager to escalate unregistered invitee to", "campaign_id", c.ID, "invite_id", inv.ID)
				continue
			}
			s.deliver(ctx, report, &report.UnregisteredEscalationsSent, delivery{
				kind: notification.KindUnregisteredEscalation,
				claim: func(at time.Time) (bool, error) {
					return s.store.ClaimInviteMarker(ctx, inv.ID, attestation.MarkerEscalation, at)
				},
				release: func(at time.Time) error {
					return s.store.ReleaseInviteMarker(ctx, inv.ID, attestation.MarkerEscalation, at)
				},
				send: func() error {
					return s.sender.SendUnregisteredEscalation(ctx, managerEmail, employee, info, assetCount)
				},
				attrs: []any{"campaign_id", c.ID, "invite_id", inv.ID, "manager_email", managerEmail},
			}, now)
		}
	}
}

type delivery struct {
	kind    notification.Kind
	claim   func(at time.Time) (bool, error)
	release func(at time.Time) error
	send    func() error
	attrs   []any
}

// deliver claims the marker, sends, and gives the marker back if sending failed
// so the next pass retries. Losing the claim means another run already sent it.
func (s *Scheduler) deliver(ctx context.Context, report *Report, sent *int, d delivery, now time.Time) {
	claimed, err := d.claim(now)
	if err != nil {
		report.Failures++
		s.logger.Error("failed to claim notification marker", append([]any{"error", err, "kind", d.kind}, d.attrs...)...)
		return
	}
	if !claimed {
		report.Skipped++
		return
	}

	if err := d.send(); err != nil {
		report.Failures++
		s.logger.Error("failed to send notification", append([]any{"error", err, "kind", d.kind}, d.attrs...)...)
		if err := d.release(now); err != nil {
			s.logger.Error("failed to release notification marker", append([]any{"error", err, "kind", d.kind}, d.attrs...)...)
		}
		return
	}

	*sent++
	s.logger.Info("notification delivered", append([]any{"kind", d.kind}, d.attrs...)...)
}

// recordManagerEmail prefers the manager on the user's profile and falls back
// to the first manager found on the assets they hold.
func (s *Scheduler) recordManagerEmail(ctx context.Context, u *userDatamodel.User) (string, error) {
	if email := strings.TrimSpace(u.ManagerEmail); email != "" {
		return email, nil
	}
	held, err := s.assets.ListByEmployee(ctx, u.Email, u.ID)
	if err != nil {
		return "", err
	}
	return firstManagerEmail(held), nil
}

func firstManagerEmail(assets []*assetDatamodel.Asset) string {
	for _, a := range assets {
		if a.Manager != nil && a.Manager.Email != "" {
			return a.Manager.Email
		}
		if email := strings.TrimSpace(a.ManagerEmail); email != "" {
			return email
		}
	}
	return ""
}

func personFromUser(u *userDatamodel.User) notification.Person {
	return notification.Person{Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

func campaignInfo(c *attestation.Campaign) notification.CampaignInfo {
	return notification.CampaignInfo{
		ID:        c.ID,
		Name:      c.Name,
		StartDate: c.StartDate,
		EndDate:   c.EndDate,
	}
}
