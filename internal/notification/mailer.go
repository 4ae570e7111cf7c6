package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
)

var ErrInvalidRecipient = errors.New("invalid recipient address")

// Mailer renders the attestation templates and hands them to a Transport.
type Mailer struct {
	transport  Transport
	from       string
	appBaseURL string
	templates  map[Kind]*template
	logger     *slog.Logger
}

var _ Sender = (*Mailer)(nil)

func NewMailer(transport Transport, from, appBaseURL string, logger *slog.Logger) (*Mailer, error) {
	if _, err := mail.ParseAddress(from); err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", from, err)
	}
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Mailer{
		transport:  transport,
		from:       from,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		templates:  templates,
		logger:     logger,
	}, nil
}

func (m *Mailer) SendReminder(ctx context.Context, to Person, campaign CampaignInfo) error {
	return m.send(ctx, KindReminder, to.Email, messageData{
		RecipientName: to.Name(),
		CampaignName:  campaign.Name,
		EndDate:       endDate(campaign),
		Link:          m.attestationsLink(),
	})
}

func (m *Mailer) SendEscalation(ctx context.Context, managerEmail string, employee Person, campaign CampaignInfo) error {
	return m.send(ctx, KindEscalation, managerEmail, messageData{
		RecipientName: managerEmail,
		CampaignName:  campaign.Name,
		EmployeeName:  employee.Name(),
		EmployeeEmail: employee.Email,
	})
}

func (m *Mailer) SendUnregisteredReminder(ctx context.Context, to Person, campaign CampaignInfo, assetCount int, inviteToken string) error {
	return m.send(ctx, KindUnregisteredReminder, to.Email, messageData{
		RecipientName: to.Name(),
		CampaignName:  campaign.Name,
		AssetCount:    assetCount,
		Link:          m.registerLink(inviteToken),
	})
}

func (m *Mailer) SendUnregisteredEscalation(ctx context.Context, managerEmail string, employee Person, campaign CampaignInfo, assetCount int) error {
	return m.send(ctx, KindUnregisteredEscalation, managerEmail, messageData{
		RecipientName: managerEmail,
		CampaignName:  campaign.Name,
		EmployeeName:  employee.Name(),
		EmployeeEmail: employee.Email,
		AssetCount:    assetCount,
	})
}

func (m *Mailer) SendLaunchNotice(ctx context.Context, to Person, campaign CampaignInfo) error {
	return m.send(ctx, KindLaunchNotice, to.Email, messageData{
		RecipientName: to.Name(),
		CampaignName:  campaign.Name,
		EndDate:       endDate(campaign),
		Link:          m.attestationsLink(),
	})
}

func (m *Mailer) SendInvite(ctx context.Context, to Person, campaign CampaignInfo, inviteToken string) error {
	return m.send(ctx, KindInvite, to.Email, messageData{
		RecipientName: to.Name(),
		CampaignName:  campaign.Name,
		Link:          m.registerLink(inviteToken),
	})
}

func (m *Mailer) SendCompletionReceipt(ctx context.Context, to Person, campaign CampaignInfo, assetsCreated int) error {
	return m.send(ctx, KindCompletionReceipt, to.Email, messageData{
		RecipientName: to.Name(),
		CampaignName:  campaign.Name,
		AssetsCreated: assetsCreated,
	})
}

func (m *Mailer) send(ctx context.Context, kind Kind, to string, data messageData) error {
	addr, err := mail.ParseAddress(to)
	if err != nil {
		m.logger.Warn("skipping notification with invalid recipient", "kind", kind, "to", to)
		return fmt.Errorf("%w: %q", ErrInvalidRecipient, to)
	}

	subject, html, text, err := m.templates[kind].render(data)
	if err != nil {
		return fmt.Errorf("render %s: %w", kind, err)
	}

	email := &Email{
		From:    m.from,
		To:      []string{addr.Address},
		Subject: subject,
		HTML:    html,
		Text:    text,
	}
	if err := m.transport.Send(ctx, email); err != nil {
		m.logger.Error("failed to send notification",
			"error", err,
			"kind", kind,
			"to", addr.Address,
			"transport", m.transport.Name())
		return err
	}

	m.logger.Info("notification sent", "kind", kind, "to", addr.Address, "transport", m.transport.Name())
	return nil
}

func (m *Mailer) attestationsLink() string {
	return m.appBaseURL + "/attestations"
}

func (m *Mailer) registerLink(token string) string {
	if token == "" {
		return m.appBaseURL + "/register"
	}
	return m.appBaseURL + "/register?invite=" + url.QueryEscape(token)
}

func endDate(c CampaignInfo) string {
	if c.EndDate == nil {
		return ""
	}
	return c.EndDate.Format("January 2, 2006")
}
