package notification

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

type Kind string

const (
	KindReminder               Kind = "reminder"
	KindEscalation             Kind = "escalation"
	KindUnregisteredReminder   Kind = "unregistered_reminder"
	KindUnregisteredEscalation Kind = "unregistered_escalation"
	KindLaunchNotice           Kind = "launch_notice"
	KindInvite                 Kind = "invite"
	KindCompletionReceipt      Kind = "completion_receipt"
)

// messageData is the context every template renders against.
type messageData struct {
	RecipientName string
	CampaignName  string
	EndDate       string
	Link          string
	EmployeeName  string
	EmployeeEmail string
	AssetCount    int
	AssetsCreated int
}

type template struct {
	subject *texttemplate.Template
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

func (t *template) render(data messageData) (subject, html, text string, err error) {
	var sb, hb, tb bytes.Buffer
	if err := t.subject.Execute(&sb, data); err != nil {
		return "", "", "", err
	}
	if err := t.html.Execute(&hb, data); err != nil {
		return "", "", "", err
	}
	if err := t.text.Execute(&tb, data); err != nil {
		return "", "", "", err
	}
	return sb.String(), hb.String(), tb.String(), nil
}

const layoutHTML = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<p>Hi {{.RecipientName}},</p>
		{{template "body" .}}
		{{if .Link}}<p><a href="{{.Link}}" style="background-color: #0d6efd; color: white; padding: 10px 24px; text-decoration: none; border-radius: 5px;">Open attestation</a></p>
		<p style="word-break: break-all;">{{.Link}}</p>{{end}}
	</div>
</body>
</html>`

type source struct {
	subject string
	html    string
	text    string
}

var sources = map[Kind]source{
	KindReminder: {
		subject: `Reminder: please complete "{{.CampaignName}}"`,
		html:    `<p>Your asset attestation for <strong>{{.CampaignName}}</strong> is still open.{{if .EndDate}} It closes on {{.EndDate}}.{{end}}</p>`,
		text:    "Hi {{.RecipientName}},\n\nYour asset attestation for \"{{.CampaignName}}\" is still open.{{if .EndDate}} It closes on {{.EndDate}}.{{end}}\n\n{{.Link}}\n",
	},
	KindEscalation: {
		subject: `{{.EmployeeName}} has not completed "{{.CampaignName}}"`,
		html:    `<p>{{.EmployeeName}} ({{.EmployeeEmail}}) has not yet completed the asset attestation <strong>{{.CampaignName}}</strong>. Please follow up with them.</p>`,
		text:    "Hi {{.RecipientName}},\n\n{{.EmployeeName}} ({{.EmployeeEmail}}) has not yet completed the asset attestation \"{{.CampaignName}}\". Please follow up with them.\n",
	},
	KindUnregisteredReminder: {
		subject: `Action required: register to attest your assets for "{{.CampaignName}}"`,
		html:    `<p>{{.AssetCount}} asset(s) are registered to you for <strong>{{.CampaignName}}</strong>. Create your account to review them.</p>`,
		text:    "Hi {{.RecipientName}},\n\n{{.AssetCount}} asset(s) are registered to you for \"{{.CampaignName}}\". Create your account to review them:\n\n{{.Link}}\n",
	},
	KindUnregisteredEscalation: {
		subject: `{{.EmployeeName}} has not registered for "{{.CampaignName}}"`,
		html:    `<p>{{.EmployeeName}} ({{.EmployeeEmail}}) holds {{.AssetCount}} asset(s) in <strong>{{.CampaignName}}</strong> but has not registered yet. Please ask them to sign up.</p>`,
		text:    "Hi {{.RecipientName}},\n\n{{.EmployeeName}} ({{.EmployeeEmail}}) holds {{.AssetCount}} asset(s) in \"{{.CampaignName}}\" but has not registered yet. Please ask them to sign up.\n",
	},
	KindLaunchNotice: {
		subject: `New asset attestation: "{{.CampaignName}}"`,
		html:    `<p>A new asset attestation, <strong>{{.CampaignName}}</strong>, has started. Please review the assets assigned to you.{{if .EndDate}} It closes on {{.EndDate}}.{{end}}</p>`,
		text:    "Hi {{.RecipientName}},\n\nA new asset attestation, \"{{.CampaignName}}\", has started. Please review the assets assigned to you.{{if .EndDate}} It closes on {{.EndDate}}.{{end}}\n\n{{.Link}}\n",
	},
	KindInvite: {
		subject: `You are invited to attest your assets for "{{.CampaignName}}"`,
		html:    `<p>Company assets are registered to your email for the attestation <strong>{{.CampaignName}}</strong>. Create an account to review them.</p>`,
		text:    "Hi {{.RecipientName}},\n\nCompany assets are registered to your email for the attestation \"{{.CampaignName}}\". Create an account to review them:\n\n{{.Link}}\n",
	},
	KindCompletionReceipt: {
		subject: `Attestation complete: "{{.CampaignName}}"`,
		html:    `<p>Thank you for completing <strong>{{.CampaignName}}</strong>.{{if .AssetsCreated}} {{.AssetsCreated}} newly declared asset(s) were added to your inventory.{{end}}</p>`,
		text:    "Hi {{.RecipientName}},\n\nThank you for completing \"{{.CampaignName}}\".{{if .AssetsCreated}} {{.AssetsCreated}} newly declared asset(s) were added to your inventory.{{end}}\n",
	},
}

func parseTemplates() (map[Kind]*template, error) {
	out := make(map[Kind]*template, len(sources))
	for kind, src := range sources {
		subject, err := texttemplate.New(string(kind) + "_subject").Parse(src.subject)
		if err != nil {
			return nil, fmt.Errorf("parse %s subject: %w", kind, err)
		}
		html, err := htmltemplate.New(string(kind) + "_html").Parse(layoutHTML)
		if err == nil {
			_, err = html.New("body").Parse(src.html)
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s html: %w", kind, err)
		}
		text, err := texttemplate.New(string(kind) + "_text").Parse(src.text)
		if err != nil {
			return nil, fmt.Errorf("parse %s text: %w", kind, err)
		}
		out[kind] = &template{subject: subject, html: html, text: text}
	}
	return out, nil
}
