package notificator

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/core-coin/successio/internal/models"
)

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustTemplate(kind models.NotificationKind, subject, body string) messageTemplate {
	return messageTemplate{
		subject: template.Must(template.New(string(kind) + ".subject").Option("missingkey=zero").Parse(subject)),
		body:    template.Must(template.New(string(kind) + ".body").Option("missingkey=zero").Parse(body)),
	}
}

var templates = map[models.NotificationKind]messageTemplate{
	models.NotifyBeneficiaryVerification: mustTemplate(models.NotifyBeneficiaryVerification,
		`You have been named a beneficiary of "{{.VaultName}}"`,
		`Hello {{.Name}},

You have been named a beneficiary of the vault "{{.VaultName}}" with a {{.Percentage}}% share.
Please confirm your email address:

{{.BaseURL}}/api/v1/beneficiaries/verify?token={{.Token}}
`),
	models.NotifyGuardianInvite: mustTemplate(models.NotifyGuardianInvite,
		`Guardian invitation for "{{.VaultName}}"`,
		`Hello {{.Name}},

You have been invited to act as a guardian of the vault "{{.VaultName}}".
The invitation expires on {{.ExpiresAt}}.

Accept:  {{.BaseURL}}/api/v1/guardians/accept?token={{.Token}}
Decline: {{.BaseURL}}/api/v1/guardians/decline?token={{.Token}}
`),
	models.NotifyGuardianAccepted: mustTemplate(models.NotifyGuardianAccepted,
		`{{.GuardianName}} accepted your guardian invitation`,
		`{{.GuardianName}} is now a guardian of your vault "{{.VaultName}}".
`),
	models.NotifyGuardianDeclined: mustTemplate(models.NotifyGuardianDeclined,
		`{{.GuardianName}} declined your guardian invitation`,
		`{{.GuardianName}} declined to act as a guardian of your vault "{{.VaultName}}".{{if .Reason}}
Reason: {{.Reason}}{{end}}
`),
	models.NotifyWarning7Days: mustTemplate(models.NotifyWarning7Days,
		`Your vault "{{.VaultName}}" triggers in {{.DaysUntilTrigger}} days`,
		`We have not seen any activity on your vault "{{.VaultName}}" for a while.
It will be triggered in {{.DaysUntilTrigger}} days unless you check in:

{{.BaseURL}}/api/v1/vaults/{{.VaultID}}/check-in
`),
	models.NotifyWarning24Hours: mustTemplate(models.NotifyWarning24Hours,
		`Final warning: "{{.VaultName}}" triggers within 24 hours`,
		`Your vault "{{.VaultName}}" will be triggered within 24 hours unless you check in:

{{.BaseURL}}/api/v1/vaults/{{.VaultID}}/check-in
`),
	models.NotifyCheckInReminder: mustTemplate(models.NotifyCheckInReminder,
		`Annual review of "{{.VaultName}}"`,
		`It has been a year since your last review of "{{.VaultName}}".
Please confirm your beneficiaries and guardians are still up to date and check in:

{{.BaseURL}}/api/v1/vaults/{{.VaultID}}/check-in
`),
	models.NotifyOwnerTriggered: mustTemplate(models.NotifyOwnerTriggered,
		`Your vault "{{.VaultName}}" has been triggered`,
		`Your vault "{{.VaultName}}" was triggered after {{.InactivityDays}} days of inactivity.
Distribution becomes possible on {{.CanDistributeAt}}.
If you are still here, cancel the trigger:

{{.BaseURL}}/api/v1/vaults/{{.VaultID}}/cancel-trigger
`),
	models.NotifyBeneficiaryTriggered: mustTemplate(models.NotifyBeneficiaryTriggered,
		`A pending transfer from "{{.VaultName}}"`,
		`Hello {{.Name}},

The vault "{{.VaultName}}" has been triggered. Your {{.Percentage}}% share becomes
claimable on {{.CanDistributeAt}} unless the owner cancels before then.
`),
	models.NotifyGuardianTriggered: mustTemplate(models.NotifyGuardianTriggered,
		`Vault "{{.VaultName}}" has been triggered`,
		`Hello {{.Name}},

The vault "{{.VaultName}}" you oversee was triggered. Distribution is scheduled for {{.CanDistributeAt}}.{{if .ApprovalToken}}
Your approval is required before distribution. To approve, POST this token to
{{.BaseURL}}/api/v1/approvals

{{.ApprovalToken}}{{end}}
`),
	models.NotifyGuardianOverride: mustTemplate(models.NotifyGuardianOverride,
		`Vault "{{.VaultName}}" was cancelled by its owner`,
		`Hello {{.Name}},

The owner cancelled the vault "{{.VaultName}}" during its timelock. No distribution will take place.
`),
	models.NotifyDistribution: mustTemplate(models.NotifyDistribution,
		`Your share of "{{.VaultName}}" is ready`,
		`Hello {{.Name}},

The vault "{{.VaultName}}" has been distributed. Your allocation is {{.Percentage}}%.
Claim reference: {{.ClaimReference}}
`),
}

// render produces subject and body for msg. baseURL is exposed to templates as .BaseURL.
func render(msg *models.Message, baseURL string) (string, string, error) {
	tpl, ok := templates[msg.Kind]
	if !ok {
		return "", "", fmt.Errorf("no template for notification kind %q", msg.Kind)
	}

	data := make(map[string]interface{}, len(msg.Data)+2)
	for k, v := range msg.Data {
		data[k] = v
	}
	data["BaseURL"] = baseURL
	data["VaultID"] = msg.VaultID

	var subject, body bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("failed to render subject: %w", err)
	}
	if err := tpl.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("failed to render body: %w", err)
	}
	return subject.String(), body.String(), nil
}
