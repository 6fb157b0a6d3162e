package auth

import "github.com/tw-smith/authserver/pkg/notifx"

// Built-in email templates. Tenants share the markup; the copy is neutral
// enough for both frontends and the tenant link is injected as data.
const (
	verificationTemplateBody = `<html>
<body>
<p>Hi {{.Username}},</p>
<p>Thanks for signing up! Please verify your email address by clicking the link below:</p>
<p><a href="{{.URL}}">Verify my email address</a></p>
<p>If you did not create this account you can safely ignore this email.</p>
</body>
</html>`

	passwordResetTemplateBody = `<html>
<body>
<p>Hi {{.Username}},</p>
<p>A password reset was requested for your account. Click the link below to choose a new password:</p>
<p><a href="{{.URL}}">Reset my password</a></p>
<p>The link expires shortly. If you did not request a reset, no action is needed; your account has been locked and will unlock once you reset your password.</p>
</body>
</html>`

	resetConfirmationTemplateBody = `<html>
<body>
<p>Hi {{.Username}},</p>
<p>Your password was successfully reset. If this wasn't you, request another password reset immediately.</p>
</body>
</html>`
)

// RegisterEmailTemplates registers the tenant email templates on the
// notification client. Tenants may point at the same template name; the
// registry treats re-registration as an overwrite so that is harmless.
func RegisterEmailTemplates(client *notifx.Client, tenants TenantRegistry) error {
	for _, tenant := range tenants {
		if err := client.RegisterTemplate(tenant.VerificationTemplate, verificationTemplateBody); err != nil {
			return err
		}
		if err := client.RegisterTemplate(tenant.PasswordResetTemplate, passwordResetTemplateBody); err != nil {
			return err
		}
		if err := client.RegisterTemplate(tenant.ResetConfirmationTemplate, resetConfirmationTemplateBody); err != nil {
			return err
		}
	}
	return nil
}
