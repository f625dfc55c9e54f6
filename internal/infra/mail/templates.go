package mail

import (
	"fmt"
	"net/url"

	"github.com/harborlight-foundation/member-portal/internal/core/port"
)

// LinkBuilder assembles the verification links embedded in outbound mail.
// BaseURL is the public origin of the portal frontend.
type LinkBuilder struct {
	BaseURL string
}

func (b LinkBuilder) link(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", b.BaseURL, path, url.QueryEscape(token))
}

// SignupVerification builds the account activation message.
func (b LinkBuilder) SignupVerification(to, name, token string) port.Email {
	link := b.link("/activate", token)
	return port.Email{
		To:      to,
		Subject: "Confirm your Harborlight account",
		Text: fmt.Sprintf(
			"Hi %s,\n\nWelcome to Harborlight. Confirm your email address within 24 hours by opening:\n\n%s\n\nIf you did not sign up, you can ignore this message.\n",
			name, link,
		),
		HTML: fmt.Sprintf(
			`<p>Hi %s,</p><p>Welcome to Harborlight. Confirm your email address within 24 hours:</p><p><a href="%s">Activate my account</a></p><p>If you did not sign up, you can ignore this message.</p>`,
			name, link,
		),
	}
}

// PasswordReset builds the password reset message.
func (b LinkBuilder) PasswordReset(to, name, token string) port.Email {
	link := b.link("/reset-password", token)
	return port.Email{
		To:      to,
		Subject: "Reset your Harborlight password",
		Text: fmt.Sprintf(
			"Hi %s,\n\nA password reset was requested for your account. The link below is valid for one hour:\n\n%s\n\nIf you did not request this, no action is needed.\n",
			name, link,
		),
		HTML: fmt.Sprintf(
			`<p>Hi %s,</p><p>A password reset was requested for your account. The link below is valid for one hour:</p><p><a href="%s">Reset my password</a></p><p>If you did not request this, no action is needed.</p>`,
			name, link,
		),
	}
}

// EmailChange builds the new-address confirmation message. It is sent to the
// pending address, not the current one.
func (b LinkBuilder) EmailChange(to, name, token string) port.Email {
	link := b.link("/verify-update-email", token)
	return port.Email{
		To:      to,
		Subject: "Confirm your new email address",
		Text: fmt.Sprintf(
			"Hi %s,\n\nConfirm this address as the new email for your Harborlight account within 24 hours:\n\n%s\n\nIf you did not request this change, you can ignore this message.\n",
			name, link,
		),
		HTML: fmt.Sprintf(
			`<p>Hi %s,</p><p>Confirm this address as the new email for your Harborlight account within 24 hours:</p><p><a href="%s">Confirm new email</a></p><p>If you did not request this change, you can ignore this message.</p>`,
			name, link,
		),
	}
}
