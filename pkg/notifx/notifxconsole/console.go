package notifxconsole

import (
	"context"
	"strings"

	"github.com/tw-smith/authserver/pkg/logx"
	"github.com/tw-smith/authserver/pkg/notifx"
)

// ConsoleProvider prints emails to the terminal via logx instead of
// delivering them. Intended for development and testing, where the token
// URLs need to be visible to the developer.
type ConsoleProvider struct{}

// NewConsoleProvider creates a new console email provider.
func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

// SendEmail logs the email details instead of sending it.
func (p *ConsoleProvider) SendEmail(_ context.Context, msg notifx.EmailMessage) error {
	logx.WithFields(logx.Fields{
		"from":    msg.From,
		"to":      strings.Join(msg.To, ", "),
		"subject": msg.Subject,
	}).Info("notifx/console: email dev mode")

	if msg.TextBody != "" {
		logx.Infof("notifx/console: text body:\n%s", msg.TextBody)
	}
	if msg.HTMLBody != "" {
		logx.Debugf("notifx/console: html body:\n%s", msg.HTMLBody)
	}

	return nil
}
