package auth

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/tw-smith/authserver/pkg/errx"
	"github.com/tw-smith/authserver/pkg/jobx"
	"github.com/tw-smith/authserver/pkg/logx"
	"github.com/tw-smith/authserver/pkg/notifx"
)

// JobTypeSendEmail is the queue job type for outbound account emails.
const JobTypeSendEmail = "auth:send_email"

// EmailQueue is the queue account emails are enqueued on.
const EmailQueue = "emails"

const (
	subjectVerification      = "Please verify your email address"
	subjectPasswordReset     = "Password Reset Email"
	subjectResetConfirmation = "Successful Password Reset"
)

// emailJobPayload is the wire format between the enqueuing request and the
// worker that renders and sends the email.
type emailJobPayload struct {
	Template string            `json:"template"`
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Data     map[string]string `json:"data"`
}

// Mailer implements EmailDispatcher by enqueuing send jobs on the email
// queue. Delivery happens in the worker pool so request handlers never
// wait on a provider round trip.
type Mailer struct {
	enqueuer jobx.JobEnqueuer
	tenants  TenantRegistry
	from     string
}

// NewMailer creates a Mailer sending from the given address.
func NewMailer(enqueuer jobx.JobEnqueuer, tenants TenantRegistry, from string) *Mailer {
	return &Mailer{
		enqueuer: enqueuer,
		tenants:  tenants,
		from:     from,
	}
}

// DispatchVerification enqueues the address verification email. The link
// lands on the tenant frontend, which relays the token to the verify
// endpoint and then redirects the user home.
func (m *Mailer) DispatchVerification(ctx context.Context, account *Account, token string) error {
	tenant, err := m.tenants.Lookup(account.Service)
	if err != nil {
		return err
	}

	link := tenant.BaseURL + "/verify?" + url.Values{
		"token":        {token},
		"redirect_url": {tenant.BaseURL},
	}.Encode()

	return m.enqueue(ctx, emailJobPayload{
		Template: tenant.VerificationTemplate,
		To:       account.Email,
		Subject:  subjectVerification,
		Data: map[string]string{
			"Username": account.Username,
			"URL":      link,
		},
	})
}

// DispatchPasswordReset enqueues the password reset email. The link carries
// username and service alongside the token because the reset secret can
// only be recomputed after the account is located.
func (m *Mailer) DispatchPasswordReset(ctx context.Context, account *Account, token string) error {
	tenant, err := m.tenants.Lookup(account.Service)
	if err != nil {
		return err
	}

	link := tenant.BaseURL + "/resetpassword?" + url.Values{
		"username": {account.Username},
		"service":  {account.Service.String()},
		"token":    {token},
	}.Encode()

	return m.enqueue(ctx, emailJobPayload{
		Template: tenant.PasswordResetTemplate,
		To:       account.Email,
		Subject:  subjectPasswordReset,
		Data: map[string]string{
			"Username": account.Username,
			"URL":      link,
		},
	})
}

// DispatchResetConfirmation enqueues the notification that a password reset
// completed.
func (m *Mailer) DispatchResetConfirmation(ctx context.Context, account *Account) error {
	tenant, err := m.tenants.Lookup(account.Service)
	if err != nil {
		return err
	}

	return m.enqueue(ctx, emailJobPayload{
		Template: tenant.ResetConfirmationTemplate,
		To:       account.Email,
		Subject:  subjectResetConfirmation,
		Data: map[string]string{
			"Username": account.Username,
		},
	})
}

func (m *Mailer) enqueue(ctx context.Context, payload emailJobPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return errx.Wrap(err, "failed to marshal email job payload", errx.TypeInternal)
	}

	jobID, err := m.enqueuer.Enqueue(ctx, jobx.Job{
		Type:    JobTypeSendEmail,
		Queue:   EmailQueue,
		Payload: raw,
	})
	if err != nil {
		return errx.Wrap(err, "failed to enqueue email job", errx.TypeInternal)
	}

	logx.WithFields(logx.Fields{
		"job_id":   jobID,
		"template": payload.Template,
	}).Debug("email job enqueued")

	return nil
}

// NewEmailJobHandler returns the worker handler that renders and sends
// enqueued account emails through the notification client.
func NewEmailJobHandler(client *notifx.Client, from string) jobx.HandlerFunc {
	return func(ctx context.Context, job *jobx.JobInfo) error {
		var payload emailJobPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return errx.Wrap(err, "failed to unmarshal email job payload", errx.TypeInternal)
		}

		msg := notifx.EmailMessage{
			From:     from,
			To:       []string{payload.To},
			Subject:  payload.Subject,
			TextBody: payload.Data["URL"],
		}

		return client.SendTemplatedEmail(ctx, payload.Template, payload.Data, msg)
	}
}
