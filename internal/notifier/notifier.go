package notifier

import (
	"context"

	"github.com/hatchpay/offramp-backend/internal/data"
	"github.com/hatchpay/offramp-backend/internal/message"
)

// NotifySink is the engine's single notification surface. Every method is best-effort:
// failures are returned for auditing but must never block state progression.
//
//go:generate mockery --name=NotifySink --case=underscore --structname=MockNotifySink --inpackage
type NotifySink interface {
	// SendConfirmationEmail emails the payer that the payment cleared. No-op when the
	// transaction has no payer email.
	SendConfirmationEmail(ctx context.Context, tx *data.Transaction) error
	// SendExpirationNotice notifies the payer that the payment window closed, falling back
	// to SMS when the payer left a phone number but no email. Returns the channel used.
	SendExpirationNotice(ctx context.Context, tx *data.Transaction) (message.MessageChannel, error)
	// SendConfirmationWebhook POSTs the confirmation payload to the merchant's success URL.
	SendConfirmationWebhook(ctx context.Context, tx *data.Transaction) error
}

// Notifier composes the email/SMS dispatcher and the webhook client behind NotifySink.
type Notifier struct {
	*EmailNotifier
	*WebhookNotifier
}

func NewNotifier(emailNotifier *EmailNotifier, webhookNotifier *WebhookNotifier) *Notifier {
	return &Notifier{
		EmailNotifier:   emailNotifier,
		WebhookNotifier: webhookNotifier,
	}
}

var _ NotifySink = (*Notifier)(nil)
