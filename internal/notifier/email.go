package notifier

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hatchpay/offramp-backend/internal/data"
	"github.com/hatchpay/offramp-backend/internal/htmltemplate"
	"github.com/hatchpay/offramp-backend/internal/message"
	"github.com/hatchpay/offramp-backend/internal/monitor"
	"github.com/hatchpay/offramp-backend/internal/utils"
)

// EmailNotifier builds and dispatches payer-facing confirmation and expiration notices
// through the message dispatcher.
type EmailNotifier struct {
	dispatcher     message.MessageDispatcherInterface
	serviceName    string
	monitorService monitor.MonitorServiceInterface
}

type EmailNotifierOptions struct {
	Dispatcher     message.MessageDispatcherInterface
	ServiceName    string
	MonitorService monitor.MonitorServiceInterface
}

func NewEmailNotifier(opts EmailNotifierOptions) (*EmailNotifier, error) {
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("message dispatcher is required")
	}
	if opts.ServiceName == "" {
		return nil, fmt.Errorf("service name is required")
	}

	return &EmailNotifier{
		dispatcher:     opts.Dispatcher,
		serviceName:    opts.ServiceName,
		monitorService: opts.MonitorService,
	}, nil
}

func (n *EmailNotifier) SendConfirmationEmail(ctx context.Context, tx *data.Transaction) error {
	if !tx.SenderEmail.Valid || tx.SenderEmail.String == "" {
		log.WithContext(ctx).Debugf("transaction %s has no payer email, skipping confirmation email", tx.Reference)
		return nil
	}

	paidAt := ""
	if tx.PaidAt != nil {
		paidAt = tx.PaidAt.UTC().Format(time.RFC3339)
	}

	body, err := htmltemplate.ExecuteHTMLTemplateForPaymentConfirmationEmail(htmltemplate.PaymentConfirmationEmailTemplate{
		SenderName:  tx.SenderName.String,
		Reference:   tx.Reference,
		Amount:      tx.Amount,
		Currency:    string(tx.Currency),
		PaidAt:      paidAt,
		ServiceName: n.serviceName,
	})
	if err != nil {
		return fmt.Errorf("generating confirmation email body: %w", err)
	}

	msg := message.Message{
		ToEmail: tx.SenderEmail.String,
		Title:   fmt.Sprintf("%s: payment confirmed for %s", n.serviceName, tx.Reference),
		Body:    body,
	}

	_, err = n.dispatcher.SendMessage(ctx, msg, []message.MessageChannel{message.MessageChannelEmail})
	n.recordNotification("EMAIL", "confirmation", err)
	if err != nil {
		return fmt.Errorf("sending confirmation email for transaction %s: %w", tx.Reference, err)
	}

	log.WithContext(ctx).Infof("sent confirmation email for transaction %s to %q", tx.Reference, utils.TruncateString(tx.SenderEmail.String, 3))
	return nil
}

// SendExpirationNotice prefers email and falls back to SMS when the payer only left a phone
// number. Returns the channel the notice went through.
func (n *EmailNotifier) SendExpirationNotice(ctx context.Context, tx *data.Transaction) (message.MessageChannel, error) {
	hasEmail := tx.SenderEmail.Valid && tx.SenderEmail.String != ""
	hasPhone := tx.SenderPhone.Valid && tx.SenderPhone.String != ""

	if !hasEmail && !hasPhone {
		log.WithContext(ctx).Debugf("transaction %s has no payer contact, skipping expiration notice", tx.Reference)
		return "", nil
	}

	body, err := htmltemplate.ExecuteHTMLTemplateForPaymentExpirationEmail(htmltemplate.PaymentExpirationEmailTemplate{
		SenderName:  tx.SenderName.String,
		Reference:   tx.Reference,
		Amount:      tx.Amount,
		Currency:    string(tx.Currency),
		ServiceName: n.serviceName,
	})
	if err != nil {
		return "", fmt.Errorf("generating expiration notice body: %w", err)
	}

	msg := message.Message{
		Title: fmt.Sprintf("%s: payment window expired for %s", n.serviceName, tx.Reference),
		Body:  body,
	}
	if hasEmail {
		msg.ToEmail = tx.SenderEmail.String
	}
	if hasPhone {
		msg.ToPhoneNumber = tx.SenderPhone.String
		if !hasEmail {
			// SMS bodies are plain text.
			msg.Body = fmt.Sprintf("%s: we could not confirm your payment of %s %s for transaction %s before the window closed. If you already sent the funds, contact support.",
				n.serviceName, tx.Amount, tx.Currency, tx.Reference)
		}
	}

	channelPriority := []message.MessageChannel{message.MessageChannelEmail, message.MessageChannelSMS}
	messengerType, err := n.dispatcher.SendMessage(ctx, msg, channelPriority)

	channel := message.MessageChannelEmail
	if messengerType.IsSMS() {
		channel = message.MessageChannelSMS
	}
	n.recordNotification(string(channel), "expiration", err)
	if err != nil {
		return channel, fmt.Errorf("sending expiration notice for transaction %s: %w", tx.Reference, err)
	}

	log.WithContext(ctx).Infof("sent expiration notice for transaction %s via %s", tx.Reference, channel)
	return channel, nil
}

func (n *EmailNotifier) recordNotification(channel, kind string, sendErr error) {
	if n.monitorService == nil {
		return
	}

	outcome := "sent"
	if sendErr != nil {
		outcome = "failed"
	}

	labels := monitor.NotificationLabels{Channel: channel, Kind: kind, Outcome: outcome}
	if err := n.monitorService.MonitorCounters(monitor.NotificationsTotalTag, labels.ToMap()); err != nil {
		log.Errorf("monitoring notification counter: %v", err)
	}
}
