package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hatchpay/offramp-backend/internal/data"
	"github.com/hatchpay/offramp-backend/internal/monitor"
	"github.com/hatchpay/offramp-backend/internal/serve/httpclient"
	"github.com/hatchpay/offramp-backend/internal/utils"
)

// WebhookPayload is the confirmation body POSTed to the merchant's success URL.
type WebhookPayload struct {
	Event         string  `json:"event"`
	PaymentLinkID string  `json:"paymentLinkId"`
	TransactionID string  `json:"transactionId"`
	Amount        string  `json:"amount"`
	Currency      string  `json:"currency"`
	SenderName    *string `json:"senderName"`
	SenderPhone   *string `json:"senderPhone"`
	SenderEmail   *string `json:"senderEmail"`
	PaymentMethod string  `json:"paymentMethod"`
	Status        string  `json:"status"`
	PaidAt        string  `json:"paidAt"`
	Timestamp     string  `json:"timestamp"`
}

const webhookEventPaymentConfirmed = "payment.confirmed"

// WebhookNotifier delivers the confirmation webhook. One attempt, 2xx is success, no
// retries; the merchant is expected to reconcile missed webhooks through the status API.
type WebhookNotifier struct {
	httpClient     httpclient.HTTPClientInterface
	userAgent      string
	monitorService monitor.MonitorServiceInterface
	nowFn          func() time.Time
}

type WebhookNotifierOptions struct {
	ServiceName    string
	Timeout        time.Duration
	MonitorService monitor.MonitorServiceInterface
	// HTTPClient overrides the default client, used in tests.
	HTTPClient httpclient.HTTPClientInterface
	// NowFn overrides the timestamp source, used in tests.
	NowFn func() time.Time
}

func NewWebhookNotifier(opts WebhookNotifierOptions) (*WebhookNotifier, error) {
	if opts.ServiceName == "" {
		return nil, fmt.Errorf("service name is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = httpclient.NewClientWithTimeout(opts.Timeout)
	}
	nowFn := opts.NowFn
	if nowFn == nil {
		nowFn = time.Now
	}

	return &WebhookNotifier{
		httpClient:     httpClient,
		userAgent:      fmt.Sprintf("%s-Webhook/1.0", opts.ServiceName),
		monitorService: opts.MonitorService,
		nowFn:          nowFn,
	}, nil
}

func (n *WebhookNotifier) SendConfirmationWebhook(ctx context.Context, tx *data.Transaction) error {
	if !tx.SuccessURL.Valid || tx.SuccessURL.String == "" {
		log.WithContext(ctx).Debugf("transaction %s has no success URL, skipping webhook", tx.Reference)
		return nil
	}
	if err := utils.ValidateURL(tx.SuccessURL.String); err != nil {
		return fmt.Errorf("invalid success URL for transaction %s: %w", tx.Reference, err)
	}

	payload := n.buildPayload(tx)
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tx.SuccessURL.String, bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.recordNotification("failed")
		return fmt.Errorf("delivering webhook for transaction %s: %w", tx.Reference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		n.recordNotification("failed")
		return fmt.Errorf("webhook for transaction %s responded status %d: %s", tx.Reference, resp.StatusCode, string(respBody))
	}

	n.recordNotification("sent")
	log.WithContext(ctx).Infof("delivered confirmation webhook for transaction %s", tx.Reference)
	return nil
}

func (n *WebhookNotifier) buildPayload(tx *data.Transaction) WebhookPayload {
	paidAt := ""
	if tx.PaidAt != nil {
		paidAt = tx.PaidAt.UTC().Format(time.RFC3339)
	}

	return WebhookPayload{
		Event:         webhookEventPaymentConfirmed,
		PaymentLinkID: tx.PaymentLinkID,
		TransactionID: tx.Reference,
		Amount:        tx.Amount,
		Currency:      string(tx.Currency),
		SenderName:    utils.StringOrNil(tx.SenderName.String),
		SenderPhone:   utils.StringOrNil(tx.SenderPhone.String),
		SenderEmail:   utils.StringOrNil(tx.SenderEmail.String),
		PaymentMethod: tx.PaymentMethod.String,
		Status:        "completed",
		PaidAt:        paidAt,
		Timestamp:     n.nowFn().UTC().Format(time.RFC3339),
	}
}

func (n *WebhookNotifier) recordNotification(outcome string) {
	if n.monitorService == nil {
		return
	}

	labels := monitor.NotificationLabels{Channel: "WEBHOOK", Kind: "confirmation", Outcome: outcome}
	if err := n.monitorService.MonitorCounters(monitor.NotificationsTotalTag, labels.ToMap()); err != nil {
		log.Errorf("monitoring webhook counter: %v", err)
	}
}
