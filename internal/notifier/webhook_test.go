package notifier

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hatchpay/offramp-backend/internal/data"
	"github.com/hatchpay/offramp-backend/internal/serve/httpclient"
)

func paidTransaction() *data.Transaction {
	paidAt := time.Date(2025, 4, 1, 12, 30, 0, 0, time.UTC)
	return &data.Transaction{
		ID:               "tx-1",
		Reference:        "TX123",
		PaymentLinkID:    "pl-1",
		Status:           data.PaidTransactionStatus,
		Amount:           "150.00",
		ActualAmountPaid: sql.NullString{String: "150.00", Valid: true},
		Currency:         data.CurrencyNGN,
		PaymentMethod:    sql.NullString{String: "bank", Valid: true},
		SenderName:       sql.NullString{String: "Aisha Bello", Valid: true},
		SenderEmail:      sql.NullString{String: "aisha@example.com", Valid: true},
		SuccessURL:       sql.NullString{String: "https://merchant.example.com/callback", Valid: true},
		PaidAt:           &paidAt,
	}
}

func Test_NewWebhookNotifier(t *testing.T) {
	t.Run("service name is required", func(t *testing.T) {
		_, err := NewWebhookNotifier(WebhookNotifierOptions{})
		assert.EqualError(t, err, "service name is required")
	})

	t.Run("🎉 builds the user agent from the service name", func(t *testing.T) {
		n, err := NewWebhookNotifier(WebhookNotifierOptions{ServiceName: "HatchPay"})
		require.NoError(t, err)
		assert.Equal(t, "HatchPay-Webhook/1.0", n.userAgent)
		assert.NotNil(t, n.httpClient)
	})
}

func Test_WebhookNotifier_SendConfirmationWebhook(t *testing.T) {
	ctx := context.Background()
	fixedNow := time.Date(2025, 4, 1, 12, 31, 0, 0, time.UTC)

	newNotifier := func(t *testing.T, httpClientMock *httpclient.HttpClientMock) *WebhookNotifier {
		t.Helper()
		n, err := NewWebhookNotifier(WebhookNotifierOptions{
			ServiceName: "HatchPay",
			HTTPClient:  httpClientMock,
			NowFn:       func() time.Time { return fixedNow },
		})
		require.NoError(t, err)
		return n
	}

	t.Run("no success URL is a silent no-op", func(t *testing.T) {
		httpClientMock := &httpclient.HttpClientMock{}
		n := newNotifier(t, httpClientMock)

		tx := paidTransaction()
		tx.SuccessURL = sql.NullString{}
		require.NoError(t, n.SendConfirmationWebhook(ctx, tx))
		httpClientMock.AssertNotCalled(t, "Do", mock.Anything)
	})

	t.Run("an invalid success URL is an error", func(t *testing.T) {
		httpClientMock := &httpclient.HttpClientMock{}
		n := newNotifier(t, httpClientMock)

		tx := paidTransaction()
		tx.SuccessURL = sql.NullString{String: "ftp://merchant.example.com", Valid: true}
		err := n.SendConfirmationWebhook(ctx, tx)
		assert.ErrorContains(t, err, "invalid success URL for transaction TX123")
		httpClientMock.AssertNotCalled(t, "Do", mock.Anything)
	})

	t.Run("🎉 POSTs the confirmation payload to the merchant", func(t *testing.T) {
		httpClientMock := &httpclient.HttpClientMock{}
		n := newNotifier(t, httpClientMock)

		httpClientMock.
			On("Do", mock.AnythingOfType("*http.Request")).
			Run(func(args mock.Arguments) {
				req, ok := args.Get(0).(*http.Request)
				require.True(t, ok)

				assert.Equal(t, http.MethodPost, req.Method)
				assert.Equal(t, "https://merchant.example.com/callback", req.URL.String())
				assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
				assert.Equal(t, "HatchPay-Webhook/1.0", req.Header.Get("User-Agent"))

				bodyBytes, err := io.ReadAll(req.Body)
				require.NoError(t, err)
				var payload WebhookPayload
				require.NoError(t, json.Unmarshal(bodyBytes, &payload))

				assert.Equal(t, "payment.confirmed", payload.Event)
				assert.Equal(t, "pl-1", payload.PaymentLinkID)
				assert.Equal(t, "TX123", payload.TransactionID)
				assert.Equal(t, "150.00", payload.Amount)
				assert.Equal(t, "NGN", payload.Currency)
				require.NotNil(t, payload.SenderName)
				assert.Equal(t, "Aisha Bello", *payload.SenderName)
				assert.Nil(t, payload.SenderPhone)
				assert.Equal(t, "bank", payload.PaymentMethod)
				assert.Equal(t, "completed", payload.Status)
				assert.Equal(t, "2025-04-01T12:30:00Z", payload.PaidAt)
				assert.Equal(t, "2025-04-01T12:31:00Z", payload.Timestamp)
			}).
			Return(&http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("ok"))}, nil).
			Once()

		require.NoError(t, n.SendConfirmationWebhook(ctx, paidTransaction()))
		httpClientMock.AssertExpectations(t)
	})

	t.Run("a non-2xx response is an error", func(t *testing.T) {
		httpClientMock := &httpclient.HttpClientMock{}
		n := newNotifier(t, httpClientMock)

		httpClientMock.
			On("Do", mock.Anything).
			Return(&http.Response{StatusCode: http.StatusInternalServerError, Body: io.NopCloser(strings.NewReader("boom"))}, nil).
			Once()

		err := n.SendConfirmationWebhook(ctx, paidTransaction())
		assert.EqualError(t, err, "webhook for transaction TX123 responded status 500: boom")
	})

	t.Run("a transport error is surfaced", func(t *testing.T) {
		httpClientMock := &httpclient.HttpClientMock{}
		n := newNotifier(t, httpClientMock)
		httpClientMock.On("Do", mock.Anything).Return(nil, assert.AnError).Once()

		err := n.SendConfirmationWebhook(ctx, paidTransaction())
		assert.ErrorIs(t, err, assert.AnError)
	})
}
