package notifier

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hatchpay/offramp-backend/internal/message"
)

func Test_NewEmailNotifier(t *testing.T) {
	t.Run("dispatcher is required", func(t *testing.T) {
		_, err := NewEmailNotifier(EmailNotifierOptions{ServiceName: "HatchPay"})
		assert.EqualError(t, err, "message dispatcher is required")
	})

	t.Run("service name is required", func(t *testing.T) {
		_, err := NewEmailNotifier(EmailNotifierOptions{Dispatcher: &message.MockMessageDispatcher{}})
		assert.EqualError(t, err, "service name is required")
	})
}

func Test_EmailNotifier_SendConfirmationEmail(t *testing.T) {
	ctx := context.Background()

	newNotifier := func(t *testing.T, dispatcherMock *message.MockMessageDispatcher) *EmailNotifier {
		t.Helper()
		n, err := NewEmailNotifier(EmailNotifierOptions{
			Dispatcher:  dispatcherMock,
			ServiceName: "HatchPay",
		})
		require.NoError(t, err)
		return n
	}

	t.Run("no payer email is a silent no-op", func(t *testing.T) {
		dispatcherMock := &message.MockMessageDispatcher{}
		n := newNotifier(t, dispatcherMock)

		tx := paidTransaction()
		tx.SenderEmail = sql.NullString{}
		require.NoError(t, n.SendConfirmationEmail(ctx, tx))
		dispatcherMock.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("🎉 dispatches the confirmation through the email channel", func(t *testing.T) {
		dispatcherMock := &message.MockMessageDispatcher{}
		n := newNotifier(t, dispatcherMock)

		dispatcherMock.
			On("SendMessage", mock.Anything, mock.AnythingOfType("message.Message"), []message.MessageChannel{message.MessageChannelEmail}).
			Run(func(args mock.Arguments) {
				msg, ok := args.Get(1).(message.Message)
				require.True(t, ok)
				assert.Equal(t, "aisha@example.com", msg.ToEmail)
				assert.Equal(t, "HatchPay: payment confirmed for TX123", msg.Title)
				assert.Contains(t, msg.Body, "TX123")
				assert.Contains(t, msg.Body, "150.00")
			}).
			Return(message.MessengerTypeAWSEmail, nil).
			Once()

		require.NoError(t, n.SendConfirmationEmail(ctx, paidTransaction()))
		dispatcherMock.AssertExpectations(t)
	})

	t.Run("a dispatch failure is surfaced", func(t *testing.T) {
		dispatcherMock := &message.MockMessageDispatcher{}
		n := newNotifier(t, dispatcherMock)
		dispatcherMock.
			On("SendMessage", mock.Anything, mock.Anything, mock.Anything).
			Return(message.MessengerTypeAWSEmail, assert.AnError).
			Once()

		err := n.SendConfirmationEmail(ctx, paidTransaction())
		assert.ErrorContains(t, err, "sending confirmation email for transaction TX123")
	})
}

func Test_EmailNotifier_SendExpirationNotice(t *testing.T) {
	ctx := context.Background()

	newNotifier := func(t *testing.T, dispatcherMock *message.MockMessageDispatcher) *EmailNotifier {
		t.Helper()
		n, err := NewEmailNotifier(EmailNotifierOptions{
			Dispatcher:  dispatcherMock,
			ServiceName: "HatchPay",
		})
		require.NoError(t, err)
		return n
	}

	t.Run("no contact at all skips the notice", func(t *testing.T) {
		dispatcherMock := &message.MockMessageDispatcher{}
		n := newNotifier(t, dispatcherMock)

		tx := paidTransaction()
		tx.SenderEmail = sql.NullString{}
		tx.SenderPhone = sql.NullString{}

		channel, err := n.SendExpirationNotice(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, message.MessageChannel(""), channel)
		dispatcherMock.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("prefers email when the payer left one", func(t *testing.T) {
		dispatcherMock := &message.MockMessageDispatcher{}
		n := newNotifier(t, dispatcherMock)

		dispatcherMock.
			On("SendMessage", mock.Anything, mock.AnythingOfType("message.Message"), []message.MessageChannel{message.MessageChannelEmail, message.MessageChannelSMS}).
			Run(func(args mock.Arguments) {
				msg, ok := args.Get(1).(message.Message)
				require.True(t, ok)
				assert.Equal(t, "aisha@example.com", msg.ToEmail)
				assert.Equal(t, "HatchPay: payment window expired for TX123", msg.Title)
			}).
			Return(message.MessengerTypeAWSEmail, nil).
			Once()

		channel, err := n.SendExpirationNotice(ctx, paidTransaction())
		require.NoError(t, err)
		assert.Equal(t, message.MessageChannelEmail, channel)
	})

	t.Run("falls back to a plain-text SMS for phone-only payers", func(t *testing.T) {
		dispatcherMock := &message.MockMessageDispatcher{}
		n := newNotifier(t, dispatcherMock)

		tx := paidTransaction()
		tx.SenderEmail = sql.NullString{}
		tx.SenderPhone = sql.NullString{String: "+2347012345678", Valid: true}

		dispatcherMock.
			On("SendMessage", mock.Anything, mock.AnythingOfType("message.Message"), mock.Anything).
			Run(func(args mock.Arguments) {
				msg, ok := args.Get(1).(message.Message)
				require.True(t, ok)
				assert.Equal(t, "+2347012345678", msg.ToPhoneNumber)
				assert.Empty(t, msg.ToEmail)
				assert.Contains(t, msg.Body, "we could not confirm your payment")
				assert.NotContains(t, msg.Body, "<")
			}).
			Return(message.MessengerTypeTwilioSMS, nil).
			Once()

		channel, err := n.SendExpirationNotice(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, message.MessageChannelSMS, channel)
	})

	t.Run("a dispatch failure reports the channel it failed on", func(t *testing.T) {
		dispatcherMock := &message.MockMessageDispatcher{}
		n := newNotifier(t, dispatcherMock)
		dispatcherMock.
			On("SendMessage", mock.Anything, mock.Anything, mock.Anything).
			Return(message.MessengerTypeTwilioSMS, assert.AnError).
			Once()

		channel, err := n.SendExpirationNotice(ctx, paidTransaction())
		assert.ErrorContains(t, err, "sending expiration notice for transaction TX123")
		assert.Equal(t, message.MessageChannelSMS, channel)
	})
}
