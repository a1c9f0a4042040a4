package message

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func Test_MessageDispatcher_SendMessage(t *testing.T) {
	ctx := context.Background()

	bothChannelsMsg := Message{
		ToEmail:       "foo@example.com",
		ToPhoneNumber: "+14155552671",
		Title:         "subject",
		Body:          "hello",
	}

	t.Run("empty channel priority is an error", func(t *testing.T) {
		dispatcher := NewMessageDispatcher()
		_, err := dispatcher.SendMessage(ctx, bothChannelsMsg, nil)
		assert.EqualError(t, err, "channel priority is empty")
	})

	t.Run("a message with no recipients cannot be routed", func(t *testing.T) {
		dispatcher := NewMessageDispatcher()
		_, err := dispatcher.SendMessage(ctx, Message{Body: "hello"}, []MessageChannel{MessageChannelEmail})
		assert.ErrorContains(t, err, "no valid channel found")
	})

	t.Run("🎉 delivers through the highest-priority supported channel", func(t *testing.T) {
		emailClient := &MessengerClientMock{}
		emailClient.On("MessengerType").Return(MessengerTypeAWSEmail)
		emailClient.On("SendMessage", ctx, bothChannelsMsg).Return(nil).Once()

		dispatcher := NewMessageDispatcher()
		dispatcher.RegisterClient(ctx, MessageChannelEmail, emailClient)

		messengerType, err := dispatcher.SendMessage(ctx, bothChannelsMsg, []MessageChannel{MessageChannelEmail, MessageChannelSMS})
		require.NoError(t, err)
		assert.Equal(t, MessengerTypeAWSEmail, messengerType)
		emailClient.AssertExpectations(t)
	})

	t.Run("falls through to the next channel when the first send fails", func(t *testing.T) {
		emailClient := &MessengerClientMock{}
		emailClient.On("MessengerType").Return(MessengerTypeAWSEmail)
		emailClient.On("SendMessage", ctx, bothChannelsMsg).Return(assert.AnError).Once()

		smsClient := &MessengerClientMock{}
		smsClient.On("MessengerType").Return(MessengerTypeTwilioSMS)
		smsClient.On("SendMessage", ctx, bothChannelsMsg).Return(nil).Once()

		dispatcher := NewMessageDispatcher()
		dispatcher.RegisterClient(ctx, MessageChannelEmail, emailClient)
		dispatcher.RegisterClient(ctx, MessageChannelSMS, smsClient)

		messengerType, err := dispatcher.SendMessage(ctx, bothChannelsMsg, []MessageChannel{MessageChannelEmail, MessageChannelSMS})
		require.NoError(t, err)
		assert.Equal(t, MessengerTypeTwilioSMS, messengerType)
		emailClient.AssertExpectations(t)
		smsClient.AssertExpectations(t)
	})

	t.Run("skips channels the message has no recipient for", func(t *testing.T) {
		smsOnlyMsg := Message{ToPhoneNumber: "+14155552671", Body: "hello"}

		emailClient := &MessengerClientMock{}
		emailClient.On("MessengerType").Return(MessengerTypeAWSEmail)

		smsClient := &MessengerClientMock{}
		smsClient.On("MessengerType").Return(MessengerTypeTwilioSMS)
		smsClient.On("SendMessage", ctx, smsOnlyMsg).Return(nil).Once()

		dispatcher := NewMessageDispatcher()
		dispatcher.RegisterClient(ctx, MessageChannelEmail, emailClient)
		dispatcher.RegisterClient(ctx, MessageChannelSMS, smsClient)

		messengerType, err := dispatcher.SendMessage(ctx, smsOnlyMsg, []MessageChannel{MessageChannelEmail, MessageChannelSMS})
		require.NoError(t, err)
		assert.Equal(t, MessengerTypeTwilioSMS, messengerType)
		emailClient.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
	})

	t.Run("all channels failing is an error", func(t *testing.T) {
		smsClient := &MessengerClientMock{}
		smsClient.On("MessengerType").Return(MessengerTypeTwilioSMS)
		smsClient.On("SendMessage", ctx, mock.Anything).Return(assert.AnError)

		dispatcher := NewMessageDispatcher()
		dispatcher.RegisterClient(ctx, MessageChannelSMS, smsClient)

		_, err := dispatcher.SendMessage(ctx, Message{ToPhoneNumber: "+14155552671", Body: "hello"}, []MessageChannel{MessageChannelSMS})
		assert.ErrorContains(t, err, "unable to send message")
	})
}

func Test_MessageDispatcher_GetClient(t *testing.T) {
	dispatcher := NewMessageDispatcher()

	_, err := dispatcher.GetClient(MessageChannelEmail)
	assert.EqualError(t, err, `no client registered for channel "EMAIL"`)

	client, err := NewDryRunClient()
	require.NoError(t, err)
	dispatcher.RegisterClient(context.Background(), MessageChannelEmail, client)

	got, err := dispatcher.GetClient(MessageChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, client, got)
}
