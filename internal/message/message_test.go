package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Message_ValidateFor(t *testing.T) {
	validSMS := Message{ToPhoneNumber: "+14155552671", Body: "hello"}
	validEmail := Message{ToEmail: "foo@example.com", Title: "subject", Body: "hello"}

	t.Run("SMS messenger requires a valid phone number", func(t *testing.T) {
		assert.NoError(t, validSMS.ValidateFor(MessengerTypeTwilioSMS))

		msg := validSMS
		msg.ToPhoneNumber = "not-a-phone"
		assert.ErrorContains(t, msg.ValidateFor(MessengerTypeTwilioSMS), "invalid message")
	})

	t.Run("email messenger requires a valid email and a title", func(t *testing.T) {
		assert.NoError(t, validEmail.ValidateFor(MessengerTypeAWSEmail))

		msg := validEmail
		msg.ToEmail = "not-an-email"
		assert.ErrorContains(t, msg.ValidateFor(MessengerTypeAWSEmail), "invalid message")

		msg = validEmail
		msg.Title = "   "
		assert.EqualError(t, msg.ValidateFor(MessengerTypeAWSEmail), "title is empty")
	})

	t.Run("body is always required", func(t *testing.T) {
		msg := validSMS
		msg.Body = "  "
		assert.EqualError(t, msg.ValidateFor(MessengerTypeTwilioSMS), "message is empty")
	})
}

func Test_Message_SupportedChannels(t *testing.T) {
	testCases := []struct {
		name     string
		message  Message
		expected []MessageChannel
	}{
		{
			name:     "email and phone support both channels",
			message:  Message{ToEmail: "foo@example.com", Title: "subject", ToPhoneNumber: "+14155552671"},
			expected: []MessageChannel{MessageChannelEmail, MessageChannelSMS},
		},
		{
			name:     "email without a title is not deliverable by email",
			message:  Message{ToEmail: "foo@example.com", ToPhoneNumber: "+14155552671"},
			expected: []MessageChannel{MessageChannelSMS},
		},
		{
			name:     "phone only",
			message:  Message{ToPhoneNumber: "+14155552671"},
			expected: []MessageChannel{MessageChannelSMS},
		},
		{
			name:     "no recipients at all",
			message:  Message{Body: "hello"},
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.message.SupportedChannels())
		})
	}
}

func Test_Message_String_truncatesPII(t *testing.T) {
	msg := Message{
		ToPhoneNumber: "+14155552671",
		ToEmail:       "foo@example.com",
		Title:         "a very long confidential subject",
	}
	s := msg.String()
	assert.NotContains(t, s, "+14155552671")
	assert.NotContains(t, s, "foo@example.com")
	assert.Contains(t, s, "+14...")
	assert.Contains(t, s, "foo...")
}
