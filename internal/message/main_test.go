package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseMessengerType(t *testing.T) {
	t.Run("parses case insensitively", func(t *testing.T) {
		mt, err := ParseMessengerType("twilio_sms")
		require.NoError(t, err)
		assert.Equal(t, MessengerTypeTwilioSMS, mt)

		mt, err = ParseMessengerType("DRY_RUN")
		require.NoError(t, err)
		assert.Equal(t, MessengerTypeDryRun, mt)
	})

	t.Run("rejects unknown types", func(t *testing.T) {
		_, err := ParseMessengerType("CARRIER_PIGEON")
		assert.EqualError(t, err, `invalid message sender type "CARRIER_PIGEON"`)
	})
}

func Test_MessengerType_channelSupport(t *testing.T) {
	assert.True(t, MessengerTypeTwilioSMS.IsSMS())
	assert.False(t, MessengerTypeTwilioSMS.IsEmail())

	assert.True(t, MessengerTypeAWSEmail.IsEmail())
	assert.False(t, MessengerTypeAWSEmail.IsSMS())

	// DRY_RUN stands in for either channel in development.
	assert.True(t, MessengerTypeDryRun.IsSMS())
	assert.True(t, MessengerTypeDryRun.IsEmail())
}

func Test_GetClient(t *testing.T) {
	t.Run("returns the dry run client", func(t *testing.T) {
		client, err := GetClient(MessengerOptions{MessengerType: MessengerTypeDryRun})
		require.NoError(t, err)
		assert.Equal(t, MessengerTypeDryRun, client.MessengerType())
	})

	t.Run("rejects unknown messenger types", func(t *testing.T) {
		_, err := GetClient(MessengerOptions{MessengerType: "SMOKE_SIGNALS"})
		assert.EqualError(t, err, `unknown message sender type: "SMOKE_SIGNALS"`)
	})
}
