package message

import (
	"fmt"
	"strings"

	"github.com/hatchpay/offramp-backend/internal/utils"
)

type Message struct {
	ToPhoneNumber string
	ToEmail       string
	Body          string
	Title         string
}

// ValidateFor validates if the message object is valid for the given messengerType.
func (s Message) ValidateFor(messengerType MessengerType) error {
	if messengerType.IsSMS() {
		if err := utils.ValidatePhoneNumber(s.ToPhoneNumber); err != nil {
			return fmt.Errorf("invalid message: %w", err)
		}
	}

	if messengerType.IsEmail() {
		if err := utils.ValidateEmail(s.ToEmail); err != nil {
			return fmt.Errorf("invalid message: %w", err)
		}

		if strings.Trim(s.Title, " ") == "" {
			return fmt.Errorf("title is empty")
		}
	}

	if strings.Trim(s.Body, " ") == "" {
		return fmt.Errorf("message is empty")
	}

	return nil
}

// SupportedChannels returns the channels this message can be delivered through, based on
// which recipient fields are populated.
func (s Message) SupportedChannels() []MessageChannel {
	var channels []MessageChannel

	if utils.ValidateEmail(s.ToEmail) == nil && strings.Trim(s.Title, " ") != "" {
		channels = append(channels, MessageChannelEmail)
	}
	if utils.ValidatePhoneNumber(s.ToPhoneNumber) == nil {
		channels = append(channels, MessageChannelSMS)
	}

	return channels
}

func (s Message) String() string {
	return fmt.Sprintf("Message{ToPhoneNumber: %s, ToEmail: %s, Title: %s}",
		utils.TruncateString(s.ToPhoneNumber, 3),
		utils.TruncateString(s.ToEmail, 3),
		utils.TruncateString(s.Title, 10))
}
