package message

import (
	"fmt"
	"slices"
	"strings"
)

// MessengerType selects the delivery backend for payer notifications.
type MessengerType string

const (
	MessengerTypeTwilioSMS   MessengerType = "TWILIO_SMS"
	MessengerTypeTwilioEmail MessengerType = "TWILIO_EMAIL"
	MessengerTypeAWSSMS      MessengerType = "AWS_SMS"
	MessengerTypeAWSEmail    MessengerType = "AWS_EMAIL"
	// MessengerTypeDryRun prints to stdout, for local development.
	MessengerTypeDryRun MessengerType = "DRY_RUN"
)

func (mt MessengerType) All() []MessengerType {
	return []MessengerType{MessengerTypeTwilioSMS, MessengerTypeTwilioEmail, MessengerTypeAWSSMS, MessengerTypeAWSEmail, MessengerTypeDryRun}
}

// ValidSMSTypes lists the backends that can deliver to a phone number.
// DRY_RUN counts as both SMS and email capable.
func (mt MessengerType) ValidSMSTypes() []MessengerType {
	return []MessengerType{MessengerTypeDryRun, MessengerTypeTwilioSMS, MessengerTypeAWSSMS}
}

// ValidEmailTypes lists the backends that can deliver to an email address.
func (mt MessengerType) ValidEmailTypes() []MessengerType {
	return []MessengerType{MessengerTypeDryRun, MessengerTypeTwilioEmail, MessengerTypeAWSEmail}
}

func (mt MessengerType) IsSMS() bool {
	return slices.Contains(mt.ValidSMSTypes(), mt)
}

func (mt MessengerType) IsEmail() bool {
	return slices.Contains(mt.ValidEmailTypes(), mt)
}

func ParseMessengerType(messengerTypeStr string) (MessengerType, error) {
	messageTypeStrUpper := strings.ToUpper(messengerTypeStr)
	mType := MessengerType(messageTypeStrUpper)

	if slices.Contains(MessengerType("").All(), mType) {
		return mType, nil
	}

	return "", fmt.Errorf("invalid message sender type %q", messageTypeStrUpper)
}

// MessengerOptions carries the credentials for every supported backend; only
// the fields for the selected MessengerType are read.
type MessengerOptions struct {
	MessengerType MessengerType
	Environment   string

	// Twilio SMS
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioServiceSID string
	// Twilio SendGrid email
	TwilioSendGridAPIKey        string
	TwilioSendGridSenderAddress string

	// AWS
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	AWSSNSSenderID     string
	AWSSESSenderID     string
}

// GetClient builds the messenger for the configured backend.
func GetClient(opts MessengerOptions) (MessengerClient, error) {
	switch opts.MessengerType {
	case MessengerTypeTwilioSMS:
		return NewTwilioClient(opts.TwilioAccountSID, opts.TwilioAuthToken, opts.TwilioServiceSID)
	case MessengerTypeTwilioEmail:
		return NewTwilioSendGridClient(opts.TwilioSendGridAPIKey, opts.TwilioSendGridSenderAddress)
	case MessengerTypeAWSSMS:
		return NewAWSSNSClient(opts.AWSAccessKeyID, opts.AWSSecretAccessKey, opts.AWSRegion, opts.AWSSNSSenderID)
	case MessengerTypeAWSEmail:
		return NewAWSSESClient(opts.AWSAccessKeyID, opts.AWSSecretAccessKey, opts.AWSRegion, opts.AWSSESSenderID)
	case MessengerTypeDryRun:
		return NewDryRunClient()
	default:
		return nil, fmt.Errorf("unknown message sender type: %q", opts.MessengerType)
	}
}
