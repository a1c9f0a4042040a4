package utils

import (
	"fmt"
	"go/types"

	"github.com/hatchpay/offramp-backend/internal/crashtracker"
	"github.com/hatchpay/offramp-backend/internal/message"
	"github.com/hatchpay/offramp-backend/internal/verification"
)

// TwilioConfigOptions returns the config options for Twilio. Relevant for loading configs needed for the messenger type(s): `TWILIO_*`.
func TwilioConfigOptions(opts *message.MessengerOptions) []*ConfigOption {
	return []*ConfigOption{
		{
			Name:      "twilio-account-sid",
			Usage:     "The SID of the Twilio account",
			OptType:   types.String,
			ConfigKey: &opts.TwilioAccountSID,
			Required:  false,
		},
		{
			Name:      "twilio-auth-token",
			Usage:     "The Auth Token of the Twilio account",
			OptType:   types.String,
			ConfigKey: &opts.TwilioAuthToken,
			Required:  false,
		},
		{
			Name:      "twilio-service-sid",
			Usage:     "The service ID used within Twilio to send messages",
			OptType:   types.String,
			ConfigKey: &opts.TwilioServiceSID,
			Required:  false,
		},
		// Twilio Email (SendGrid)
		{
			Name:      "twilio-sendgrid-api-key",
			Usage:     "The API key of the Twilio SendGrid account",
			OptType:   types.String,
			ConfigKey: &opts.TwilioSendGridAPIKey,
			Required:  false,
		},
		{
			Name:      "twilio-sendgrid-sender-address",
			Usage:     "The email address that Twilio SendGrid will use to send emails",
			OptType:   types.String,
			ConfigKey: &opts.TwilioSendGridSenderAddress,
			Required:  false,
		},
	}
}

// AWSConfigOptions returns the config options for AWS. Relevant for loading configs needed for the messenger type(s): `AWS_*`.
func AWSConfigOptions(opts *message.MessengerOptions) []*ConfigOption {
	return []*ConfigOption{
		// AWS
		{
			Name:      "aws-access-key-id",
			Usage:     "The AWS access key ID",
			OptType:   types.String,
			ConfigKey: &opts.AWSAccessKeyID,
			Required:  false,
		},
		{
			Name:      "aws-secret-access-key",
			Usage:     "The AWS secret access key",
			OptType:   types.String,
			ConfigKey: &opts.AWSSecretAccessKey,
			Required:  false,
		},
		{
			Name:      "aws-region",
			Usage:     "The AWS region",
			OptType:   types.String,
			ConfigKey: &opts.AWSRegion,
			Required:  false,
		},
		// AWS SMS (SNS)
		{
			Name:      "aws-sns-sender-id",
			Usage:     "The sender ID of the aws account sending the SMS message. Uses AWS SNS.",
			OptType:   types.String,
			ConfigKey: &opts.AWSSNSSenderID,
			Required:  false,
		},
		// AWS Email (SES)
		{
			Name:      "aws-ses-sender-id",
			Usage:     "The email address that AWS will use to send emails. Uses AWS SES.",
			OptType:   types.String,
			ConfigKey: &opts.AWSSESSenderID,
			Required:  false,
		},
	}
}

func CrashTrackerTypeConfigOption(targetPointer interface{}) *ConfigOption {
	return &ConfigOption{
		Name:           "crash-tracker-type",
		Usage:          `Crash tracker type. Options: "SENTRY", "DRY_RUN"`,
		OptType:        types.String,
		CustomSetValue: SetConfigOptionCrashTrackerType,
		ConfigKey:      targetPointer,
		FlagDefault:    string(crashtracker.CrashTrackerTypeDryRun),
		Required:       true,
	}
}

// ProviderOptions holds the payment provider connection settings set through flags.
type ProviderOptions struct {
	BaseURL     string
	AdminID     string
	AdminSecret string
}

// ProviderConfigOptions returns the config options for the payment provider's clearance API.
func ProviderConfigOptions(opts *ProviderOptions) []*ConfigOption {
	return []*ConfigOption{
		{
			Name:           "provider-base-url",
			Usage:          "The base URL of the payment provider's clearance API",
			OptType:        types.String,
			CustomSetValue: SetConfigOptionURLString,
			ConfigKey:      &opts.BaseURL,
			Required:       true,
		},
		{
			Name:      "provider-admin-id",
			Usage:     "The admin identifier sent in the provider request headers",
			OptType:   types.String,
			ConfigKey: &opts.AdminID,
			Required:  false,
		},
		{
			Name:      "provider-admin-secret",
			Usage:     "The admin secret sent in the provider request headers",
			OptType:   types.String,
			ConfigKey: &opts.AdminSecret,
			Required:  false,
		},
	}
}

// VerificationEngineConfigOptions returns the config options for the verification engine's timing knobs.
func VerificationEngineConfigOptions(cfg *verification.Config) []*ConfigOption {
	defaults := verification.DefaultConfig()
	return []*ConfigOption{
		{
			Name:           "fast-poll-interval-seconds",
			Usage:          "The interval in seconds between provider queries during the fast-poll phase",
			OptType:        types.Int,
			CustomSetValue: SetConfigOptionDurationSeconds,
			ConfigKey:      &cfg.FastPollInterval,
			FlagDefault:    int(defaults.FastPollInterval.Seconds()),
			Required:       false,
		},
		{
			Name:           "fast-poll-max-duration-seconds",
			Usage:          "How long in seconds a transaction stays in the fast-poll phase before handing off to the sweeper",
			OptType:        types.Int,
			CustomSetValue: SetConfigOptionDurationSeconds,
			ConfigKey:      &cfg.FastPollMaxDuration,
			FlagDefault:    int(defaults.FastPollMaxDuration.Seconds()),
			Required:       false,
		},
		{
			Name:           "slow-sweep-interval-seconds",
			Usage:          "The interval in seconds between slow-sweep batches",
			OptType:        types.Int,
			CustomSetValue: SetConfigOptionDurationSeconds,
			ConfigKey:      &cfg.SlowSweepInterval,
			FlagDefault:    int(defaults.SlowSweepInterval.Seconds()),
			Required:       false,
		},
		{
			Name:           "slow-sweep-buffer-seconds",
			Usage:          "Extra seconds past the fast-poll window before the sweeper picks up a transaction",
			OptType:        types.Int,
			CustomSetValue: SetConfigOptionDurationSeconds,
			ConfigKey:      &cfg.SlowSweepBuffer,
			FlagDefault:    int(defaults.SlowSweepBuffer.Seconds()),
			Required:       false,
		},
		{
			Name:        "slow-sweep-batch-size",
			Usage:       "Maximum number of transactions processed per sweep batch",
			OptType:     types.Int,
			ConfigKey:   &cfg.SlowSweepBatchSize,
			FlagDefault: defaults.SlowSweepBatchSize,
			Required:    false,
		},
		{
			Name:           "slow-sweep-inter-row-delay-ms",
			Usage:          "The pause in milliseconds between rows within a sweep batch",
			OptType:        types.Int,
			CustomSetValue: SetConfigOptionDurationMilliseconds,
			ConfigKey:      &cfg.SlowSweepInterRowDelay,
			FlagDefault:    int(defaults.SlowSweepInterRowDelay.Milliseconds()),
			Required:       false,
		},
		{
			Name:        "sweep-unverified",
			Usage:       "Also sweep pending transactions that never entered verification",
			OptType:     types.Bool,
			ConfigKey:   &cfg.SweepUnverified,
			FlagDefault: defaults.SweepUnverified,
			Required:    false,
		},
		{
			Name:           "lease-stale-seconds",
			Usage:          "Seconds after which another worker may steal a processing lease",
			OptType:        types.Int,
			CustomSetValue: SetConfigOptionDurationSeconds,
			ConfigKey:      &cfg.LeaseStale,
			FlagDefault:    int(defaults.LeaseStale.Seconds()),
			Required:       false,
		},
		{
			Name:           "provider-timeout-seconds",
			Usage:          "Timeout in seconds for a single provider clearance query",
			OptType:        types.Int,
			CustomSetValue: SetConfigOptionDurationSeconds,
			ConfigKey:      &cfg.ProviderTimeout,
			FlagDefault:    int(defaults.ProviderTimeout.Seconds()),
			Required:       false,
		},
		{
			Name:           "webhook-timeout-seconds",
			Usage:          "Timeout in seconds for the merchant webhook delivery",
			OptType:        types.Int,
			CustomSetValue: SetConfigOptionDurationSeconds,
			ConfigKey:      &cfg.WebhookTimeout,
			FlagDefault:    int(defaults.WebhookTimeout.Seconds()),
			Required:       false,
		},
		{
			Name:           "provider-retry-max-attempts",
			Usage:          fmt.Sprintf("Maximum provider query attempts per tick (default %d)", defaults.RetryMaxAttempts),
			OptType:        types.Int,
			CustomSetValue: SetConfigOptionRetryAttempts,
			ConfigKey:      &cfg.RetryMaxAttempts,
			FlagDefault:    int(defaults.RetryMaxAttempts),
			Required:       false,
		},
	}
}
