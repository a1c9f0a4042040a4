package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	log "github.com/sirupsen/logrus"
)

// RetryConfig shapes the exponential backoff wrapped around every clearance query.
type RetryConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	MaxAttempts  uint
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: 1 * time.Second,
		Multiplier:   2.0,
		MaxDelay:     30 * time.Second,
		MaxAttempts:  3,
	}
}

// RetryingClient decorates a ClientInterface with exponential backoff. A query that still
// fails after the last attempt surfaces the last error to the caller.
type RetryingClient struct {
	client ClientInterface
	config RetryConfig
}

func NewRetryingClient(client ClientInterface, config RetryConfig) *RetryingClient {
	if config.MaxAttempts == 0 {
		config = DefaultRetryConfig()
	}
	return &RetryingClient{client: client, config: config}
}

func (rc *RetryingClient) QueryClearance(ctx context.Context, req ClearanceRequest) (ClearanceStatus, error) {
	var status ClearanceStatus

	err := retry.Do(
		func() error {
			var queryErr error
			status, queryErr = rc.client.QueryClearance(ctx, req)
			return queryErr
		},
		retry.Context(ctx),
		retry.Attempts(rc.config.MaxAttempts),
		retry.Delay(rc.config.InitialDelay),
		retry.MaxDelay(rc.config.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.WithContext(ctx).Warnf("clearance query attempt %d for txid %q failed: %v", n+1, req.ProviderRef, err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("querying clearance after %d attempts: %w", rc.config.MaxAttempts, err)
	}

	return status, nil
}

var _ ClientInterface = (*RetryingClient)(nil)
