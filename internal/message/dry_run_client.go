package message

import (
	"context"
	"fmt"
	"strings"
)

// dryRunClient prints messages to stdout instead of sending them. It is the
// default messenger in local development so confirmation and expiration
// notices can be inspected without provider credentials.
type dryRunClient struct{}

func NewDryRunClient() (MessengerClient, error) {
	return &dryRunClient{}, nil
}

func (c *dryRunClient) SendMessage(_ context.Context, message Message) error {
	recipient := message.ToEmail
	if recipient == "" {
		recipient = message.ToPhoneNumber
	}

	divider := strings.Repeat("-", 79)
	fmt.Println(divider)
	fmt.Println("To:", recipient)
	fmt.Println("Subject:", message.Title)
	fmt.Println("Body:", message.Body)
	fmt.Println(divider)

	return nil
}

func (c *dryRunClient) MessengerType() MessengerType {
	return MessengerTypeDryRun
}
