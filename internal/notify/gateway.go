// Package notify delivers alert messages to check owners.
//
// A [Gateway] sends one text message to one phone number and reports the
// result synchronously. Implementations:
//
//   - [Twilio]: SMS through the Twilio Messages REST endpoint
//   - [NATS]: publishes the alert as JSON for another service to deliver
//   - [Log]: writes the alert to the logger, used when no provider is configured
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jpalmerr/pulsecheck/internal/model"
)

// MaxMessageLength is the longest body a gateway accepts.
const MaxMessageLength = 1600

// ErrInvalidMessage is returned for a malformed phone number or message body.
var ErrInvalidMessage = errors.New("given parameters were missing or invalid")

// Gateway sends a text message to a phone number.
type Gateway interface {
	Send(ctx context.Context, phone, message string) error
}

// normalize trims both arguments and validates them.
func normalize(phone, message string) (string, string, error) {
	phone = strings.TrimSpace(phone)
	message = strings.TrimSpace(message)

	if len(phone) != model.PhoneLength {
		return "", "", fmt.Errorf("%w: phone %q", ErrInvalidMessage, phone)
	}
	n := utf8.RuneCountInString(message)
	if n == 0 || n > MaxMessageLength {
		return "", "", fmt.Errorf("%w: message length %d", ErrInvalidMessage, n)
	}
	return phone, message, nil
}
