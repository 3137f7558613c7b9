package deriv

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailed means the broker rejected the account credential.
	ErrAuthFailed = errors.New("authorization failed")
	// ErrQuoteRejected means no proposal id came back for a price quote.
	ErrQuoteRejected = errors.New("proposal rejected")
	// ErrPurchaseRejected means no contract id came back for a purchase.
	ErrPurchaseRejected = errors.New("purchase rejected")
	// ErrTransport covers dial, read and write failures on the connection.
	ErrTransport = errors.New("transport failure")
)

// APIError is the error object the broker embeds in a response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func transportError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrTransport, op, err)
}
