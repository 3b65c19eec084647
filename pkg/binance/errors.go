package binance

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	// Interrupt marks errors that must never be retried.
	Interrupt = "⛔"
	// ServiceLimit is the text Binance returns when the caller is throttled for a long period.
	ServiceLimit = "Service invoked too many times"

	notAllParametersRead = "Not all sent parameters were read"
)

// ErrFilterNotFound is returned when a symbol lacks a LOT_SIZE or PRICE_FILTER filter.
var ErrFilterNotFound = errors.New("symbol filter not found")

// HTTPError is a non-200 response from the venue.
type HTTPError struct {
	Status int
	Body   string
	// Interrupted is set for responses that end the retry loop, e.g. 451.
	Interrupted bool
}

func (e *HTTPError) Error() string {
	if e.Interrupted {
		return fmt.Sprintf("%s %d %s", Interrupt, e.Status, e.Body)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Body)
}

// IsInterrupt reports whether err carries the interrupt marker.
func IsInterrupt(err error) bool {
	return err != nil && strings.Contains(err.Error(), Interrupt)
}

func nonRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, Interrupt) || strings.Contains(msg, ServiceLimit)
}

func errorContains(err error, text string) bool {
	return err != nil && strings.Contains(err.Error(), text)
}
