package booking

import (
	"errors"
	"fmt"

	"ms-booking/internal/store"
)

// Error kinds. Match with errors.Is; the client-facing text lives on *Error.
var (
	ErrValidation             = errors.New("validation failed")
	ErrSlotNotFound           = errors.New("time slot not found")
	ErrInsufficientCapacity   = errors.New("insufficient capacity")
	ErrInitiate               = errors.New("initiate payment failed")
	ErrPaymentInit            = errors.New("payment initialization failed")
	ErrPaymentVerification    = errors.New("payment verification failed")
	ErrMetadataNotFound       = errors.New("payment metadata not found")
	ErrIssuance               = errors.New("ticket issuance failed")
	ErrIntentFinalized        = store.ErrIntentFinalized
	ErrVerificationInProgress = errors.New("payment verification in progress")
	ErrTicketNotFound         = errors.New("ticket not found")
	ErrUnavailable            = errors.New("store unavailable")
)

const (
	msgMissingFields     = "Missing required fields or invalid number of people"
	msgInvalidEmail      = "Please enter a valid email address"
	msgInitiateFailed    = "Failed to initiate payment"
	msgInitFailed        = "Failed to initialize payment"
	msgVerifyFailed      = "Payment verification failed"
	msgMetadataNotFound  = "Payment metadata not found"
	msgIssuanceFailed    = "Failed to create ticket"
	msgIntentFinalized   = "Payment has already been finalized"
	msgVerifyInProgress  = "Payment verification already in progress"
	msgTicketNotFound    = "Ticket not found"
	msgInvalidStatus     = "Invalid ticket status"
	msgMissingReference  = "Missing payment reference"
	msgMissingScan       = "Missing ticket code"
	msgStoreUnavailable  = "Service temporarily unavailable"
	msgSlotNotFoundFmt   = "Time slot %s not found"
	msgNotEnoughSpotsFmt = "Not enough spots available for %s"
)

// Error pairs an error kind with the message shown to clients.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// PublicMessage is the text safe to return to a client for err.
func PublicMessage(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Message
	}
	return "Internal server error"
}
