package domain

import "errors"

// User-facing messages returned in the RPC error payload.
const (
	AccessDeniedMsg          = "Authentication failed. Check your credentials or contact the system administrator."
	InvalidTelecomServiceMsg = "Invalid Telecom Service Template ID or Name provided. Check the ID or Name and try again."
	UnknownTelecomServiceMsg = "The Telecom Service Template ID or Name provided does not exist."
	InvalidDateFormatMsg     = "Invalid date format."
	InvalidConsumptionQtyMsg = "Invalid consumption quantity provided. Check the quantity and try again."
	MissingTelecomServiceMsg = "To create a consumption you must provide a Telecom Service Template ID or Name."
	MissingConsumptionQtyMsg = "To create a consumption you must provide a consumption quantity."
	MissingDateMsg           = "To create a consumption you must provide a consumption timestamp."
	MissingConsumptionMsg    = "Consumption not found. Check the ID provided and try again."
)

var userMessages = map[error]string{
	ErrServiceRequired:   MissingTelecomServiceMsg,
	ErrInvalidService:    InvalidTelecomServiceMsg,
	ErrUnknownService:    UnknownTelecomServiceMsg,
	ErrTimestampRequired: MissingDateMsg,
	ErrInvalidDateFormat: InvalidDateFormatMsg,
	ErrQuantityRequired:  MissingConsumptionQtyMsg,
	ErrInvalidQuantity:   InvalidConsumptionQtyMsg,
	ErrNotFound:          MissingConsumptionMsg,
}

// UserMessage returns the message shown to API callers for a consumption error.
func UserMessage(err error) (string, bool) {
	for sentinel, msg := range userMessages {
		if errors.Is(err, sentinel) {
			return msg, true
		}
	}
	return "", false
}

// IsValidationError reports whether err rejects caller input.
func IsValidationError(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return false
	}
	_, ok := UserMessage(err)
	return ok
}
