package domain

import "errors"

var (
	ErrServiceRequired   = errors.New("service_required")
	ErrInvalidService    = errors.New("invalid_service")
	ErrUnknownService    = errors.New("unknown_service")
	ErrTimestampRequired = errors.New("timestamp_required")
	ErrInvalidDateFormat = errors.New("invalid_date_format")
	ErrQuantityRequired  = errors.New("quantity_required")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrNotFound          = errors.New("not_found")
	ErrMissingCompany    = errors.New("missing_company")
)
