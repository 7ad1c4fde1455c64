package domain

import "github.com/pkg/errors"

// Workflow errors. They are caller-recoverable and surfaced verbatim; match them
// with errors.Is since services wrap them with context.
var (
	ErrNoOpenSession         = errors.New("no open register session today")
	ErrSessionAlreadyOpen    = errors.New("a register session is already open today")
	ErrSessionNotFound       = errors.New("register session not found")
	ErrSessionAlreadyClosed  = errors.New("register session already closed")
	ErrProductNotFound       = errors.New("product not found")
	ErrTableNotFound         = errors.New("table not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrInvalidTransition     = errors.New("invalid order state transition")
	ErrOrderAlreadyCompleted = errors.New("order already completed")
	ErrInvalidOrder          = errors.New("invalid order request")
	ErrInvalidConversion     = errors.New("invalid derived product configuration")
	ErrProductInactive       = errors.New("product is inactive")
	ErrTableUnavailable      = errors.New("table is not available")
	ErrDuplicateTable        = errors.New("table number already exists")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidDate           = errors.New("invalid date")
	ErrInvalidProduct        = errors.New("invalid product")
	ErrInvalidTable          = errors.New("invalid table")
)
