package settle

import "errors"

var (
	ErrNoParticipants   = errors.New("no participants")
	ErrUnreconciled     = errors.New("balances do not reconcile")
	ErrInvalidPrecision = errors.New("precision must not be negative")
	ErrNoCombos         = errors.New("no combination to select from")
	ErrIndexMismatch    = errors.New("participant index does not match its position")
)
