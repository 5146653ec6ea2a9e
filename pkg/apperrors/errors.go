package apperrors

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrInvalidInput           = errors.New("invalid input")
	ErrProviderNotConfigured  = errors.New("generation provider not configured")
	ErrUpgradeRequired        = errors.New("subscription upgrade required")
	ErrGenerationFailed       = errors.New("generation failed")
	ErrUnknownColumnExhausted = errors.New("insert failed after dropping unknown columns")
)
