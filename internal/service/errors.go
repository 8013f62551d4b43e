package service

import "errors"

// Failure kinds surfaced to the webhook caller. The handler maps these to
// HTTP statuses; paypal redelivers on anything that is not 2xx, so only
// outcomes that are safe to retry may map to an error status.
var (
	// ErrSignatureInvalid: verification_status was not SUCCESS. The event is
	// treated as forged and nothing is mutated.
	ErrSignatureInvalid = errors.New("webhook signature verification failed")

	// ErrData: the event or the invoice it references is unusable (missing
	// invoice id, unknown invoice, unreadable payload).
	ErrData = errors.New("invalid webhook data")

	// ErrAlreadyPaid rejects creating a checkout link for a settled invoice.
	ErrAlreadyPaid = errors.New("invoice already paid")
)
