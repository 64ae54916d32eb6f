package lnurl

import "fmt"

// ResolutionError means the lightning address could not be resolved to a
// usable LNURL-pay endpoint.
type ResolutionError struct {
	Address string
	Cause   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve lightning address %s: %s", e.Address, e.Cause)
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// AmountOutOfRangeError means the requested amount falls outside the
// endpoint's declared sendable range. Raised before any callback request.
type AmountOutOfRangeError struct {
	AmountMsat  uint64
	MinSendable uint64
	MaxSendable uint64
}

func (e *AmountOutOfRangeError) Error() string {
	return fmt.Sprintf(
		"amount %d msat outside sendable range [%d, %d]",
		e.AmountMsat, e.MinSendable, e.MaxSendable,
	)
}

// InvoiceRequestError means the callback request for an invoice failed.
type InvoiceRequestError struct {
	Cause error
}

func (e *InvoiceRequestError) Error() string {
	return fmt.Sprintf("failed to request invoice: %s", e.Cause)
}

func (e *InvoiceRequestError) Unwrap() error {
	return e.Cause
}
