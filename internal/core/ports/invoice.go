package ports

import "context"

// InvoiceGateway mints bounded-amount Lightning invoices for a merchant
// payment address.
type InvoiceGateway interface {
	// GenerateInvoice returns an opaque invoice string for the given amount,
	// with a short order reference attached as the payment comment.
	GenerateInvoice(ctx context.Context, amountSats uint64, orderID string) (string, error)
	// Validate resolves the merchant payment address and reports whether it
	// is usable. Run once at startup to fail fast.
	Validate(ctx context.Context) error
}
