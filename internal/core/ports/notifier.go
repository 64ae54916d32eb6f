package ports

import "context"

// Notifier delivers an encrypted human-readable message to a counterparty.
type Notifier interface {
	Notify(ctx context.Context, pubkey string, message string) error
}
