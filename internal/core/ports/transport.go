package ports

import (
	"context"

	"github.com/nbd-wtf/go-nostr"
)

// RelayTransport publishes signed events to relay sets and fetches events
// matching a filter. Per-relay failures are tolerated: Publish succeeds if at
// least one relay accepts, Fetch merges whatever the reachable relays return.
type RelayTransport interface {
	// Publish signs the template with the merchant key and delivers it to
	// every relay concurrently. The returned event carries the computed id
	// and signature.
	Publish(ctx context.Context, template nostr.Event, relays []string) (*nostr.Event, error)
	Fetch(ctx context.Context, relays []string, filter nostr.Filter) []*nostr.Event
	Close()
}

// RelayDirectory discovers where a counterparty listens. The merchant's own
// relay set is read-only after Bootstrap.
type RelayDirectory interface {
	// Bootstrap resolves the merchant's own published relay list via the
	// configured fallback relays, keeping the fallback set on any failure.
	Bootstrap(ctx context.Context)
	OwnRelays() []string
	// RelaysFor returns the relay set declared by pubkey, or nil on any
	// failure. Callers treat an empty result as "use fallback".
	RelaysFor(ctx context.Context, pubkey string) []string
	// PublishTargets is the merchant's own relay set merged with the
	// counterparty's declared relays, deduplicated.
	PublishTargets(ctx context.Context, pubkey string) []string
}
