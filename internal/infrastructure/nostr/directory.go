package nostr_relay

import (
	"context"

	"github.com/RobotechyShop/orderd/internal/core/ports"
	"github.com/nbd-wtf/go-nostr"
	"github.com/sirupsen/logrus"
)

type directory struct {
	transport      ports.RelayTransport
	merchantPubkey string
	fallbackRelays []string

	// set once by Bootstrap, read-only afterwards
	ownRelays []string
}

// NewDirectory resolves relay sets from published NIP-65 relay lists. Until
// Bootstrap runs, the merchant's own set is the configured fallback list.
func NewDirectory(
	transport ports.RelayTransport, merchantPubkey string, fallbackRelays []string,
) ports.RelayDirectory {
	return &directory{
		transport:      transport,
		merchantPubkey: merchantPubkey,
		fallbackRelays: fallbackRelays,
		ownRelays:      fallbackRelays,
	}
}

func (d *directory) Bootstrap(ctx context.Context) {
	relays := d.RelaysFor(ctx, d.merchantPubkey)
	if len(relays) == 0 {
		logrus.Infof("no published relay list found, using %d fallback relays", len(d.fallbackRelays))
		return
	}
	d.ownRelays = relays
	logrus.Infof("using %d relays from published relay list", len(relays))
}

func (d *directory) OwnRelays() []string {
	return d.ownRelays
}

func (d *directory) RelaysFor(ctx context.Context, pubkey string) []string {
	events := d.transport.Fetch(ctx, d.ownRelays, nostr.Filter{
		Kinds:   []int{nostr.KindRelayListMetadata},
		Authors: []string{pubkey},
		Limit:   1,
	})
	if len(events) == 0 {
		return nil
	}

	// Relays may hold stale copies of a replaceable event, keep the newest.
	newest := events[0]
	for _, event := range events[1:] {
		if event.CreatedAt > newest.CreatedAt {
			newest = event
		}
	}

	relays := make([]string, 0, len(newest.Tags))
	for _, tag := range newest.Tags {
		if len(tag) >= 2 && tag[0] == "r" && tag[1] != "" {
			relays = append(relays, tag[1])
		}
	}
	return relays
}

func (d *directory) PublishTargets(ctx context.Context, pubkey string) []string {
	seen := make(map[string]struct{})
	targets := make([]string, 0, len(d.ownRelays))

	merged := append(append([]string{}, d.ownRelays...), d.RelaysFor(ctx, pubkey)...)
	for _, url := range merged {
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		targets = append(targets, url)
	}
	return targets
}
