package nostr_relay

import (
	"context"
	"fmt"
	"time"

	"github.com/RobotechyShop/orderd/internal/core/ports"
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip04"
)

type notifier struct {
	transport ports.RelayTransport
	directory ports.RelayDirectory
	secretKey string
}

// NewNotifier sends NIP-04 encrypted direct messages signed with the merchant
// key, published to the union of the merchant's and the recipient's relays.
func NewNotifier(
	transport ports.RelayTransport, directory ports.RelayDirectory, secretKey string,
) ports.Notifier {
	return &notifier{transport: transport, directory: directory, secretKey: secretKey}
}

func (n *notifier) Notify(ctx context.Context, pubkey string, message string) error {
	if !nostr.IsValidPublicKey(pubkey) {
		return fmt.Errorf("invalid nostr public key: %s", pubkey)
	}

	sharedSecret, err := nip04.ComputeSharedSecret(pubkey, n.secretKey)
	if err != nil {
		return fmt.Errorf("failed to compute shared secret: %w", err)
	}

	encryptedMsg, err := nip04.Encrypt(message, sharedSecret)
	if err != nil {
		return fmt.Errorf("failed to encrypt message for recipient %s: %w", pubkey, err)
	}

	event := nostr.Event{
		Kind:      nostr.KindEncryptedDirectMessage,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Tags:      nostr.Tags{{"p", pubkey}},
		Content:   encryptedMsg,
	}

	targets := n.directory.PublishTargets(ctx, pubkey)
	if _, err := n.transport.Publish(ctx, event, targets); err != nil {
		return err
	}
	return nil
}
