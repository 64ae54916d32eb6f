package nostr_relay

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// DecodeNsec decodes a NIP-19 encoded secret key and derives its public key.
// Both are returned hex-encoded.
func DecodeNsec(nsec string) (secretKey string, pubkey string, err error) {
	prefix, data, err := nip19.Decode(nsec)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode NIP-19 string: %w", err)
	}
	if prefix != "nsec" {
		return "", "", fmt.Errorf("expected nsec, got %s", prefix)
	}

	secretKey, ok := data.(string)
	if !ok {
		return "", "", fmt.Errorf("invalid NIP-19 payload: %v", data)
	}

	pubkey, err = nostr.GetPublicKey(secretKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to derive public key: %w", err)
	}
	return secretKey, pubkey, nil
}
