// Package gamma implements the Gamma Markets order messaging convention on
// top of nostr events: kind 16 order messages discriminated by a "type" tag,
// and kind 17 payment receipts.
package gamma

import "github.com/nbd-wtf/go-nostr"

const (
	KindOrderMessage   = 16
	KindPaymentReceipt = 17
)

// Values of the "type" tag on kind 16 events.
const (
	TypeOrderCreation  = "1"
	TypePaymentRequest = "2"
	TypeStatusUpdate   = "3"
	TypeShippingUpdate = "4"
)

// Order statuses carried by status-update messages.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const PaymentMethodLightning = "lightning"

// AddressedTo reports whether the event carries a "p" tag pointing at pubkey.
// Relay-side #p filtering is unreliable, so consumers re-check here.
func AddressedTo(event *nostr.Event, pubkey string) bool {
	for _, tag := range event.Tags {
		if len(tag) >= 2 && tag[0] == "p" && tag[1] == pubkey {
			return true
		}
	}
	return false
}

func tagValue(event *nostr.Event, name string) string {
	for _, tag := range event.Tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag[1]
		}
	}
	return ""
}
