package gamma

import (
	"strconv"
	"time"

	"github.com/nbd-wtf/go-nostr"
)

// PaymentRequestTemplate builds an unsigned kind 16 type 2 event asking the
// buyer to settle the given invoice. The caller signs and publishes it.
func PaymentRequestTemplate(orderID, buyerPubkey string, amountSats uint64, invoice string) nostr.Event {
	return nostr.Event{
		Kind:      KindOrderMessage,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Content:   "Please pay this invoice to complete your order",
		Tags: nostr.Tags{
			{"p", buyerPubkey},
			{"type", TypePaymentRequest},
			{"order", orderID},
			{"amount", strconv.FormatUint(amountSats, 10)},
			{"payment", PaymentMethodLightning, invoice},
		},
	}
}

// StatusUpdateTemplate builds an unsigned kind 16 type 3 event notifying the
// buyer of an order status change.
func StatusUpdateTemplate(orderID, buyerPubkey, status, message string) nostr.Event {
	return nostr.Event{
		Kind:      KindOrderMessage,
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Content:   message,
		Tags: nostr.Tags{
			{"p", buyerPubkey},
			{"type", TypeStatusUpdate},
			{"order", orderID},
			{"status", status},
		},
	}
}
