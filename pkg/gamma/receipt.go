package gamma

import (
	"strconv"

	"github.com/nbd-wtf/go-nostr"
)

type Receipt struct {
	EventID       string
	OrderID       string
	BuyerPubkey   string
	PaymentMethod string
	Invoice       string
	Preimage      string
	AmountSats    uint64
	CreatedAt     nostr.Timestamp
}

// ParseReceipt extracts a payment receipt from a kind 17 event. The order and
// payment tags are mandatory; a missing or unparsable amount defaults to 0.
func ParseReceipt(event *nostr.Event) *Receipt {
	if event == nil || event.Kind != KindPaymentReceipt {
		return nil
	}

	orderID := tagValue(event, "order")
	if orderID == "" {
		return nil
	}

	var method, invoice, preimage string
	for _, tag := range event.Tags {
		if len(tag) >= 2 && tag[0] == "payment" {
			method = tag[1]
			if len(tag) >= 3 {
				invoice = tag[2]
			}
			if len(tag) >= 4 {
				preimage = tag[3]
			}
			break
		}
	}
	if method == "" {
		return nil
	}

	amount, err := strconv.ParseUint(tagValue(event, "amount"), 10, 64)
	if err != nil {
		amount = 0
	}

	return &Receipt{
		EventID:       event.ID,
		OrderID:       orderID,
		BuyerPubkey:   event.PubKey,
		PaymentMethod: method,
		Invoice:       invoice,
		Preimage:      preimage,
		AmountSats:    amount,
		CreatedAt:     event.CreatedAt,
	}
}
