package gamma

import (
	"strconv"

	"github.com/nbd-wtf/go-nostr"
)

type OrderItem struct {
	// ProductRef is an addressable product coordinate, e.g. "30402:<pubkey>:<d-tag>".
	ProductRef string
	Quantity   int
}

type Order struct {
	ID          string
	BuyerPubkey string
	AmountSats  uint64
	Items       []OrderItem
	Address     string
	Email       string
	Phone       string
	Message     string
	CreatedAt   nostr.Timestamp
}

// ParseOrder extracts an order creation from a kind 16 type 1 event.
// It returns nil for any other kind or type, and for events missing the
// mandatory order or amount tags. Malformed optional tags never fail the
// parse, they are defaulted.
func ParseOrder(event *nostr.Event) *Order {
	if event == nil || event.Kind != KindOrderMessage {
		return nil
	}
	if tagValue(event, "type") != TypeOrderCreation {
		return nil
	}

	orderID := tagValue(event, "order")
	rawAmount := tagValue(event, "amount")
	if orderID == "" || rawAmount == "" {
		return nil
	}

	amount, err := strconv.ParseUint(rawAmount, 10, 64)
	if err != nil || amount == 0 {
		return nil
	}

	var items []OrderItem
	for _, tag := range event.Tags {
		if len(tag) < 2 || tag[0] != "item" {
			continue
		}
		quantity := 1
		if len(tag) >= 3 {
			if q, err := strconv.Atoi(tag[2]); err == nil && q >= 1 {
				quantity = q
			}
		}
		items = append(items, OrderItem{ProductRef: tag[1], Quantity: quantity})
	}

	return &Order{
		ID:          orderID,
		BuyerPubkey: event.PubKey,
		AmountSats:  amount,
		Items:       items,
		Address:     tagValue(event, "address"),
		Email:       tagValue(event, "email"),
		Phone:       tagValue(event, "phone"),
		Message:     event.Content,
		CreatedAt:   event.CreatedAt,
	}
}
