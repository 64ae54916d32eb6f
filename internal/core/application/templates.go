package application

import "fmt"

func formatInvoiceMessage(orderID string, amountSats uint64, invoice string) string {
	return fmt.Sprintf(
		"⚡ Invoice for Order #%s\n\n"+
			"Amount: %s sats\n\n"+
			"Pay with Lightning:\nlightning:%s\n\n"+
			"Or copy the invoice and paste it in your wallet.",
		shortOrderID(orderID), formatSats(amountSats), invoice,
	)
}

func formatThankYouMessage(orderID string) string {
	return fmt.Sprintf(
		"✅ Thank you for your order!\n\n"+
			"Order #%s has been paid.\n\n"+
			"We'll process your order shortly and send shipping updates via Nostr DM.",
		shortOrderID(orderID),
	)
}

func shortOrderID(orderID string) string {
	if len(orderID) > 8 {
		return orderID[:8]
	}
	return orderID
}

// formatSats renders an amount with thousands separators, e.g. 5000 -> "5,000".
func formatSats(amount uint64) string {
	digits := fmt.Sprintf("%d", amount)
	if len(digits) <= 3 {
		return digits
	}

	var out []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, d)
	}
	return string(out)
}
