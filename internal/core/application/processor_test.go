package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RobotechyShop/orderd/pkg/gamma"
	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/require"
)

const (
	buyerPubkey    = "25a43cecfa0e1b1a4f72d64ad15f4cfa7a84d0723e8511c969aa543638ea9967"
	merchantPubkey = "33ffb3dee353b1a9ebe4ced64b946238d0a4ac364f275d771da6ad2445d07ae0"
	testOrderID    = "abcd1234ef567890"
)

type stubGateway struct {
	lock    sync.Mutex
	calls   int
	invoice string
	err     error
}

func (g *stubGateway) GenerateInvoice(_ context.Context, _ uint64, _ string) (string, error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.calls++
	return g.invoice, g.err
}

func (g *stubGateway) Validate(_ context.Context) error { return g.err }

func (g *stubGateway) callCount() int {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.calls
}

type recordingTransport struct {
	lock      sync.Mutex
	published []nostr.Event
	err       error
	batches   [][]*nostr.Event
	filters   []nostr.Filter
}

func (t *recordingTransport) Publish(
	_ context.Context, template nostr.Event, _ []string,
) (*nostr.Event, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	t.published = append(t.published, template)
	return &template, nil
}

func (t *recordingTransport) Fetch(
	_ context.Context, _ []string, filter nostr.Filter,
) []*nostr.Event {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.filters = append(t.filters, filter)
	if len(t.batches) == 0 {
		return nil
	}
	batch := t.batches[0]
	t.batches = t.batches[1:]
	return batch
}

func (t *recordingTransport) Close() {}

func (t *recordingTransport) publishedEvents() []nostr.Event {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]nostr.Event{}, t.published...)
}

type stubDirectory struct {
	relays []string
}

func (d *stubDirectory) Bootstrap(_ context.Context)                 {}
func (d *stubDirectory) OwnRelays() []string                         { return d.relays }
func (d *stubDirectory) RelaysFor(_ context.Context, _ string) []string { return nil }
func (d *stubDirectory) PublishTargets(_ context.Context, _ string) []string {
	return d.relays
}

type recordingNotifier struct {
	lock     sync.Mutex
	messages []string
	pubkeys  []string
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, pubkey string, message string) error {
	n.lock.Lock()
	defer n.lock.Unlock()
	if n.err != nil {
		return n.err
	}
	n.pubkeys = append(n.pubkeys, pubkey)
	n.messages = append(n.messages, message)
	return nil
}

func (n *recordingNotifier) sent() []string {
	n.lock.Lock()
	defer n.lock.Unlock()
	return append([]string{}, n.messages...)
}

type memRepo struct {
	lock     sync.Mutex
	orders   map[string]struct{}
	receipts map[string]struct{}
}

func newMemRepo() *memRepo {
	return &memRepo{orders: make(map[string]struct{}), receipts: make(map[string]struct{})}
}

func (r *memRepo) MarkOrder(_ context.Context, orderID string) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.orders[orderID]; ok {
		return false, nil
	}
	r.orders[orderID] = struct{}{}
	return true, nil
}

func (r *memRepo) MarkReceipt(_ context.Context, eventID string) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.receipts[eventID]; ok {
		return false, nil
	}
	r.receipts[eventID] = struct{}{}
	return true, nil
}

func (r *memRepo) Evict(_ context.Context, _ time.Time) error { return nil }
func (r *memRepo) Close()                                     {}

func newOrderEvent(orderID string) *nostr.Event {
	return &nostr.Event{
		ID:        "49c477c5f042bfba70e1d8979b76c6a2bfa7e08318379e9f6cea8a76c8c1f034",
		PubKey:    buyerPubkey,
		Kind:      gamma.KindOrderMessage,
		CreatedAt: nostr.Now(),
		Tags: nostr.Tags{
			{"p", merchantPubkey},
			{"type", gamma.TypeOrderCreation},
			{"order", orderID},
			{"amount", "5000"},
			{"item", "30402:" + merchantPubkey + ":widget", "1"},
		},
	}
}

func newReceiptEvent(id, orderID string) *nostr.Event {
	return &nostr.Event{
		ID:        id,
		PubKey:    buyerPubkey,
		Kind:      gamma.KindPaymentReceipt,
		CreatedAt: nostr.Now(),
		Tags: nostr.Tags{
			{"p", merchantPubkey},
			{"order", orderID},
			{"payment", gamma.PaymentMethodLightning, "lnbc50u1...", "deadbeef"},
			{"amount", "5000"},
		},
	}
}

func newOrderProcessor(
	gateway *stubGateway, transport *recordingTransport, notifier *recordingNotifier,
) *orderProcessor {
	return &orderProcessor{
		gateway:        gateway,
		transport:      transport,
		directory:      &stubDirectory{relays: []string{"wss://relay.example"}},
		notifier:       notifier,
		repo:           newMemRepo(),
		merchantPubkey: merchantPubkey,
		dmDelay:        0,
		netTimeout:     time.Second,
	}
}

func TestOrderProcessor(t *testing.T) {
	t.Run("processes_order_once", func(t *testing.T) {
		gateway := &stubGateway{invoice: "lnbc50u1testinvoice"}
		transport := &recordingTransport{}
		notifier := &recordingNotifier{}
		proc := newOrderProcessor(gateway, transport, notifier)

		for i := 0; i < 5; i++ {
			proc.handleEvent(newOrderEvent(testOrderID))
		}

		require.Eventually(t, func() bool {
			return len(notifier.sent()) > 0
		}, 2*time.Second, 10*time.Millisecond)
		// allow any extra (incorrect) duplicate processing to surface
		time.Sleep(100 * time.Millisecond)

		require.Equal(t, 1, gateway.callCount())

		published := transport.publishedEvents()
		require.Len(t, published, 1)
		require.Equal(t, gamma.KindOrderMessage, published[0].Kind)
		require.Contains(t, published[0].Tags, nostr.Tag{"p", buyerPubkey})
		require.Contains(t, published[0].Tags, nostr.Tag{"type", gamma.TypePaymentRequest})
		require.Contains(t, published[0].Tags, nostr.Tag{"order", testOrderID})
		require.Contains(t, published[0].Tags, nostr.Tag{"amount", "5000"})
		require.Contains(t, published[0].Tags, nostr.Tag{
			"payment", gamma.PaymentMethodLightning, "lnbc50u1testinvoice",
		})

		messages := notifier.sent()
		require.Len(t, messages, 1)
		require.Contains(t, messages[0], "5,000 sats")
		require.Contains(t, messages[0], "lnbc50u1testinvoice")
		require.Equal(t, []string{buyerPubkey}, notifier.pubkeys)
	})

	t.Run("ignores_events_for_other_recipients", func(t *testing.T) {
		gateway := &stubGateway{invoice: "lnbc"}
		transport := &recordingTransport{}
		proc := newOrderProcessor(gateway, transport, &recordingNotifier{})

		event := newOrderEvent(testOrderID)
		event.Tags[0] = nostr.Tag{"p", buyerPubkey}
		proc.handleEvent(event)

		time.Sleep(50 * time.Millisecond)
		require.Zero(t, gateway.callCount())
	})

	t.Run("gateway_failure_fails_order_without_publish", func(t *testing.T) {
		gateway := &stubGateway{err: errors.New("resolution failed")}
		transport := &recordingTransport{}
		notifier := &recordingNotifier{}
		proc := newOrderProcessor(gateway, transport, notifier)

		proc.handleEvent(newOrderEvent(testOrderID))

		require.Eventually(t, func() bool {
			return gateway.callCount() == 1
		}, 2*time.Second, 10*time.Millisecond)
		time.Sleep(50 * time.Millisecond)

		require.Empty(t, transport.publishedEvents())
		require.Empty(t, notifier.sent())

		// the failed order stays claimed, a resubmission is not reprocessed
		proc.handleEvent(newOrderEvent(testOrderID))
		time.Sleep(50 * time.Millisecond)
		require.Equal(t, 1, gateway.callCount())
	})

	t.Run("publish_failure_skips_dm", func(t *testing.T) {
		gateway := &stubGateway{invoice: "lnbc"}
		transport := &recordingTransport{err: errors.New("failed to publish event to any relay")}
		notifier := &recordingNotifier{}
		proc := newOrderProcessor(gateway, transport, notifier)

		proc.handleEvent(newOrderEvent(testOrderID))

		require.Eventually(t, func() bool {
			return gateway.callCount() == 1
		}, 2*time.Second, 10*time.Millisecond)
		time.Sleep(50 * time.Millisecond)

		require.Empty(t, notifier.sent())
	})

	t.Run("dm_failure_is_non_fatal", func(t *testing.T) {
		gateway := &stubGateway{invoice: "lnbc"}
		transport := &recordingTransport{}
		notifier := &recordingNotifier{err: errors.New("no relay accepted the DM")}
		proc := newOrderProcessor(gateway, transport, notifier)

		proc.handleEvent(newOrderEvent(testOrderID))

		require.Eventually(t, func() bool {
			return len(transport.publishedEvents()) == 1
		}, 2*time.Second, 10*time.Millisecond)
	})
}

func TestPaymentProcessor(t *testing.T) {
	receiptID := "9c86425c51cd7f7f53ed83a8d911e9b1b65e64b4a4c0ecb2377b78bcbaf7bc30"

	newProcessor := func(transport *recordingTransport, notifier *recordingNotifier) *paymentProcessor {
		return &paymentProcessor{
			transport:      transport,
			directory:      &stubDirectory{relays: []string{"wss://relay.example"}},
			notifier:       notifier,
			repo:           newMemRepo(),
			merchantPubkey: merchantPubkey,
			netTimeout:     time.Second,
		}
	}

	t.Run("acknowledges_receipt_once", func(t *testing.T) {
		transport := &recordingTransport{}
		notifier := &recordingNotifier{}
		proc := newProcessor(transport, notifier)

		for i := 0; i < 5; i++ {
			proc.handleEvent(newReceiptEvent(receiptID, testOrderID))
		}

		require.Eventually(t, func() bool {
			return len(notifier.sent()) > 0
		}, 2*time.Second, 10*time.Millisecond)
		time.Sleep(100 * time.Millisecond)

		messages := notifier.sent()
		require.Len(t, messages, 1)
		require.Contains(t, messages[0], "Thank you for your order")
		require.Contains(t, messages[0], "abcd1234")

		published := transport.publishedEvents()
		require.Len(t, published, 1)
		require.Contains(t, published[0].Tags, nostr.Tag{"type", gamma.TypeStatusUpdate})
		require.Contains(t, published[0].Tags, nostr.Tag{"status", gamma.StatusConfirmed})
	})

	t.Run("acknowledges_receipt_for_unknown_order", func(t *testing.T) {
		notifier := &recordingNotifier{}
		proc := newProcessor(&recordingTransport{}, notifier)

		proc.handleEvent(newReceiptEvent(receiptID, "never-quoted-order"))

		require.Eventually(t, func() bool {
			return len(notifier.sent()) == 1
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("status_update_failure_does_not_block_dm", func(t *testing.T) {
		transport := &recordingTransport{err: errors.New("failed to publish event to any relay")}
		notifier := &recordingNotifier{}
		proc := newProcessor(transport, notifier)

		proc.handleEvent(newReceiptEvent(receiptID, testOrderID))

		require.Eventually(t, func() bool {
			return len(notifier.sent()) == 1
		}, 2*time.Second, 10*time.Millisecond)
	})
}

func TestFormatSats(t *testing.T) {
	fixtures := []struct {
		amount   uint64
		expected string
	}{
		{amount: 0, expected: "0"},
		{amount: 999, expected: "999"},
		{amount: 5000, expected: "5,000"},
		{amount: 123456789, expected: "123,456,789"},
	}

	for _, f := range fixtures {
		require.Equal(t, f.expected, formatSats(f.amount))
	}
}
