package application

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/RobotechyShop/orderd/internal/core/domain"
	"github.com/RobotechyShop/orderd/internal/core/ports"
	"github.com/RobotechyShop/orderd/pkg/gamma"
	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"
)

// orderProcessor turns incoming order creations into payment requests. Each
// order moves through processing to completed or failed exactly once; a
// failed order is never retried automatically, the buyer resubmitting under a
// new order id is the recovery path.
type orderProcessor struct {
	gateway   ports.InvoiceGateway
	transport ports.RelayTransport
	directory ports.RelayDirectory
	notifier  ports.Notifier
	repo      domain.ProcessedRepository

	merchantPubkey string
	dmDelay        time.Duration
	netTimeout     time.Duration
}

// handleEvent runs on the poller goroutine: it filters and claims the order,
// then hands off to a goroutine so a slow order never blocks detection of the
// next one.
func (p *orderProcessor) handleEvent(event *nostr.Event) {
	if !gamma.AddressedTo(event, p.merchantPubkey) {
		return
	}
	order := gamma.ParseOrder(event)
	if order == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.netTimeout)
	defer cancel()

	first, err := p.repo.MarkOrder(ctx, order.ID)
	if err != nil {
		log.WithError(err).Errorf("failed to record order %s", shortOrderID(order.ID))
		return
	}
	if !first {
		log.Debugf("skipping duplicate order %s", shortOrderID(order.ID))
		return
	}

	go p.process(order)
}

func (p *orderProcessor) process(order *gamma.Order) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf(
				"panic while processing order %s: %v\n%s",
				shortOrderID(order.ID), r, debug.Stack(),
			)
		}
	}()

	shortID := shortOrderID(order.ID)
	log.Infof(
		"new order %s from %s: %d sats, %d items",
		shortID, order.BuyerPubkey[:8], order.AmountSats, len(order.Items),
	)

	invoice, err := p.generateInvoice(order)
	if err != nil {
		log.WithError(err).Errorf("failed to generate invoice for order %s", shortID)
		return
	}
	// Logged before publish so a spent invoice can be reconciled by hand if
	// the payment request never reaches a relay.
	log.Infof("order %s: invoice issued for %d sats: %s", shortID, order.AmountSats, invoice)

	if err := p.publishPaymentRequest(order, invoice); err != nil {
		log.WithError(err).Errorf("failed to publish payment request for order %s", shortID)
		return
	}
	log.Infof("order %s: payment request published", shortID)

	// courtesy pause so relays don't rate-limit two writes back to back
	time.Sleep(p.dmDelay)

	if err := p.sendInvoiceMessage(order, invoice); err != nil {
		log.WithError(err).Warnf("failed to send invoice DM for order %s (non-fatal)", shortID)
		return
	}
	log.Infof("order %s: invoice DM sent", shortID)
}

func (p *orderProcessor) generateInvoice(order *gamma.Order) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.netTimeout)
	defer cancel()
	return p.gateway.GenerateInvoice(ctx, order.AmountSats, order.ID)
}

func (p *orderProcessor) publishPaymentRequest(order *gamma.Order, invoice string) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.netTimeout)
	defer cancel()

	template := gamma.PaymentRequestTemplate(order.ID, order.BuyerPubkey, order.AmountSats, invoice)
	targets := p.directory.PublishTargets(ctx, order.BuyerPubkey)
	_, err := p.transport.Publish(ctx, template, targets)
	return err
}

func (p *orderProcessor) sendInvoiceMessage(order *gamma.Order, invoice string) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.netTimeout)
	defer cancel()

	message := formatInvoiceMessage(order.ID, order.AmountSats, invoice)
	return p.notifier.Notify(ctx, order.BuyerPubkey, message)
}
