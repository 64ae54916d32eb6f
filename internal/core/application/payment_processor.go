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

// paymentProcessor acknowledges payment receipts: a status update event plus
// a thank-you DM, both best-effort. Receipts are trusted as signed claims; no
// check is made that the order was previously quoted.
type paymentProcessor struct {
	transport ports.RelayTransport
	directory ports.RelayDirectory
	notifier  ports.Notifier
	repo      domain.ProcessedRepository

	merchantPubkey string
	netTimeout     time.Duration
}

func (p *paymentProcessor) handleEvent(event *nostr.Event) {
	if !gamma.AddressedTo(event, p.merchantPubkey) {
		return
	}
	receipt := gamma.ParseReceipt(event)
	if receipt == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.netTimeout)
	defer cancel()

	first, err := p.repo.MarkReceipt(ctx, receipt.EventID)
	if err != nil {
		log.WithError(err).Errorf("failed to record receipt for order %s", shortOrderID(receipt.OrderID))
		return
	}
	if !first {
		log.Debugf("skipping duplicate receipt for order %s", shortOrderID(receipt.OrderID))
		return
	}

	go p.process(receipt)
}

func (p *paymentProcessor) process(receipt *gamma.Receipt) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf(
				"panic while processing receipt for order %s: %v\n%s",
				shortOrderID(receipt.OrderID), r, debug.Stack(),
			)
		}
	}()

	shortID := shortOrderID(receipt.OrderID)
	log.Infof(
		"payment received for order %s from %s: %d sats via %s",
		shortID, receipt.BuyerPubkey[:8], receipt.AmountSats, receipt.PaymentMethod,
	)

	if err := p.publishStatusUpdate(receipt); err != nil {
		log.WithError(err).Warnf("failed to publish status update for order %s (non-fatal)", shortID)
	}

	if err := p.sendThankYouMessage(receipt); err != nil {
		log.WithError(err).Warnf("failed to send thank-you DM for order %s (non-fatal)", shortID)
		return
	}
	log.Infof("order %s: thank-you DM sent", shortID)
}

func (p *paymentProcessor) publishStatusUpdate(receipt *gamma.Receipt) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.netTimeout)
	defer cancel()

	template := gamma.StatusUpdateTemplate(
		receipt.OrderID, receipt.BuyerPubkey, gamma.StatusConfirmed, "Payment received",
	)
	targets := p.directory.PublishTargets(ctx, receipt.BuyerPubkey)
	_, err := p.transport.Publish(ctx, template, targets)
	return err
}

func (p *paymentProcessor) sendThankYouMessage(receipt *gamma.Receipt) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.netTimeout)
	defer cancel()

	return p.notifier.Notify(ctx, receipt.BuyerPubkey, formatThankYouMessage(receipt.OrderID))
}
