package application

import (
	"context"
	"fmt"
	"time"

	"github.com/RobotechyShop/orderd/internal/core/domain"
	"github.com/RobotechyShop/orderd/internal/core/ports"
	"github.com/RobotechyShop/orderd/pkg/gamma"
	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"
)

const evictionInterval = time.Hour

type Service interface {
	Start() error
	Stop()
}

type service struct {
	merchantPubkey string

	gateway   ports.InvoiceGateway
	transport ports.RelayTransport
	directory ports.RelayDirectory
	notifier  ports.Notifier
	scheduler ports.SchedulerService
	repo      domain.ProcessedRepository

	pollInterval   time.Duration
	pollJitter     time.Duration
	dmDelay        time.Duration
	netTimeout     time.Duration
	dedupRetention time.Duration

	subscriptions []*subscription
	stopEviction  ports.StopFunc
}

func NewService(
	merchantPubkey string,
	gateway ports.InvoiceGateway,
	transport ports.RelayTransport,
	directory ports.RelayDirectory,
	notifier ports.Notifier,
	scheduler ports.SchedulerService,
	repo domain.ProcessedRepository,
	pollInterval, pollJitter, dmDelay, netTimeout, dedupRetention time.Duration,
) Service {
	return &service{
		merchantPubkey: merchantPubkey,
		gateway:        gateway,
		transport:      transport,
		directory:      directory,
		notifier:       notifier,
		scheduler:      scheduler,
		repo:           repo,
		pollInterval:   pollInterval,
		pollJitter:     pollJitter,
		dmDelay:        dmDelay,
		netTimeout:     netTimeout,
		dedupRetention: dedupRetention,
	}
}

func (s *service) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.netTimeout)
	defer cancel()

	if err := s.gateway.Validate(ctx); err != nil {
		return fmt.Errorf("invalid lightning address: %w", err)
	}
	log.Info("lightning address validated")

	s.directory.Bootstrap(ctx)

	s.scheduler.Start()

	orderProc := &orderProcessor{
		gateway:        s.gateway,
		transport:      s.transport,
		directory:      s.directory,
		notifier:       s.notifier,
		repo:           s.repo,
		merchantPubkey: s.merchantPubkey,
		dmDelay:        s.dmDelay,
		netTimeout:     s.netTimeout,
	}
	paymentProc := &paymentProcessor{
		transport:      s.transport,
		directory:      s.directory,
		notifier:       s.notifier,
		repo:           s.repo,
		merchantPubkey: s.merchantPubkey,
		netTimeout:     s.netTimeout,
	}

	// Relay-side #p filtering is unreliable, the processors re-check both
	// the recipient and the type tag on every event.
	subs := []*subscription{
		newSubscription(
			"orders", s.transport, s.directory,
			nostr.Filter{
				Kinds: []int{gamma.KindOrderMessage},
				Tags:  nostr.TagMap{"p": []string{s.merchantPubkey}},
			},
			s.netTimeout, orderProc.handleEvent,
		),
		newSubscription(
			"receipts", s.transport, s.directory,
			nostr.Filter{
				Kinds: []int{gamma.KindPaymentReceipt},
				Tags:  nostr.TagMap{"p": []string{s.merchantPubkey}},
			},
			s.netTimeout, paymentProc.handleEvent,
		),
	}
	for _, sub := range subs {
		if err := sub.start(s.scheduler, s.pollInterval, s.pollJitter); err != nil {
			return fmt.Errorf("failed to start %s subscription: %s", sub.name, err)
		}
	}
	s.subscriptions = subs

	stopEviction, err := s.scheduler.ScheduleRecurring(
		evictionInterval, evictionInterval, s.evictProcessed,
	)
	if err != nil {
		return fmt.Errorf("failed to schedule eviction: %s", err)
	}
	s.stopEviction = stopEviction

	log.Info("service ready, listening for orders")
	return nil
}

// Stop tears down in dependency order: no new ticks, then the scheduler, then
// the transport, then the store.
func (s *service) Stop() {
	for _, sub := range s.subscriptions {
		sub.unsubscribe()
	}
	if s.stopEviction != nil {
		s.stopEviction()
	}
	s.scheduler.Stop()
	s.transport.Close()
	s.repo.Close()
}

func (s *service) evictProcessed() {
	ctx, cancel := context.WithTimeout(context.Background(), s.netTimeout)
	defer cancel()

	cutoff := time.Now().Add(-s.dedupRetention)
	if err := s.repo.Evict(ctx, cutoff); err != nil {
		log.WithError(err).Warn("failed to evict processed ids")
	}
}
