package application

import (
	"context"
	"sync"
	"time"

	"github.com/RobotechyShop/orderd/internal/core/ports"
	"github.com/nbd-wtf/go-nostr"
	log "github.com/sirupsen/logrus"
)

// subscription polls the relay set for events matching a filter and hands
// each event to the handler exactly once. Relays re-deliver events freely
// (the same event held by two relays, watermark window overlap), so dedup is
// by event id; the since watermark only bounds how much history each poll
// requests and never moves backward.
//
// Ticks are scheduled without overlap, so watermark and seen are only ever
// touched by one tick at a time.
type subscription struct {
	name      string
	transport ports.RelayTransport
	directory ports.RelayDirectory
	filter    nostr.Filter
	timeout   time.Duration
	handler   func(event *nostr.Event)

	watermark nostr.Timestamp
	seen      map[string]struct{}

	stop     ports.StopFunc
	stopOnce sync.Once
}

func newSubscription(
	name string,
	transport ports.RelayTransport, directory ports.RelayDirectory,
	filter nostr.Filter, timeout time.Duration,
	handler func(event *nostr.Event),
) *subscription {
	return &subscription{
		name:      name,
		transport: transport,
		directory: directory,
		filter:    filter,
		timeout:   timeout,
		handler:   handler,
		watermark: nostr.Now(),
		seen:      make(map[string]struct{}),
	}
}

func (s *subscription) start(
	scheduler ports.SchedulerService, interval, jitter time.Duration,
) error {
	stop, err := scheduler.ScheduleRecurring(interval, interval+jitter, s.tick)
	if err != nil {
		return err
	}
	s.stop = stop
	log.Debugf("subscription %s: polling every %s (+%s jitter)", s.name, interval, jitter)
	return nil
}

func (s *subscription) unsubscribe() {
	s.stopOnce.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}

func (s *subscription) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	filter := s.filter
	since := s.watermark
	filter.Since = &since

	events := s.transport.Fetch(ctx, s.directory.OwnRelays(), filter)

	maxSeen := s.watermark
	for _, event := range events {
		if event.CreatedAt > maxSeen {
			maxSeen = event.CreatedAt
		}
		if _, ok := s.seen[event.ID]; ok {
			continue
		}
		s.seen[event.ID] = struct{}{}
		s.handler(event)
	}

	if maxSeen > s.watermark {
		s.watermark = maxSeen
	}
}
