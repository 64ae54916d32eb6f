// Package nostr_relay implements the relay-network ports over nbd-wtf/go-nostr:
// best-effort multi-relay publish and fetch, NIP-65 relay discovery, and
// NIP-04 encrypted notifications.
package nostr_relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/RobotechyShop/orderd/internal/core/ports"
	"github.com/nbd-wtf/go-nostr"
	"github.com/sirupsen/logrus"
)

var ErrPublishFailed = errors.New("failed to publish event to any relay")

var errTransportClosed = errors.New("transport is closed")

// Relay policy rejections (paid relays, allowlists, rate limits). These count
// as delivery failures for the relay but are not logged as errors.
var softRejectionHints = []string{
	"restricted",
	"pay on",
	"paid relay",
	"blocked",
	"not allowed",
	"rate-limit",
	"noting too much",
}

type relayConn interface {
	Publish(ctx context.Context, event nostr.Event) error
	QuerySync(ctx context.Context, filter nostr.Filter) ([]*nostr.Event, error)
	Close() error
}

type relayHandle struct {
	*nostr.Relay
}

func (h *relayHandle) QuerySync(ctx context.Context, filter nostr.Filter) ([]*nostr.Event, error) {
	return h.Relay.QuerySync(ctx, filter)
}

type transport struct {
	secretKey string

	lock   sync.Mutex
	conns  map[string]relayConn
	closed bool

	dial func(ctx context.Context, url string) (relayConn, error)
}

func NewTransport(secretKey string) ports.RelayTransport {
	return &transport{
		secretKey: secretKey,
		conns:     make(map[string]relayConn),
		dial: func(ctx context.Context, url string) (relayConn, error) {
			relay, err := nostr.RelayConnect(ctx, url)
			if err != nil {
				return nil, err
			}
			return &relayHandle{relay}, nil
		},
	}
}

func (t *transport) Publish(
	ctx context.Context, template nostr.Event, relays []string,
) (*nostr.Event, error) {
	event := template
	if err := event.Sign(t.secretKey); err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	accepted := atomic.Bool{}

	for _, url := range relays {
		wg.Add(1)
		go func(relayURL string) {
			defer wg.Done()

			conn, err := t.conn(ctx, relayURL)
			if err != nil {
				logrus.WithError(err).Warnf("failed to connect to relay %s", relayURL)
				return
			}

			if err := conn.Publish(ctx, event); err != nil {
				if isSoftRejection(err) {
					logrus.Debugf("relay %s rejected event by policy: %s", relayURL, err)
				} else {
					t.drop(relayURL, conn)
					logrus.WithError(err).Warnf("failed to publish to relay %s", relayURL)
				}
				return
			}

			accepted.Store(true)
		}(url)
	}

	wg.Wait()

	if !accepted.Load() {
		return nil, ErrPublishFailed
	}
	return &event, nil
}

func (t *transport) Fetch(
	ctx context.Context, relays []string, filter nostr.Filter,
) []*nostr.Event {
	var wg sync.WaitGroup
	var lock sync.Mutex
	events := make([]*nostr.Event, 0)

	for _, url := range relays {
		wg.Add(1)
		go func(relayURL string) {
			defer wg.Done()

			conn, err := t.conn(ctx, relayURL)
			if err != nil {
				logrus.WithError(err).Warnf("failed to connect to relay %s", relayURL)
				return
			}

			batch, err := conn.QuerySync(ctx, filter)
			if err != nil {
				t.drop(relayURL, conn)
				logrus.WithError(err).Warnf("failed to fetch from relay %s", relayURL)
				return
			}

			lock.Lock()
			events = append(events, batch...)
			lock.Unlock()
		}(url)
	}

	wg.Wait()
	return events
}

func (t *transport) Close() {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return
	}
	t.closed = true

	for url, conn := range t.conns {
		if err := conn.Close(); err != nil {
			logrus.WithError(err).Debugf("failed to close connection to relay %s", url)
		}
	}
	t.conns = nil
}

func (t *transport) conn(ctx context.Context, url string) (relayConn, error) {
	t.lock.Lock()
	if t.closed {
		t.lock.Unlock()
		return nil, errTransportClosed
	}
	if conn, ok := t.conns[url]; ok {
		t.lock.Unlock()
		return conn, nil
	}
	t.lock.Unlock()

	conn, err := t.dial(ctx, url)
	if err != nil {
		return nil, err
	}

	t.lock.Lock()
	defer t.lock.Unlock()
	if t.closed {
		conn.Close()
		return nil, errTransportClosed
	}
	if cached, ok := t.conns[url]; ok {
		conn.Close()
		return cached, nil
	}
	t.conns[url] = conn
	return conn, nil
}

// drop evicts a connection after a hard failure so the next call redials.
func (t *transport) drop(url string, conn relayConn) {
	t.lock.Lock()
	if t.conns[url] == conn {
		delete(t.conns, url)
	}
	t.lock.Unlock()
	conn.Close()
}

func isSoftRejection(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, hint := range softRejectionHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
