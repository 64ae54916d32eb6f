package appconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/RobotechyShop/orderd/internal/core/application"
	"github.com/RobotechyShop/orderd/internal/core/domain"
	"github.com/RobotechyShop/orderd/internal/core/ports"
	badgerdb "github.com/RobotechyShop/orderd/internal/infrastructure/db/badger"
	"github.com/RobotechyShop/orderd/internal/infrastructure/lnurl"
	nostrrelay "github.com/RobotechyShop/orderd/internal/infrastructure/nostr"
	timescheduler "github.com/RobotechyShop/orderd/internal/infrastructure/scheduler/gocron"
	log "github.com/sirupsen/logrus"
)

var (
	supportedDbs = supportedType{
		"badger": {},
	}
	supportedSchedulers = supportedType{
		"gocron": {},
	}
)

type Config struct {
	DbType string
	DbDir  string

	SchedulerType string

	MerchantNsec     string
	LightningAddress string
	FallbackRelays   []string

	PollInterval   time.Duration
	PollJitter     time.Duration
	DmDelay        time.Duration
	NetworkTimeout time.Duration
	DedupRetention time.Duration

	merchantPubkey string
	secretKey      string

	repo      domain.ProcessedRepository
	scheduler ports.SchedulerService
	transport ports.RelayTransport
	directory ports.RelayDirectory
	notifier  ports.Notifier
	gateway   ports.InvoiceGateway
	svc       application.Service
}

func (c *Config) Validate() error {
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedSchedulers.supports(c.SchedulerType) {
		return fmt.Errorf("scheduler type not supported, please select one of: %s", supportedSchedulers)
	}

	secretKey, pubkey, err := nostrrelay.DecodeNsec(c.MerchantNsec)
	if err != nil {
		return fmt.Errorf("invalid merchant key: %w", err)
	}
	c.secretKey = secretKey
	c.merchantPubkey = pubkey

	if err := c.processedRepository(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	c.relayServices()
	c.invoiceGateway()
	return nil
}

func (c *Config) OrderService() (application.Service, error) {
	if c.svc == nil {
		if err := c.orderService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) MerchantPubkey() string {
	return c.merchantPubkey
}

func (c *Config) processedRepository() error {
	var svc domain.ProcessedRepository
	var err error
	switch c.DbType {
	case "badger":
		svc, err = badgerdb.NewProcessedRepository(c.DbDir, log.New())
	default:
		err = fmt.Errorf("unknown db type")
	}
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) schedulerService() error {
	var svc ports.SchedulerService
	var err error
	switch c.SchedulerType {
	case "gocron":
		svc = timescheduler.NewScheduler()
	default:
		err = fmt.Errorf("unknown scheduler type")
	}
	if err != nil {
		return err
	}

	c.scheduler = svc
	return nil
}

func (c *Config) relayServices() {
	c.transport = nostrrelay.NewTransport(c.secretKey)
	c.directory = nostrrelay.NewDirectory(c.transport, c.merchantPubkey, c.FallbackRelays)
	c.notifier = nostrrelay.NewNotifier(c.transport, c.directory, c.secretKey)
}

func (c *Config) invoiceGateway() {
	c.gateway = lnurl.NewGateway(c.LightningAddress, c.NetworkTimeout)
}

func (c *Config) orderService() error {
	svc := application.NewService(
		c.merchantPubkey, c.gateway, c.transport, c.directory, c.notifier,
		c.scheduler, c.repo,
		c.PollInterval, c.PollJitter, c.DmDelay, c.NetworkTimeout, c.DedupRetention,
	)

	c.svc = svc
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
