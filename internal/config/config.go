package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Datadir  string
	DbDir    string
	LogLevel int

	MerchantNsec     string `json:"-"`
	LightningAddress string
	FallbackRelays   []string

	DbType        string
	SchedulerType string

	PollInterval   time.Duration
	PollJitter     time.Duration
	DmDelay        time.Duration
	NetworkTimeout time.Duration
	DedupRetention time.Duration
}

func (c *Config) String() string {
	json, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	Datadir          = "DATADIR"
	LogLevel         = "LOG_LEVEL"
	MerchantNsec     = "MERCHANT_NSEC"
	LightningAddress = "LIGHTNING_ADDRESS"
	FallbackRelays   = "FALLBACK_RELAYS"
	DbType           = "DB_TYPE"
	SchedulerType    = "SCHEDULER_TYPE"
	PollInterval     = "POLL_INTERVAL"
	PollJitter       = "POLL_JITTER"
	DmDelay          = "DM_DELAY"
	NetworkTimeout   = "NETWORK_TIMEOUT"
	DedupRetention   = "DEDUP_RETENTION"

	defaultDatadir        = appDataDir("orderd")
	defaultLogLevel       = 4
	defaultDbType         = "badger"
	defaultSchedulerType  = "gocron"
	defaultFallbackRelays = "wss://relay.damus.io,wss://nos.lol,wss://relay.primal.net"
	defaultPollInterval   = 5 * time.Second
	defaultPollJitter     = 5 * time.Second
	defaultDmDelay        = 2 * time.Second
	defaultNetworkTimeout = 10 * time.Second
	defaultDedupRetention = 7 * 24 * time.Hour
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("ORDERD")
	viper.AutomaticEnv()
	// an explicitly empty DATADIR selects the volatile in-memory store
	viper.AllowEmptyEnv(true)

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(DbType, defaultDbType)
	viper.SetDefault(SchedulerType, defaultSchedulerType)
	viper.SetDefault(FallbackRelays, defaultFallbackRelays)
	viper.SetDefault(PollInterval, defaultPollInterval)
	viper.SetDefault(PollJitter, defaultPollJitter)
	viper.SetDefault(DmDelay, defaultDmDelay)
	viper.SetDefault(NetworkTimeout, defaultNetworkTimeout)
	viper.SetDefault(DedupRetention, defaultDedupRetention)

	// an empty datadir means no persistence: the store runs in memory and
	// nothing is created on disk
	datadir := viper.GetString(Datadir)
	dbDir := ""
	if datadir != "" {
		if err := makeDirectoryIfNotExists(datadir); err != nil {
			return nil, fmt.Errorf("error while creating datadir: %s", err)
		}
		dbDir = filepath.Join(datadir, "db")
	}

	nsec := viper.GetString(MerchantNsec)
	if nsec == "" {
		return nil, fmt.Errorf("%s_%s not provided", "ORDERD", MerchantNsec)
	}

	address := viper.GetString(LightningAddress)
	if address == "" {
		return nil, fmt.Errorf("%s_%s not provided", "ORDERD", LightningAddress)
	}

	return &Config{
		Datadir:          datadir,
		DbDir:            dbDir,
		LogLevel:         viper.GetInt(LogLevel),
		MerchantNsec:     nsec,
		LightningAddress: address,
		FallbackRelays:   splitRelayList(viper.GetString(FallbackRelays)),
		DbType:           viper.GetString(DbType),
		SchedulerType:    viper.GetString(SchedulerType),
		PollInterval:     viper.GetDuration(PollInterval),
		PollJitter:       viper.GetDuration(PollJitter),
		DmDelay:          viper.GetDuration(DmDelay),
		NetworkTimeout:   viper.GetDuration(NetworkTimeout),
		DedupRetention:   viper.GetDuration(DedupRetention),
	}, nil
}

func (c *Config) Validate() error {
	if !strings.Contains(c.LightningAddress, "@") {
		return fmt.Errorf("invalid lightning address %q, expected user@domain", c.LightningAddress)
	}
	if len(c.FallbackRelays) <= 0 {
		return fmt.Errorf("at least one fallback relay must be provided")
	}
	for _, relay := range c.FallbackRelays {
		if !strings.HasPrefix(relay, "wss://") && !strings.HasPrefix(relay, "ws://") {
			return fmt.Errorf("invalid relay url %q, expected ws:// or wss:// scheme", relay)
		}
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("invalid poll interval, must be at least 1 second")
	}
	if c.NetworkTimeout <= 0 {
		return fmt.Errorf("invalid network timeout, must be greater than 0")
	}
	if c.DedupRetention <= 0 {
		return fmt.Errorf("invalid dedup retention, must be greater than 0")
	}
	return nil
}

// splitRelayList parses a comma-separated relay list, dropping empty entries
// and surrounding whitespace.
func splitRelayList(raw string) []string {
	relays := make([]string, 0)
	for _, relay := range strings.Split(raw, ",") {
		relay = strings.TrimSpace(relay)
		if relay != "" {
			relays = append(relays, relay)
		}
	}
	return relays
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func appDataDir(appName string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, "."+appName)
}
