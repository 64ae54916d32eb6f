package main

import (
	"os"
	"os/signal"
	"syscall"

	appconfig "github.com/RobotechyShop/orderd/internal/app-config"
	"github.com/RobotechyShop/orderd/internal/config"
	log "github.com/sirupsen/logrus"
)

//nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid config")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	appConfig := &appconfig.Config{
		DbType:           cfg.DbType,
		DbDir:            cfg.DbDir,
		SchedulerType:    cfg.SchedulerType,
		MerchantNsec:     cfg.MerchantNsec,
		LightningAddress: cfg.LightningAddress,
		FallbackRelays:   cfg.FallbackRelays,
		PollInterval:     cfg.PollInterval,
		PollJitter:       cfg.PollJitter,
		DmDelay:          cfg.DmDelay,
		NetworkTimeout:   cfg.NetworkTimeout,
		DedupRetention:   cfg.DedupRetention,
	}
	if err := appConfig.Validate(); err != nil {
		log.WithError(err).Fatal("invalid app config")
	}

	svc, err := appConfig.OrderService()
	if err != nil {
		log.Fatal(err)
	}

	log.RegisterExitHandler(svc.Stop)

	log.Infof("starting order service for merchant %s...", appConfig.MerchantPubkey())
	if err := svc.Start(); err != nil {
		log.Fatal(err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)
}
