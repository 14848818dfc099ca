package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/config"
	service_interface "github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/interface"
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

	log.SetLevel(log.Level(cfg.LogLevel))
	log.Debugf("walletd %s (%s, %s)", version, commit, date)

	svc, err := service_interface.NewService(cfg)
	if err != nil {
		log.Fatal(err)
	}

	log.RegisterExitHandler(svc.Stop)

	log.Info("starting service...")
	if err := svc.Start(); err != nil {
		log.Fatal(err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)
}
