package service_interface

import (
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/config"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/application"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	Start() error
	Stop()
}

type service struct {
	appSvc    application.Service
	snapshots chan *domain.AccountSnapshot
}

// NewService returns the wallet daemon: it keeps the account in sync in
// background and logs every change of balance.
func NewService(cfg *config.Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	appSvc, err := cfg.AppService()
	if err != nil {
		return nil, err
	}
	return &service{appSvc: appSvc}, nil
}

func (s *service) Start() error {
	s.snapshots = s.appSvc.Coins().Subscribe()
	go s.listenToSnapshots(s.snapshots)

	if err := s.appSvc.Start(); err != nil {
		return err
	}
	log.Debug("wallet service started")
	return nil
}

func (s *service) Stop() {
	if s.snapshots != nil {
		s.appSvc.Coins().Unsubscribe(s.snapshots)
	}
	s.appSvc.Stop()
	log.Debug("wallet service stopped")
}

func (s *service) listenToSnapshots(snapshots <-chan *domain.AccountSnapshot) {
	var last *domain.AccountSnapshot
	for snapshot := range snapshots {
		balance := snapshot.NativeBalance()
		if last != nil && last.NativeBalance().Cmp(balance) == 0 &&
			len(last.Coins) == len(snapshot.Coins) {
			continue
		}
		log.WithFields(log.Fields{
			"address": snapshot.Address,
			"coins":   len(snapshot.Coins),
			"nfts":    len(snapshot.Filter(domain.NFTCoins)),
		}).Infof("balance: %s mojos", balance)
		last = snapshot
	}
}
