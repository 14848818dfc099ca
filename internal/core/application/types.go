package application

import (
	"context"
	"time"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
)

type Service interface {
	Start() error
	Stop()
	SetCredential(credential string)
	Sync(ctx context.Context, force bool) (*domain.AccountSnapshot, error)
	Balance(ctx context.Context, filter domain.CoinFilter) domain.AccountView
	ReceiveAddress(ctx context.Context) (string, error)
	Send(ctx context.Context, req SendRequest) (string, error)
	Coins() *CoinStore
	Offers() *OfferLedger
	Metadata() *MetadataCache
}

type SendRequest struct {
	Recipient string
	Amount    domain.Amount
	Fee       domain.Amount
}

type ServiceConfig struct {
	// SyncInterval is how often the account is synced in background.
	SyncInterval time.Duration
	// OfferExpiryInterval is how often expired offers are swept.
	OfferExpiryInterval time.Duration
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		SyncInterval:        30 * time.Second,
		OfferExpiryInterval: time.Minute,
	}
}
