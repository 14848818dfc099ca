package ports

import (
	"context"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
)

// LedgerService is the remote service holding the account keys. It serves
// the account's unspent coins and signs and submits spends and offers on the
// wallet's behalf. Every call requires a bearer credential.
type LedgerService interface {
	SetCredential(credential string)
	GetPublicKeyInfo(ctx context.Context) (*domain.PublicKeyInfo, error)
	GetUnspentCoins(ctx context.Context, address string) ([]domain.HydratedCoin, error)
	SubmitSpend(ctx context.Context, req SpendRequest) (string, error)
	SubmitOffer(ctx context.Context, req OfferRequest) (string, error)
}

type SpendRequest struct {
	Coins        []domain.Coin
	Recipient    domain.Hash
	Amount       domain.Amount
	Fee          domain.Amount
	SyntheticKey string
}

type OfferRequest struct {
	OfferedCoin   domain.HydratedCoin
	Requested     domain.RequestedPayment
	DepositPuzzle domain.Hash
	SyntheticKey  string
}
