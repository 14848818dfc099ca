package ports

import (
	"context"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
)

type Marketplace interface {
	PostOffer(ctx context.Context, offerBlob string) (*domain.MarketplaceListing, error)
}
