package ports

import "github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"

type RepoManager interface {
	// Offers returns the offer repository scoped to the given account.
	Offers(account domain.Hash) domain.OfferRepository
	Metadata() domain.MetadataRepository
	Close()
}
