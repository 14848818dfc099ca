package domain

import "context"

type OfferRepository interface {
	GetOffers(ctx context.Context) ([]SavedOffer, error)
	GetOffer(ctx context.Context, id string) (*SavedOffer, error)
	AddOrUpdateOffer(ctx context.Context, offer SavedOffer) error
}

type MetadataRepository interface {
	GetEntry(ctx context.Context, key string) (*MetadataEntry, error)
	AddOrUpdateEntry(ctx context.Context, entry MetadataEntry) error
	DeleteEntry(ctx context.Context, key string) error
}
