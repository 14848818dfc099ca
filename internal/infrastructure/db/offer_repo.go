package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	"github.com/lightningnetwork/lnd/fn/v2"
	log "github.com/sirupsen/logrus"
)

type offerDTO struct {
	ID               string              `json:"id"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	Status           string              `json:"status"`
	OfferedCoin      domain.HydratedCoin `json:"offered_coin"`
	RequestedAmount  domain.Amount       `json:"requested_amount"`
	RequestedAssetID *domain.Hash        `json:"requested_asset_id,omitempty"`
	DepositAddress   string              `json:"deposit_address"`
	OfferBlob        string              `json:"offer"`
	MarketplaceID    *string             `json:"marketplace_id,omitempty"`
	MarketplaceURL   *string             `json:"marketplace_url,omitempty"`
	ExpiresAt        *time.Time          `json:"expires_at,omitempty"`
}

// offerRepository stores all the offers of an account as a single JSON
// collection.
type offerRepository struct {
	store ports.KVStore
	key   string
}

func newOfferRepository(store ports.KVStore, namespace string) domain.OfferRepository {
	return &offerRepository{store, offersPrefix + namespace}
}

func (r *offerRepository) GetOffers(ctx context.Context) ([]domain.SavedOffer, error) {
	dtos, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	offers := make([]domain.SavedOffer, 0, len(dtos))
	for _, dto := range dtos {
		offer, err := dto.toOffer()
		if err != nil {
			log.WithError(err).Warnf("skipping invalid offer %s", dto.ID)
			continue
		}
		offers = append(offers, *offer)
	}
	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].CreatedAt.Before(offers[j].CreatedAt)
	})
	return offers, nil
}

func (r *offerRepository) GetOffer(ctx context.Context, id string) (*domain.SavedOffer, error) {
	dtos, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, dto := range dtos {
		if dto.ID == id {
			return dto.toOffer()
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrOfferNotFound, id)
}

func (r *offerRepository) AddOrUpdateOffer(ctx context.Context, offer domain.SavedOffer) error {
	dtos, err := r.load(ctx)
	if err != nil {
		return err
	}

	dto := newOfferDTO(offer)
	found := false
	for i := range dtos {
		if dtos[i].ID == offer.ID {
			dtos[i] = dto
			found = true
			break
		}
	}
	if !found {
		dtos = append(dtos, dto)
	}

	buf, err := json.Marshal(dtos)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, r.key, string(buf))
}

// load returns the stored collection. A collection that cannot be decoded is
// moved aside and treated as empty.
func (r *offerRepository) load(ctx context.Context) ([]offerDTO, error) {
	value, err := r.store.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, ports.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read offers: %w", err)
	}

	var dtos []offerDTO
	if err := json.Unmarshal([]byte(value), &dtos); err != nil {
		backup := r.key + ":corrupt"
		log.WithError(err).Warnf("offers collection is corrupt, moving it to %s", backup)
		if err := r.store.Set(ctx, backup, value); err != nil {
			return nil, fmt.Errorf("failed to back up corrupt offers: %w", err)
		}
		if err := r.store.Delete(ctx, r.key); err != nil {
			return nil, fmt.Errorf("failed to discard corrupt offers: %w", err)
		}
		return nil, nil
	}
	return dtos, nil
}

func newOfferDTO(o domain.SavedOffer) offerDTO {
	return offerDTO{
		ID:               o.ID,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		Status:           o.Status.String(),
		OfferedCoin:      o.OfferedCoin,
		RequestedAmount:  o.Requested.Amount,
		RequestedAssetID: toPtr(o.Requested.AssetID),
		DepositAddress:   o.Requested.DepositAddress,
		OfferBlob:        o.OfferBlob,
		MarketplaceID:    toPtr(o.MarketplaceID),
		MarketplaceURL:   toPtr(o.MarketplaceURL),
		ExpiresAt:        toPtr(o.ExpiresAt),
	}
}

func (d offerDTO) toOffer() (*domain.SavedOffer, error) {
	status, err := domain.ParseOfferStatus(d.Status)
	if err != nil {
		return nil, err
	}
	return &domain.SavedOffer{
		ID:          d.ID,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		Status:      status,
		OfferedCoin: d.OfferedCoin,
		Requested: domain.RequestedPayment{
			Amount:         d.RequestedAmount,
			AssetID:        fromPtr(d.RequestedAssetID),
			DepositAddress: d.DepositAddress,
		},
		OfferBlob:      d.OfferBlob,
		MarketplaceID:  fromPtr(d.MarketplaceID),
		MarketplaceURL: fromPtr(d.MarketplaceURL),
		ExpiresAt:      fromPtr(d.ExpiresAt),
	}, nil
}

func toPtr[A any](o fn.Option[A]) *A {
	var ptr *A
	o.WhenSome(func(a A) {
		ptr = &a
	})
	return ptr
}

func fromPtr[A any](ptr *A) fn.Option[A] {
	if ptr == nil {
		return fn.None[A]()
	}
	return fn.Some(*ptr)
}
