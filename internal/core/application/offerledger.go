package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/pkg/address"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	log "github.com/sirupsen/logrus"
)

type CreateOfferRequest struct {
	OfferedCoinID    domain.Hash
	RequestedAmount  domain.Amount
	RequestedAssetID fn.Option[domain.Hash]
	DepositAddress   string
	// ExpiresIn is optional, zero means the offer never expires.
	ExpiresIn time.Duration
}

// OfferLedger builds trade offers out of the account's coins and tracks
// them through their lifecycle.
type OfferLedger struct {
	coins       *CoinStore
	codec       *address.Codec
	ledger      ports.LedgerService
	marketplace ports.Marketplace
	repoManager ports.RepoManager
	clock       clock.Clock

	// lock serializes read-modify-write cycles on the offers collection.
	lock *sync.Mutex
}

func NewOfferLedger(
	coins *CoinStore, codec *address.Codec, ledger ports.LedgerService,
	marketplace ports.Marketplace, repoManager ports.RepoManager,
	clk clock.Clock,
) *OfferLedger {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	return &OfferLedger{
		coins, codec, ledger, marketplace, repoManager, clk, &sync.Mutex{},
	}
}

// CreateOffer has the ledger service build and sign an offer for one of the
// account's coins and persists it as active. Nothing is posted to the
// marketplace.
func (l *OfferLedger) CreateOffer(
	ctx context.Context, req CreateOfferRequest,
) (*domain.SavedOffer, error) {
	decoded, err := l.codec.Decode(req.DepositAddress)
	if err != nil {
		return nil, &domain.InvalidDepositAddressError{
			Address: req.DepositAddress, Err: err,
		}
	}
	if req.RequestedAmount.IsZero() {
		return nil, domain.ErrInvalidAmount
	}

	snapshot, err := l.coins.Snapshot().UnwrapOrErr(domain.ErrSigningKeyUnavailable)
	if err != nil {
		return nil, err
	}
	syntheticKey, err := snapshot.SyntheticKey.UnwrapOrErr(domain.ErrSigningKeyUnavailable)
	if err != nil {
		return nil, err
	}
	coin, ok := snapshot.Coin(req.OfferedCoinID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCoinNotOwned, req.OfferedCoinID)
	}

	requested := domain.RequestedPayment{
		Amount:         req.RequestedAmount,
		AssetID:        req.RequestedAssetID,
		DepositAddress: req.DepositAddress,
	}
	blob, err := l.ledger.SubmitOffer(ctx, ports.OfferRequest{
		OfferedCoin:   coin,
		Requested:     requested,
		DepositPuzzle: decoded.PuzzleHash,
		SyntheticKey:  syntheticKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build offer: %w", err)
	}

	now := l.clock.Now()
	expiresAt := fn.None[time.Time]()
	if req.ExpiresIn > 0 {
		expiresAt = fn.Some(now.Add(req.ExpiresIn))
	}
	offer := domain.NewSavedOffer(coin, requested, blob, now, expiresAt)

	l.lock.Lock()
	defer l.lock.Unlock()

	if err := l.repo(snapshot).AddOrUpdateOffer(ctx, *offer); err != nil {
		return nil, fmt.Errorf("failed to persist offer: %w", err)
	}

	log.Debugf("created offer %s for coin %s", offer.ID, coin.ID())
	return offer, nil
}

// SubmitToMarketplace posts an active offer to the marketplace. On failure
// the persisted offer is left untouched.
func (l *OfferLedger) SubmitToMarketplace(
	ctx context.Context, id string,
) (*domain.SavedOffer, error) {
	repo, err := l.currentRepo()
	if err != nil {
		return nil, err
	}

	offer, err := repo.GetOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	if offer.Status != domain.OfferActive {
		return nil, fmt.Errorf(
			"%w: offer %s is %s", domain.ErrInvalidStatusTransition, id, offer.Status,
		)
	}
	if offer.IsListed() {
		return offer, nil
	}

	listing, err := l.marketplace.PostOffer(ctx, offer.OfferBlob)
	if err != nil {
		log.WithError(err).Warnf("failed to post offer %s to marketplace", id)
		return nil, &domain.SubmissionError{OfferID: id, Err: err}
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	// Reload in case the status changed while posting.
	offer, err = repo.GetOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	offer.SetListing(*listing, l.clock.Now())
	if err := repo.AddOrUpdateOffer(ctx, *offer); err != nil {
		return nil, fmt.Errorf("failed to persist marketplace listing: %w", err)
	}

	log.Debugf("posted offer %s to marketplace as %s", id, listing.ID)
	return offer, nil
}

// CreateAndSubmit creates an offer and makes a best-effort attempt to post
// it. The offer is returned even if posting fails, along with the
// *domain.SubmissionError.
func (l *OfferLedger) CreateAndSubmit(
	ctx context.Context, req CreateOfferRequest,
) (*domain.SavedOffer, error) {
	offer, err := l.CreateOffer(ctx, req)
	if err != nil {
		return nil, err
	}
	listed, err := l.SubmitToMarketplace(ctx, offer.ID)
	if err != nil {
		return offer, err
	}
	return listed, nil
}

func (l *OfferLedger) ListOffers(ctx context.Context) ([]domain.SavedOffer, error) {
	repo, err := l.currentRepo()
	if err != nil {
		return nil, err
	}
	return repo.GetOffers(ctx)
}

func (l *OfferLedger) GetOffer(ctx context.Context, id string) (*domain.SavedOffer, error) {
	repo, err := l.currentRepo()
	if err != nil {
		return nil, err
	}
	return repo.GetOffer(ctx, id)
}

// UpdateStatus sets the status of an offer. Setting the current status is a
// no-op.
func (l *OfferLedger) UpdateStatus(
	ctx context.Context, id string, status domain.OfferStatus,
) (*domain.SavedOffer, error) {
	repo, err := l.currentRepo()
	if err != nil {
		return nil, err
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	offer, err := repo.GetOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	changed, err := offer.UpdateStatus(status, l.clock.Now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return offer, nil
	}
	if err := repo.AddOrUpdateOffer(ctx, *offer); err != nil {
		return nil, fmt.Errorf("failed to persist offer status: %w", err)
	}
	return offer, nil
}

// Reconcile marks as completed the active offers whose offered coin is no
// longer unspent in the given snapshot.
func (l *OfferLedger) Reconcile(
	ctx context.Context, snapshot *domain.AccountSnapshot,
) (int, error) {
	return l.transition(ctx, l.repo(snapshot), domain.OfferCompleted, func(o domain.SavedOffer) bool {
		if !snapshot.FetchedAt.After(o.CreatedAt) {
			return false
		}
		_, unspent := snapshot.Coin(o.OfferedCoin.ID())
		return !unspent
	})
}

// ExpireOffers marks as expired the active offers past their expiration.
func (l *OfferLedger) ExpireOffers(ctx context.Context) (int, error) {
	repo, err := l.currentRepo()
	if err != nil {
		return 0, err
	}
	now := l.clock.Now()
	return l.transition(ctx, repo, domain.OfferExpired, func(o domain.SavedOffer) bool {
		return o.IsExpired(now)
	})
}

func (l *OfferLedger) transition(
	ctx context.Context, repo domain.OfferRepository, status domain.OfferStatus,
	match func(domain.SavedOffer) bool,
) (int, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	offers, err := repo.GetOffers(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	now := l.clock.Now()
	for _, offer := range offers {
		if offer.Status != domain.OfferActive || !match(offer) {
			continue
		}
		if _, err := offer.UpdateStatus(status, now); err != nil {
			return count, err
		}
		if err := repo.AddOrUpdateOffer(ctx, offer); err != nil {
			return count, err
		}
		log.Debugf("offer %s is now %s", offer.ID, status)
		count++
	}
	return count, nil
}

func (l *OfferLedger) currentRepo() (domain.OfferRepository, error) {
	snapshot, err := l.coins.Snapshot().UnwrapOrErr(domain.ErrNoSnapshot)
	if err != nil {
		return nil, err
	}
	return l.repo(snapshot), nil
}

func (l *OfferLedger) repo(snapshot *domain.AccountSnapshot) domain.OfferRepository {
	return l.repoManager.Offers(snapshot.PuzzleHash)
}
