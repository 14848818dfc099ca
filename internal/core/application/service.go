package application

import (
	"context"
	"fmt"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/pkg/address"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/pkg/coinselect"
	log "github.com/sirupsen/logrus"
)

type service struct {
	cfg ServiceConfig

	codec       *address.Codec
	ledger      ports.LedgerService
	scheduler   ports.SchedulerService
	repoManager ports.RepoManager

	coins    *CoinStore
	offers   *OfferLedger
	metadata *MetadataCache

	snapshots chan *domain.AccountSnapshot
}

func NewService(
	cfg ServiceConfig, codec *address.Codec,
	ledger ports.LedgerService, schedulerSvc ports.SchedulerService,
	repoManager ports.RepoManager,
	coins *CoinStore, offers *OfferLedger, metadata *MetadataCache,
) Service {
	return &service{
		cfg:         cfg,
		codec:       codec,
		ledger:      ledger,
		scheduler:   schedulerSvc,
		repoManager: repoManager,
		coins:       coins,
		offers:      offers,
		metadata:    metadata,
	}
}

func (s *service) Start() error {
	startImmediately := true
	if err := s.scheduler.ScheduleTask(
		s.cfg.SyncInterval, startImmediately, s.backgroundSync,
	); err != nil {
		return err
	}
	if err := s.scheduler.ScheduleTask(
		s.cfg.OfferExpiryInterval, !startImmediately, s.expireOffers,
	); err != nil {
		return err
	}

	s.snapshots = s.coins.Subscribe()
	go s.reconcileOffers(s.snapshots)

	s.scheduler.Start()
	return nil
}

func (s *service) Stop() {
	s.scheduler.Stop()
	if s.snapshots != nil {
		s.coins.Unsubscribe(s.snapshots)
	}
	s.coins.Close()
	s.repoManager.Close()
	log.Debug("stopped wallet service")
}

// SetCredential switches the ledger credential. The credential may belong to
// another account, so everything known about the current one is dropped.
func (s *service) SetCredential(credential string) {
	s.ledger.SetCredential(credential)
	s.coins.Reset()
}

func (s *service) Sync(ctx context.Context, force bool) (*domain.AccountSnapshot, error) {
	return s.coins.Sync(ctx, force)
}

// Balance syncs the account if stale and projects it. When the sync fails
// the last known data is returned with BalanceError set.
func (s *service) Balance(ctx context.Context, filter domain.CoinFilter) domain.AccountView {
	_, err := s.coins.Sync(ctx, false)
	view := s.coins.View(filter)
	if err != nil {
		view.BalanceError = err
	}
	return view
}

func (s *service) ReceiveAddress(ctx context.Context) (string, error) {
	snapshot, err := s.coins.Sync(ctx, false)
	if err != nil {
		return "", err
	}
	return s.codec.Encode(snapshot.PuzzleHash[:], s.codec.Network().Prefix())
}

// Send pays amount to the recipient address, funding it with the account's
// XCH coins. Coins locked in active offers are never spent.
func (s *service) Send(ctx context.Context, req SendRequest) (string, error) {
	decoded, err := s.codec.Decode(req.Recipient)
	if err != nil {
		return "", fmt.Errorf("invalid recipient: %w", err)
	}
	if req.Amount.IsZero() {
		return "", domain.ErrInvalidAmount
	}

	snapshot, err := s.coins.Sync(ctx, false)
	if err != nil {
		return "", err
	}
	syntheticKey, err := snapshot.SyntheticKey.UnwrapOrErr(domain.ErrSigningKeyUnavailable)
	if err != nil {
		return "", err
	}

	locked, err := s.lockedCoins(ctx)
	if err != nil {
		return "", err
	}
	candidates := make([]domain.Coin, 0, len(snapshot.Coins))
	for _, c := range snapshot.Filter(domain.StandardCoins) {
		if _, ok := locked[c.ID()]; !ok {
			candidates = append(candidates, c.Coin)
		}
	}

	selected, change, err := coinselect.SelectWithFee(candidates, req.Amount, req.Fee)
	if err != nil {
		return "", err
	}

	txid, err := s.ledger.SubmitSpend(ctx, ports.SpendRequest{
		Coins:        selected,
		Recipient:    decoded.PuzzleHash,
		Amount:       req.Amount,
		Fee:          req.Fee,
		SyntheticKey: syntheticKey,
	})
	if err != nil {
		return "", fmt.Errorf("failed to submit spend: %w", err)
	}
	s.coins.Invalidate()

	log.Debugf(
		"sent %s mojos to %s spending %d coins (change %s)",
		req.Amount, req.Recipient, len(selected), change,
	)
	return txid, nil
}

func (s *service) Coins() *CoinStore {
	return s.coins
}

func (s *service) Offers() *OfferLedger {
	return s.offers
}

func (s *service) Metadata() *MetadataCache {
	return s.metadata
}

func (s *service) lockedCoins(ctx context.Context) (map[domain.Hash]struct{}, error) {
	offers, err := s.offers.ListOffers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	locked := make(map[domain.Hash]struct{})
	for _, o := range offers {
		if o.Status == domain.OfferActive {
			locked[o.OfferedCoin.ID()] = struct{}{}
		}
	}
	return locked, nil
}

func (s *service) backgroundSync() {
	if _, err := s.coins.Sync(context.Background(), false); err != nil {
		log.WithError(err).Warn("background sync failed")
	}
}

func (s *service) expireOffers() {
	if s.coins.Snapshot().IsNone() {
		return
	}
	count, err := s.offers.ExpireOffers(context.Background())
	if err != nil {
		log.WithError(err).Warn("failed to expire offers")
		return
	}
	if count > 0 {
		log.Infof("expired %d offer(s)", count)
	}
}

func (s *service) reconcileOffers(snapshots <-chan *domain.AccountSnapshot) {
	for snapshot := range snapshots {
		count, err := s.offers.Reconcile(context.Background(), snapshot)
		if err != nil {
			log.WithError(err).Warn("failed to reconcile offers")
			continue
		}
		if count > 0 {
			log.Infof("%d offer(s) completed", count)
		}
	}
}
