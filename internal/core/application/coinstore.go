package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	log "github.com/sirupsen/logrus"
)

type CoinStoreConfig struct {
	StalenessThreshold time.Duration
	MaxRetries         int
	BackoffBase        time.Duration
	SyncTimeout        time.Duration
}

func DefaultCoinStoreConfig() CoinStoreConfig {
	return CoinStoreConfig{
		StalenessThreshold: 30 * time.Second,
		MaxRetries:         3,
		BackoffBase:        2 * time.Second,
		SyncTimeout:        60 * time.Second,
	}
}

// syncFlight is a sync in progress. Every caller arriving while it runs
// waits on done and receives the same result.
type syncFlight struct {
	done     chan struct{}
	snapshot *domain.AccountSnapshot
	err      error
}

// CoinStore owns the snapshot of an account's unspent coins and keeps it in
// sync with the ledger service.
type CoinStore struct {
	ledger ports.LedgerService
	clock  clock.Clock
	cfg    CoinStoreConfig

	lock        *sync.RWMutex
	keyInfo     *domain.PublicKeyInfo
	snapshot    *domain.AccountSnapshot
	state       domain.SyncState
	lastErr     error
	invalidated bool
	inflight    *syncFlight
	// generation is bumped by every forced sync request and by Reset. A
	// flight that sees it change while running fetches again before
	// completing.
	generation uint64

	subscribers *broadcaster[*domain.AccountSnapshot]
}

func NewCoinStore(
	ledger ports.LedgerService, clk clock.Clock, cfg CoinStoreConfig,
) *CoinStore {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	return &CoinStore{
		ledger:      ledger,
		clock:       clk,
		cfg:         cfg,
		lock:        &sync.RWMutex{},
		state:       domain.Uninitialized,
		subscribers: newBroadcaster[*domain.AccountSnapshot](1),
	}
}

// Sync returns a snapshot no older than the staleness threshold, fetching a
// new one if needed. Concurrent calls share a single network sync. A forced
// call always returns data fetched after the call was made.
// The context only bounds how long the caller waits: the sync itself keeps
// running and its result is stored for later readers.
func (s *CoinStore) Sync(ctx context.Context, force bool) (*domain.AccountSnapshot, error) {
	s.lock.Lock()
	if !force && s.isFresh() {
		snapshot := s.snapshot
		s.lock.Unlock()
		return snapshot, nil
	}
	if force {
		s.generation++
	}
	flight := s.inflight
	if flight == nil {
		flight = &syncFlight{done: make(chan struct{})}
		s.inflight = flight
		s.state = domain.Syncing
		go s.runFlight(flight)
	}
	s.lock.Unlock()

	select {
	case <-flight.done:
		return flight.snapshot, flight.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate marks the current snapshot as stale so that the next read
// triggers a sync.
func (s *CoinStore) Invalidate() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.invalidated = true
}

// Reset forgets the account, for example after the ledger credential
// changed. The next sync fetches the account key info again and a sync in
// progress starts over before completing.
func (s *CoinStore) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.keyInfo = nil
	s.snapshot = nil
	s.lastErr = nil
	s.invalidated = false
	s.generation++
	if s.inflight == nil {
		s.state = domain.Uninitialized
	}
}

// Close ends every subscription.
func (s *CoinStore) Close() {
	s.subscribers.close()
}

func (s *CoinStore) State() domain.SyncState {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.state
}

func (s *CoinStore) LastError() error {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.lastErr
}

// Snapshot returns the last known snapshot without any I/O.
func (s *CoinStore) Snapshot() fn.Option[*domain.AccountSnapshot] {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.snapshot == nil {
		return fn.None[*domain.AccountSnapshot]()
	}
	return fn.Some(s.snapshot)
}

// CurrentBalance is the sum of the amounts of all the coins of the last known
// snapshot, whatever their kind.
func (s *CoinStore) CurrentBalance() fn.Option[domain.Amount] {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.snapshot == nil {
		return fn.None[domain.Amount]()
	}
	return fn.Some(s.snapshot.Balance(domain.AnyCoins))
}

func (s *CoinStore) CurrentCoins(filter domain.CoinFilter) []domain.HydratedCoin {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.snapshot == nil {
		return nil
	}
	return s.snapshot.Filter(filter)
}

// View projects the last known snapshot for display, flagging whether it is
// stale and the error of the last failed sync, if any.
func (s *CoinStore) View(filter domain.CoinFilter) domain.AccountView {
	s.lock.RLock()
	defer s.lock.RUnlock()

	view := domain.AccountView{
		State:        s.state,
		Stale:        !s.isFresh(),
		BalanceError: s.lastErr,
	}
	if s.snapshot != nil {
		view.Balance = s.snapshot.Balance(filter)
		view.Coins = s.snapshot.Filter(filter)
		view.FetchedAt = s.snapshot.FetchedAt
	}
	return view
}

// Subscribe returns a channel receiving every new snapshot. The caller must
// call Unsubscribe when done.
func (s *CoinStore) Subscribe() chan *domain.AccountSnapshot {
	return s.subscribers.subscribe()
}

func (s *CoinStore) Unsubscribe(ch chan *domain.AccountSnapshot) {
	s.subscribers.unsubscribe(ch)
}

// isFresh must be called with the lock held.
func (s *CoinStore) isFresh() bool {
	if s.snapshot == nil || s.invalidated {
		return false
	}
	return !s.snapshot.IsStale(s.clock.Now(), s.cfg.StalenessThreshold)
}

// runFlight fetches until it gets a snapshot nobody superseded. The whole
// flight, retries and backoff included, is bounded by the sync timeout. A
// newer request restarts both the attempt budget and the deadline.
func (s *CoinStore) runFlight(flight *syncFlight) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SyncTimeout)
	defer func() { cancel() }()

	restart := func() {
		cancel()
		ctx, cancel = context.WithTimeout(context.Background(), s.cfg.SyncTimeout)
	}

	attempts, retries := 0, 0
	var lastErr error

	for {
		s.lock.RLock()
		generation := s.generation
		s.lock.RUnlock()

		attempts++
		snapshot, err := s.fetch(ctx, generation)
		if err == nil {
			if s.complete(flight, snapshot, generation) {
				log.Debugf(
					"synced account %s: %d coins, balance %s",
					snapshot.Address, len(snapshot.Coins), snapshot.NativeBalance(),
				)
				s.subscribers.publish(snapshot)
				return
			}
			log.Debug("sync superseded by a newer request, fetching again")
			retries = 0
			restart()
			continue
		}

		lastErr = err
		if !domain.IsRetryable(err) || retries >= s.cfg.MaxRetries {
			break
		}

		delay := backoffDelay(s.cfg.BackoffBase, retries)
		log.WithError(err).Warnf(
			"sync attempt %d failed, retrying in %s", attempts, delay,
		)
		retries++
		select {
		case <-s.clock.TickAfter(delay):
		case <-ctx.Done():
		}

		// A newer request gets a fresh attempt budget.
		s.lock.RLock()
		superseded := s.generation != generation
		s.lock.RUnlock()
		if superseded {
			retries = 0
			restart()
			continue
		}
		if ctx.Err() != nil {
			break
		}
	}

	s.fail(flight, &domain.SyncError{Attempts: attempts, Err: lastErr})
}

// fetch gets the account coins. The key info it fetches is only kept if the
// store was not reset meanwhile.
func (s *CoinStore) fetch(
	ctx context.Context, generation uint64,
) (*domain.AccountSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransient, err)
	}

	s.lock.RLock()
	info := s.keyInfo
	s.lock.RUnlock()

	if info == nil {
		var err error
		if info, err = s.ledger.GetPublicKeyInfo(ctx); err != nil {
			return nil, err
		}
		s.lock.Lock()
		if s.generation == generation {
			s.keyInfo = info
		}
		s.lock.Unlock()
	}

	coins, err := s.ledger.GetUnspentCoins(ctx, info.Address)
	if err != nil {
		return nil, err
	}
	return domain.NewAccountSnapshot(*info, coins, s.clock.Now()), nil
}

// complete stores snapshot and resolves the flight, unless a forced request
// arrived while fetching. In that case it returns false and the flight must
// fetch again.
func (s *CoinStore) complete(
	flight *syncFlight, snapshot *domain.AccountSnapshot, generation uint64,
) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.generation != generation {
		return false
	}

	s.snapshot = snapshot
	s.state = domain.Ready
	s.lastErr = nil
	s.invalidated = false
	s.inflight = nil

	flight.snapshot = snapshot
	close(flight.done)
	return true
}

func (s *CoinStore) fail(flight *syncFlight, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	log.WithError(err).Warn("failed to sync account")

	s.lastErr = err
	s.inflight = nil
	if s.snapshot != nil {
		s.state = domain.Degraded
	} else {
		s.state = domain.Uninitialized
	}
	if errors.Is(err, domain.ErrNotAuthenticated) {
		s.keyInfo = nil
	}

	flight.err = err
	close(flight.done)
}
