package domain

import (
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

const (
	Uninitialized SyncState = iota
	Syncing
	Ready
	Degraded
)

type SyncState int

func (s SyncState) String() string {
	switch s {
	case Syncing:
		return "SYNCING"
	case Ready:
		return "READY"
	case Degraded:
		return "DEGRADED"
	default:
		return "UNINITIALIZED"
	}
}

// PublicKeyInfo is the account material returned by the ledger service.
type PublicKeyInfo struct {
	Address      string
	PuzzleHash   Hash
	SyntheticKey fn.Option[string]
}

// AccountSnapshot is an immutable view of an account's unspent coins at a
// point in time. Snapshots are replaced wholesale, never mutated.
type AccountSnapshot struct {
	Address      string
	PuzzleHash   Hash
	SyntheticKey fn.Option[string]
	Coins        []HydratedCoin
	FetchedAt    time.Time
}

func NewAccountSnapshot(
	info PublicKeyInfo, coins []HydratedCoin, fetchedAt time.Time,
) *AccountSnapshot {
	return &AccountSnapshot{
		Address:      info.Address,
		PuzzleHash:   info.PuzzleHash,
		SyntheticKey: info.SyntheticKey,
		Coins:        append([]HydratedCoin{}, coins...),
		FetchedAt:    fetchedAt,
	}
}

// Balance returns the exact sum of the amounts of the coins matching filter.
func (s *AccountSnapshot) Balance(filter CoinFilter) Amount {
	total := Amount{}
	for _, c := range s.Coins {
		if filter.Matches(c) {
			total = total.Add(c.Amount)
		}
	}
	return total
}

// NativeBalance is the balance of standard XCH coins.
func (s *AccountSnapshot) NativeBalance() Amount {
	return s.Balance(StandardCoins)
}

func (s *AccountSnapshot) Filter(filter CoinFilter) []HydratedCoin {
	return FilterCoins(s.Coins, filter)
}

func (s *AccountSnapshot) Coin(id Hash) (HydratedCoin, bool) {
	for _, c := range s.Coins {
		if c.ID() == id {
			return c, true
		}
	}
	return HydratedCoin{}, false
}

func (s *AccountSnapshot) IsStale(now time.Time, threshold time.Duration) bool {
	return now.Sub(s.FetchedAt) >= threshold
}

// AccountView is what callers render: the last known snapshot projection
// plus whether it is stale and why.
type AccountView struct {
	State        SyncState
	Balance      Amount
	Coins        []HydratedCoin
	FetchedAt    time.Time
	Stale        bool
	BalanceError error
}
