package application

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/infrastructure/db"
	inmemorystore "github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/infrastructure/kvstore/inmemory"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	metadataURI = "https://nft.test/1.json"
	metadataKey = "key-1"
)

var (
	metadataDoc    = []byte(`{"name":"punk #1","attributes":[]}`)
	errNotFound    = &domain.HTTPError{Service: "metadata host", StatusCode: 404}
	errServerError = &domain.HTTPError{Service: "metadata host", StatusCode: 500}
)

type metadataCacheFixture struct {
	clk     *clock.TestClock
	store   ports.KVStore
	fetcher *mockedFetcher
	cache   *MetadataCache
}

func newMetadataCacheFixture(store ports.KVStore) *metadataCacheFixture {
	clk := clock.NewTestClock(testTime)
	fetcher := &mockedFetcher{}
	repo := db.NewService(store).Metadata()
	cache := NewMetadataCache(fetcher, repo, clk, DefaultMetadataCacheConfig())
	return &metadataCacheFixture{clk, store, fetcher, cache}
}

func TestMetadataCacheResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("fetched once", func(t *testing.T) {
		f := newMetadataCacheFixture(inmemorystore.NewStore())
		f.fetcher.On("Fetch", mock.Anything, metadataURI).Return(metadataDoc, nil)

		for i := 0; i < 3; i++ {
			payload := f.cache.Resolve(ctx, metadataURI, metadataKey)
			require.True(t, payload.IsSome())
			require.JSONEq(t, string(metadataDoc), string(payload.UnwrapOr(nil)))
		}
		f.fetcher.AssertNumberOfCalls(t, "Fetch", 1)

		raw, err := f.store.Get(ctx, "metadata:"+metadataKey)
		require.NoError(t, err)
		var entry domain.MetadataEntry
		require.NoError(t, json.Unmarshal([]byte(raw), &entry))
		require.Equal(t, testTime, entry.FetchedAt.UTC())
	})

	t.Run("failures are not cached", func(t *testing.T) {
		f := newMetadataCacheFixture(inmemorystore.NewStore())
		f.fetcher.On("Fetch", mock.Anything, metadataURI).Return(nil, errServerError).Once()
		f.fetcher.On("Fetch", mock.Anything, metadataURI).Return(metadataDoc, nil).Once()

		require.True(t, f.cache.Resolve(ctx, metadataURI, metadataKey).IsNone())
		require.True(t, f.cache.Resolve(ctx, metadataURI, metadataKey).IsSome())
		f.fetcher.AssertNumberOfCalls(t, "Fetch", 2)
	})

	t.Run("invalid json", func(t *testing.T) {
		f := newMetadataCacheFixture(inmemorystore.NewStore())
		f.fetcher.On("Fetch", mock.Anything, metadataURI).Return([]byte("<html>"), nil)

		require.True(t, f.cache.Resolve(ctx, metadataURI, metadataKey).IsNone())
		_, err := f.store.Get(ctx, "metadata:"+metadataKey)
		require.ErrorIs(t, err, ports.ErrKeyNotFound)
	})

	t.Run("expired entry is refreshed", func(t *testing.T) {
		f := newMetadataCacheFixture(inmemorystore.NewStore())
		updated := []byte(`{"name":"punk #1 v2"}`)
		f.fetcher.On("Fetch", mock.Anything, metadataURI).Return(metadataDoc, nil).Once()
		f.fetcher.On("Fetch", mock.Anything, metadataURI).Return(updated, nil).Once()

		require.True(t, f.cache.Resolve(ctx, metadataURI, metadataKey).IsSome())
		f.clk.SetTime(testTime.Add(25 * time.Hour))

		payload := f.cache.Resolve(ctx, metadataURI, metadataKey)
		require.JSONEq(t, string(updated), string(payload.UnwrapOr(nil)))
	})

	t.Run("stale entry served on failure", func(t *testing.T) {
		f := newMetadataCacheFixture(inmemorystore.NewStore())
		f.fetcher.On("Fetch", mock.Anything, metadataURI).Return(metadataDoc, nil).Once()
		f.fetcher.On("Fetch", mock.Anything, metadataURI).Return(nil, errServerError)

		require.True(t, f.cache.Resolve(ctx, metadataURI, metadataKey).IsSome())
		f.clk.SetTime(testTime.Add(25 * time.Hour))

		payload := f.cache.Resolve(ctx, metadataURI, metadataKey)
		require.JSONEq(t, string(metadataDoc), string(payload.UnwrapOr(nil)))
		f.fetcher.AssertNumberOfCalls(t, "Fetch", 2)
	})
}

func TestMetadataCachePersistence(t *testing.T) {
	ctx := context.Background()
	store := inmemorystore.NewStore()

	first := newMetadataCacheFixture(store)
	first.fetcher.On("Fetch", mock.Anything, metadataURI).Return(metadataDoc, nil)
	require.True(t, first.cache.Resolve(ctx, metadataURI, metadataKey).IsSome())

	// A new cache over the same store does not hit the network.
	second := newMetadataCacheFixture(store)
	payload := second.cache.Resolve(ctx, metadataURI, metadataKey)
	require.JSONEq(t, string(metadataDoc), string(payload.UnwrapOr(nil)))
	second.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)

	t.Run("corrupt entry is replaced", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "metadata:corrupt", "{not json"))

		f := newMetadataCacheFixture(store)
		f.fetcher.On("Fetch", mock.Anything, metadataURI).Return(metadataDoc, nil)

		require.True(t, f.cache.Resolve(ctx, metadataURI, "corrupt").IsSome())
		f.fetcher.AssertNumberOfCalls(t, "Fetch", 1)

		entry, err := db.NewService(store).Metadata().GetEntry(ctx, "corrupt")
		require.NoError(t, err)
		require.JSONEq(t, string(metadataDoc), string(entry.Payload))
	})

	t.Run("corrupt entry without network", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "metadata:lost", "garbage"))

		f := newMetadataCacheFixture(store)
		f.fetcher.On("Fetch", mock.Anything, metadataURI).Return(nil, errNotFound)

		require.True(t, f.cache.Resolve(ctx, metadataURI, "lost").IsNone())
		_, err := store.Get(ctx, "metadata:lost")
		require.ErrorIs(t, err, ports.ErrKeyNotFound)
	})
}

func TestMetadataCacheConcurrentResolve(t *testing.T) {
	f := newMetadataCacheFixture(inmemorystore.NewStore())
	started, gate := make(chan struct{}, 8), make(chan struct{})
	f.fetcher.On("Fetch", mock.Anything, metadataURI).
		Run(func(mock.Arguments) {
			started <- struct{}{}
			<-gate
		}).
		Return(metadataDoc, nil)

	const callers = 8
	wg := &sync.WaitGroup{}
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			payload := f.cache.Resolve(context.Background(), metadataURI, metadataKey)
			require.True(t, payload.IsSome())
		}()
	}

	<-started
	close(gate)
	wg.Wait()

	f.fetcher.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestMetadataCacheCallerCancel(t *testing.T) {
	f := newMetadataCacheFixture(inmemorystore.NewStore())
	gate := make(chan struct{})
	f.fetcher.On("Fetch", mock.Anything, metadataURI).
		Run(func(mock.Arguments) { <-gate }).
		Return(metadataDoc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.True(t, f.cache.Resolve(ctx, metadataURI, metadataKey).IsNone())

	// The lookup completes in background and later calls are served from
	// memory.
	close(gate)
	require.Eventually(t, func() bool {
		return f.cache.Resolve(context.Background(), metadataURI, metadataKey).IsSome()
	}, time.Second, time.Millisecond)
	f.fetcher.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestMetadataCacheResolveCoin(t *testing.T) {
	ctx := context.Background()
	f := newMetadataCacheFixture(inmemorystore.NewStore())
	f.fetcher.On("Fetch", mock.Anything, "ipfs://missing/1.json").Return(nil, errNotFound)
	f.fetcher.On("Fetch", mock.Anything, metadataURI).Return(metadataDoc, nil)

	coin := nftCoin(7, "ipfs://missing/1.json", metadataURI)
	payload := f.cache.ResolveCoin(ctx, coin)
	require.JSONEq(t, string(metadataDoc), string(payload.UnwrapOr(nil)))

	key := domain.MetadataKey(coin.ParentCoinInfo, coin.PuzzleHash, metadataURI)
	raw, err := f.store.Get(ctx, "metadata:"+key)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	require.True(t, f.cache.ResolveCoin(ctx, xchCoin(1, 500)).IsNone())
	require.True(t, f.cache.ResolveCoin(ctx, nftCoin(8)).IsNone())
}
